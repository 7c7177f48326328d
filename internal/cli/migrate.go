package cli

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"popquiz-service/internal/config"
	pgmigrations "popquiz-service/internal/infra/postgres/migrations"
	"popquiz-service/internal/logging"
)

var errNoPostgres = errors.New("postgres url not configured")

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := logging.New("popquiz", cfg.Log.Env, cfg.Log.Level)
			return runMigrationsWithConfig(cmd.Context(), cfg, logger)
		},
	}
}

func openDB(cfg config.Config) (*bun.DB, error) {
	if cfg.Postgres.URL == "" {
		return nil, errNoPostgres
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		logger.Info().Msg("no new migrations")
		return nil
	}
	logger.Info().Str("group", group.String()).Msg("migrations applied")
	return nil
}
