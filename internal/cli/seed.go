package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"popquiz-service/internal/catalog"
	"popquiz-service/internal/config"
	"popquiz-service/internal/infra/postgres"
	"popquiz-service/internal/logging"
)

// NewSeedCmd loads the bundled catalog into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert the bundled quiz catalog into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := logging.New("popquiz", cfg.Log.Env, cfg.Log.Level)
			cat, err := catalog.New(logger)
			if err != nil {
				return err
			}
			return seedCatalog(cmd.Context(), cfg, cat, logger)
		},
	}
}

func seedCatalog(ctx context.Context, cfg config.Config, cat *catalog.Catalog, logger zerolog.Logger) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := postgres.SeedQuizzes(ctx, db, cat.Definitions())
	if err != nil {
		return err
	}
	logger.Info().Int("quizzes", n).Msg("catalog seeded")
	return nil
}
