// Package migrations holds the bun migrations for the quiz schema.
package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

func execSQL(query string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, query)
		return err
	}
}
