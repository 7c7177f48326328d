package migrations

import (
	_ "embed"
)

//go:embed 2024112202_create_scores.up.sql
var createScoresSQL string

func init() {
	Migrations.MustRegister(
		execSQL(createScoresSQL),
		execSQL(`DROP TABLE IF EXISTS scores`),
	)
}
