package migrations

import (
	_ "embed"
)

//go:embed 2024112201_create_quizzes.up.sql
var createQuizzesSQL string

func init() {
	Migrations.MustRegister(
		execSQL(createQuizzesSQL),
		execSQL(`DROP TABLE IF EXISTS quizzes`),
	)
}
