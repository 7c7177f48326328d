package migrations

import (
	_ "embed"
)

//go:embed 2024112203_create_accounts.up.sql
var createAccountsSQL string

func init() {
	Migrations.MustRegister(
		execSQL(createAccountsSQL),
		execSQL(`DROP TABLE IF EXISTS accounts`),
	)
}
