package postgres

import (
	"context"
	"database/sql"
)

// Schema creates the tables used by the store when they don't exist.
const Schema = `
	CREATE TABLE IF NOT EXISTS ` + accountTableName + ` (
		address TEXT COLLATE "C" NOT NULL PRIMARY KEY,
		owner TEXT COLLATE "C" NOT NULL,
		lamports BIGINT NOT NULL CHECK (lamports > 0),
		data BYTEA NOT NULL,
		executable BOOLEAN NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL
	);
	CREATE INDEX IF NOT EXISTS ` + accountTableName + `__owner ON ` + accountTableName + ` (owner);

	CREATE TABLE IF NOT EXISTS ` + commitTableName + ` (
		id UUID NOT NULL PRIMARY KEY,
		signature TEXT NOT NULL UNIQUE,
		accounts TEXT NOT NULL,
		message BYTEA NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	ALTER TABLE ` + commitTableName + ` ADD COLUMN IF NOT EXISTS message BYTEA NOT NULL DEFAULT '';
`

// Migrate applies Schema to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
