package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		phone TEXT NOT NULL,
		password_hash BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		number TEXT PRIMARY KEY,
		card_number TEXT NOT NULL UNIQUE,
		owner_id UUID NOT NULL REFERENCES clients (id),
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS client_accounts (
		position BIGSERIAL PRIMARY KEY,
		client_id UUID NOT NULL REFERENCES clients (id),
		account_id TEXT NOT NULL UNIQUE REFERENCES accounts (number)
	)`,
	`CREATE INDEX IF NOT EXISTS client_accounts_client_idx ON client_accounts (client_id, position)`,
	`CREATE TABLE IF NOT EXISTS ledger_accounts (
		code TEXT PRIMARY KEY,
		balance NUMERIC(24,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_postings (
		id UUID PRIMARY KEY,
		from_code TEXT NOT NULL REFERENCES ledger_accounts (code),
		to_code TEXT NOT NULL REFERENCES ledger_accounts (code),
		amount NUMERIC(24,2) NOT NULL CHECK (amount > 0),
		posted_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_postings_from_idx ON ledger_postings (from_code, posted_at)`,
	`CREATE INDEX IF NOT EXISTS ledger_postings_to_idx ON ledger_postings (to_code, posted_at)`,
}

// Migrate creates the tables used by the Postgres backends. Every statement is
// idempotent, so it runs on each start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
