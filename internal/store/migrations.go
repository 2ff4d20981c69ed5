/**
 * @description
 * Idempotent schema bootstrap for the token-service tables. This is a one-time
 * migration concern, kept separate from the runtime repository methods; every
 * statement is safe to re-run on startup.
 */

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		account_number TEXT PRIMARY KEY,
		balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		payment_id BIGSERIAL PRIMARY KEY,
		account_number TEXT NOT NULL REFERENCES accounts (account_number),
		amount BIGINT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS tokens (
		token TEXT PRIMARY KEY,
		account_number TEXT NOT NULL REFERENCES accounts (account_number),
		amount_paid BIGINT NOT NULL,
		is_used BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tokens_account_created
		ON tokens (account_number, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_tokens_expiry
		ON tokens (expires_at) WHERE is_used = FALSE`,
}

// Migrate applies the schema bootstrap statements in order.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
