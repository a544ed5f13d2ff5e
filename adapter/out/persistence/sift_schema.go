// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema creates the tables on startup. Idempotent: every statement is
// IF NOT EXISTS so redeploys are safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS inferred_accounts (
		id                TEXT PRIMARY KEY,
		user_id           UUID NOT NULL,
		email_identity_id TEXT NOT NULL,
		service_name      TEXT NOT NULL,
		service_domain    TEXT NOT NULL,
		category          TEXT NOT NULL,
		confidence_score  DOUBLE PRECISION NOT NULL,
		explanation       TEXT NOT NULL DEFAULT '',
		settings_url      TEXT NOT NULL DEFAULT '',
		status            TEXT NOT NULL,
		first_seen_at     TIMESTAMPTZ NOT NULL,
		last_seen_at      TIMESTAMPTZ NOT NULL,
		version           BIGINT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL,
		updated_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_user_last_seen
		ON inferred_accounts (user_id, last_seen_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_user_category
		ON inferred_accounts (user_id, category)`,

	`CREATE TABLE IF NOT EXISTS account_evidence (
		id            TEXT PRIMARY KEY,
		user_id       UUID NOT NULL,
		account_id    TEXT NOT NULL,
		mailbox_id    TEXT NOT NULL,
		message_id    TEXT NOT NULL,
		evidence_type TEXT NOT NULL,
		excerpt       TEXT NOT NULL DEFAULT '',
		signals       JSONB NOT NULL DEFAULT '{}',
		weight        DOUBLE PRECISION NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_evidence_account_created
		ON account_evidence (account_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_evidence_user
		ON account_evidence (user_id)`,

	`CREATE TABLE IF NOT EXISTS sender_inventory (
		id          TEXT PRIMARY KEY,
		user_id     UUID NOT NULL,
		mailbox_id  TEXT NOT NULL,
		root_domain TEXT NOT NULL,
		first_seen  TIMESTAMPTZ NOT NULL,
		last_seen   TIMESTAMPTZ NOT NULL,
		msg_count   BIGINT NOT NULL DEFAULT 0,
		has_unsub   BOOLEAN NOT NULL DEFAULT FALSE,
		status      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_user_last_seen
		ON sender_inventory (user_id, last_seen DESC)`,
}

// EnsureSchema creates the tables and indexes used by the adapters.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
