package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsurePublishSchema creates the publishing tables when they are missing.
// Safe to call at startup; every statement is idempotent.
func EnsurePublishSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			image_ref TEXT,
			status TEXT NOT NULL DEFAULT 'draft',
			failure_kind TEXT,
			failure_detail TEXT,
			external_post_id TEXT,
			published_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_author ON posts (author_id)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_status ON posts (status)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			platform_account_id TEXT NOT NULL DEFAULT '',
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			scopes TEXT NOT NULL DEFAULT '',
			issued_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		// The single-active invariant, enforced by the database as well as the
		// repository transaction.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_credentials_active
			ON credentials (user_id, platform) WHERE active`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure publish schema: %w", err)
		}
	}
	return nil
}
