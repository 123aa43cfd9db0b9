package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsurePublishSchemaMSSQL creates the publishing tables on SQL Server.
func EnsurePublishSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	createIfMissing := func(table, ddl string) error {
		q := fmt.Sprintf(`IF OBJECT_ID('dbo.%s', 'U') IS NULL BEGIN %s END`, table, ddl)
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure table %s: %w", table, err)
		}
		return nil
	}

	if err := createIfMissing("posts", `CREATE TABLE dbo.[posts] (
		id NVARCHAR(64) PRIMARY KEY,
		author_id NVARCHAR(64) NOT NULL,
		title NVARCHAR(512) NOT NULL,
		body NVARCHAR(MAX) NOT NULL,
		image_ref NVARCHAR(1024) NULL,
		status NVARCHAR(32) NOT NULL DEFAULT 'draft',
		failure_kind NVARCHAR(64) NULL,
		failure_detail NVARCHAR(MAX) NULL,
		external_post_id NVARCHAR(255) NULL,
		published_at DATETIMEOFFSET NULL,
		created_at DATETIMEOFFSET NOT NULL,
		updated_at DATETIMEOFFSET NOT NULL
	)`); err != nil {
		return err
	}
	if err := createIfMissing("credentials", `CREATE TABLE dbo.[credentials] (
		id BIGINT IDENTITY(1,1) PRIMARY KEY,
		user_id NVARCHAR(64) NOT NULL,
		platform NVARCHAR(32) NOT NULL,
		platform_account_id NVARCHAR(255) NOT NULL DEFAULT '',
		access_token NVARCHAR(MAX) NOT NULL,
		refresh_token NVARCHAR(MAX) NOT NULL DEFAULT '',
		scopes NVARCHAR(1024) NOT NULL DEFAULT '',
		issued_at DATETIMEOFFSET NOT NULL,
		expires_at DATETIMEOFFSET NOT NULL,
		active BIT NOT NULL DEFAULT 1,
		created_at DATETIMEOFFSET NOT NULL,
		updated_at DATETIMEOFFSET NOT NULL
	)`); err != nil {
		return err
	}
	// Filtered unique index backs the single-active invariant.
	q := `IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = 'uq_credentials_active')
		CREATE UNIQUE INDEX uq_credentials_active ON dbo.[credentials] (user_id, platform) WHERE active = 1`
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("ensure index uq_credentials_active: %w", err)
	}
	return nil
}
