package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// CredentialRepository is the PostgreSQL token store.
type CredentialRepository struct{ db *sql.DB }

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) GetActive(ctx context.Context, userID, platform string) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, platform, platform_account_id, access_token, refresh_token, scopes, issued_at, expires_at, active, created_at, updated_at
		 FROM credentials WHERE user_id=$1 AND platform=$2 AND active`, userID, platform)
	cred := &model.Credential{}
	err := row.Scan(&cred.ID, &cred.UserID, &cred.Platform, &cred.PlatformAccountID,
		&cred.AccessToken, &cred.RefreshToken, &cred.Scopes,
		&cred.IssuedAt, &cred.ExpiresAt, &cred.Active, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrCredentialNotFound
		}
		return nil, err
	}
	return cred, nil
}

// Upsert deactivates any prior active rows for (user_id, platform) and
// inserts the new one in a single transaction. The UPDATE takes row locks, so
// concurrent refreshes for the same key serialize; last writer wins but two
// active rows can never remain.
func (r *CredentialRepository) Upsert(ctx context.Context, cred *model.Credential) error {
	now := time.Now().UTC()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now
	cred.Active = true

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`UPDATE credentials SET active=FALSE, updated_at=$1 WHERE user_id=$2 AND platform=$3 AND active`,
		now, cred.UserID, cred.Platform); err != nil {
		return err
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO credentials (user_id, platform, platform_account_id, access_token, refresh_token, scopes, issued_at, expires_at, active, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,TRUE,$9,$10) RETURNING id`,
		cred.UserID, cred.Platform, cred.PlatformAccountID, cred.AccessToken, cred.RefreshToken,
		cred.Scopes, cred.IssuedAt, cred.ExpiresAt, cred.CreatedAt, cred.UpdatedAt,
	).Scan(&cred.ID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *CredentialRepository) Deactivate(ctx context.Context, userID, platform string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE credentials SET active=FALSE, updated_at=$1 WHERE user_id=$2 AND platform=$3 AND active`,
		time.Now().UTC(), userID, platform)
	return err
}

var _ repository.ICredential = (*CredentialRepository)(nil)
