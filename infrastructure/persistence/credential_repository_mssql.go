package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// CredentialRepositoryMSSQL is the token store on SQL Server (production).
type CredentialRepositoryMSSQL struct{ db *sql.DB }

func NewCredentialRepositoryMSSQL(db *sql.DB) *CredentialRepositoryMSSQL {
	return &CredentialRepositoryMSSQL{db: db}
}

func (r *CredentialRepositoryMSSQL) GetActive(ctx context.Context, userID, platform string) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT TOP 1 id, user_id, platform, platform_account_id, access_token, refresh_token, scopes, issued_at, expires_at, active, created_at, updated_at
		 FROM dbo.[credentials] WHERE user_id=@p1 AND platform=@p2 AND active=1`, userID, platform)
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

func (r *CredentialRepositoryMSSQL) Upsert(ctx context.Context, cred *model.Credential) error {
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
		`UPDATE dbo.[credentials] SET active=0, updated_at=@p1 WHERE user_id=@p2 AND platform=@p3 AND active=1`,
		now, cred.UserID, cred.Platform); err != nil {
		return err
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO dbo.[credentials] (user_id, platform, platform_account_id, access_token, refresh_token, scopes, issued_at, expires_at, active, created_at, updated_at)
		 OUTPUT INSERTED.id
		 VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,1,@p9,@p10)`,
		cred.UserID, cred.Platform, cred.PlatformAccountID, cred.AccessToken, cred.RefreshToken,
		cred.Scopes, cred.IssuedAt, cred.ExpiresAt, cred.CreatedAt, cred.UpdatedAt,
	).Scan(&cred.ID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *CredentialRepositoryMSSQL) Deactivate(ctx context.Context, userID, platform string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[credentials] SET active=0, updated_at=@p1 WHERE user_id=@p2 AND platform=@p3 AND active=1`,
		time.Now().UTC(), userID, platform)
	return err
}

var _ repository.ICredential = (*CredentialRepositoryMSSQL)(nil)
