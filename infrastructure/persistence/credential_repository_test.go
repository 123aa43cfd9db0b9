package persistence

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

func TestCredentialRepository_GetActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCredentialRepository(db)

	now := time.Now().UTC()
	expiresAt := now.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, platform, platform_account_id, access_token, refresh_token, scopes, issued_at, expires_at, active, created_at, updated_at
			 FROM credentials WHERE user_id=$1 AND platform=$2 AND active`)).
		WithArgs("user-1", "linkedin").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "platform", "platform_account_id", "access_token", "refresh_token",
			"scopes", "issued_at", "expires_at", "active", "created_at", "updated_at",
		}).AddRow(7, "user-1", "linkedin", "acct-1", "tok", "refresh", "w_member_social", now, expiresAt, true, now, now))

	cred, err := repo.GetActive(context.Background(), "user-1", "linkedin")
	require.NoError(t, err)
	require.Equal(t, int64(7), cred.ID)
	require.Equal(t, "acct-1", cred.PlatformAccountID)
	require.Equal(t, "tok", cred.AccessToken)
	require.True(t, cred.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepository_GetActive_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCredentialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, platform, platform_account_id, access_token, refresh_token, scopes, issued_at, expires_at, active, created_at, updated_at
			 FROM credentials WHERE user_id=$1 AND platform=$2 AND active`)).
		WithArgs("user-1", "linkedin").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	cred, err := repo.GetActive(context.Background(), "user-1", "linkedin")
	require.Nil(t, cred)
	require.ErrorIs(t, err, repository.ErrCredentialNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepository_Upsert_DeactivatesThenInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCredentialRepository(db)

	cred := &model.Credential{
		UserID:            "user-1",
		Platform:          "linkedin",
		PlatformAccountID: "acct-1",
		AccessToken:       "tok-new",
		RefreshToken:      "refresh-new",
		Scopes:            "w_member_social",
		IssuedAt:          time.Now().UTC(),
		ExpiresAt:         time.Now().UTC().Add(time.Hour),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE credentials SET active=FALSE, updated_at=$1 WHERE user_id=$2 AND platform=$3 AND active`)).
		WithArgs(sqlmock.AnyArg(), "user-1", "linkedin").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO credentials (user_id, platform, platform_account_id, access_token, refresh_token, scopes, issued_at, expires_at, active, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,TRUE,$9,$10) RETURNING id`)).
		WithArgs("user-1", "linkedin", "acct-1", "tok-new", "refresh-new", "w_member_social",
			cred.IssuedAt, cred.ExpiresAt, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectCommit()

	err = repo.Upsert(context.Background(), cred)
	require.NoError(t, err)
	require.Equal(t, int64(8), cred.ID)
	require.True(t, cred.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepository_Upsert_InsertErrorRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCredentialRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE credentials SET active=FALSE, updated_at=$1 WHERE user_id=$2 AND platform=$3 AND active`)).
		WithArgs(sqlmock.AnyArg(), "user-1", "linkedin").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO credentials`)).
		WillReturnError(fmt.Errorf("insert error"))
	mock.ExpectRollback()

	err = repo.Upsert(context.Background(), &model.Credential{UserID: "user-1", Platform: "linkedin"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepository_Deactivate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCredentialRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE credentials SET active=FALSE, updated_at=$1 WHERE user_id=$2 AND platform=$3 AND active`)).
		WithArgs(sqlmock.AnyArg(), "user-1", "linkedin").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Deactivate(context.Background(), "user-1", "linkedin")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
