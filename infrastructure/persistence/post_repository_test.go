package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

var postRows = []string{
	"id", "author_id", "title", "body", "image_ref", "status",
	"failure_kind", "failure_detail", "external_post_id", "published_at", "created_at", "updated_at",
}

func TestPostRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+postColumns+` FROM posts WHERE id=$1`)).
		WithArgs("post_1").
		WillReturnRows(sqlmock.NewRows(postRows).
			AddRow("post_1", "user-1", "Title", "Body", nil, "draft", nil, nil, nil, nil, now, now))

	post, err := repo.GetByID(context.Background(), "post_1")
	require.NoError(t, err)
	require.Equal(t, "post_1", post.ID)
	require.Equal(t, model.PostStatusDraft, post.Status)
	require.Nil(t, post.ExternalPostID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+postColumns+` FROM posts WHERE id=$1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(postRows))

	post, err := repo.GetByID(context.Background(), "missing")
	require.Nil(t, post)
	require.ErrorIs(t, err, repository.ErrPostNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_UpdateStatusIf_Wins(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE posts SET status=$1, failure_kind=$2, failure_detail=$3, updated_at=$4
			 WHERE id=$5 AND status=$6`)).
		WithArgs(model.PostStatusPublishing, nil, nil, sqlmock.AnyArg(), "post_1", model.PostStatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.UpdateStatusIf(context.Background(), "post_1", model.PostStatusDraft, model.PostStatusPublishing, nil, nil)
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_UpdateStatusIf_LosesRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	// Zero rows affected: the row no longer holds the expected status.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE posts SET status=$1, failure_kind=$2, failure_detail=$3, updated_at=$4
			 WHERE id=$5 AND status=$6`)).
		WithArgs(model.PostStatusPublishing, nil, nil, sqlmock.AnyArg(), "post_1", model.PostStatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.UpdateStatusIf(context.Background(), "post_1", model.PostStatusDraft, model.PostStatusPublishing, nil, nil)
	require.NoError(t, err)
	require.False(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_MarkPublished(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)
	publishedAt := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE posts SET status=$1, external_post_id=$2, published_at=$3, failure_kind=NULL, failure_detail=NULL, updated_at=$4
			 WHERE id=$5 AND status=$6`)).
		WithArgs(model.PostStatusPublished, "urn:li:ugcPost:42", publishedAt, sqlmock.AnyArg(), "post_1", model.PostStatusPublishing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.MarkPublished(context.Background(), "post_1", "urn:li:ugcPost:42", publishedAt)
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_IsExternallyPublished(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT external_post_id FROM posts WHERE id=$1`)).
		WithArgs("post_1").
		WillReturnRows(sqlmock.NewRows([]string{"external_post_id"}).AddRow("urn:li:ugcPost:42"))

	published, externalID, err := repo.IsExternallyPublished(context.Background(), "post_1")
	require.NoError(t, err)
	require.True(t, published)
	require.Equal(t, "urn:li:ugcPost:42", externalID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_IsExternallyPublished_NoExternalID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT external_post_id FROM posts WHERE id=$1`)).
		WithArgs("post_1").
		WillReturnRows(sqlmock.NewRows([]string{"external_post_id"}).AddRow(nil))

	published, externalID, err := repo.IsExternallyPublished(context.Background(), "post_1")
	require.NoError(t, err)
	require.False(t, published)
	require.Empty(t, externalID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListRetryable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+postColumns+` FROM posts
			 WHERE status=$1 AND failure_kind IN ($2,$3)
			 ORDER BY updated_at ASC LIMIT $4`)).
		WithArgs(model.PostStatusFailed, model.FailureRemoteRetryable, model.FailureTransientAuth, 10).
		WillReturnRows(sqlmock.NewRows(postRows).
			AddRow("post_1", "user-1", "Title", "Body", nil, "failed", "remote_retryable", "503", nil, nil, now, now).
			AddRow("post_2", "user-2", "Other", "Body", nil, "failed", "transient_auth", "token endpoint 503", nil, nil, now, now))

	posts, err := repo.ListRetryable(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, "post_1", posts[0].ID)
	require.True(t, posts[0].RetryableFailure())
	require.True(t, posts[1].RetryableFailure())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ReleaseStuckPublishing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)
	cutoff := time.Now().Add(-10 * time.Minute).UTC()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE posts SET status=$1, failure_kind=$2, failure_detail=$3, updated_at=$4
		 WHERE status=$5 AND updated_at < $6`)).
		WithArgs(model.PostStatusFailed, model.FailureRemoteRetryable, "publish interrupted", sqlmock.AnyArg(), model.PostStatusPublishing, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	released, err := repo.ReleaseStuckPublishing(context.Background(), cutoff, model.FailureRemoteRetryable, "publish interrupted")
	require.NoError(t, err)
	require.Equal(t, int64(2), released)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO posts (id, author_id, title, body, image_ref, status, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`)).
		WithArgs("post_1", "user-1", "Title", "Body", nil, model.PostStatusDraft, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	post := &model.Post{ID: "post_1", AuthorID: "user-1", Title: "Title", Body: "Body"}
	err = repo.Create(context.Background(), post)
	require.NoError(t, err)
	require.Equal(t, model.PostStatusDraft, post.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_UpdateStatusIf_RecordsFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)
	kind := model.FailureRemoteRetryable
	detail := "remote publish failed: status=503 outcome=retryable"

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE posts SET status=$1, failure_kind=$2, failure_detail=$3, updated_at=$4
			 WHERE id=$5 AND status=$6`)).
		WithArgs(model.PostStatusFailed, kind, detail, sqlmock.AnyArg(), "post_1", model.PostStatusPublishing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.UpdateStatusIf(context.Background(), "post_1", model.PostStatusPublishing, model.PostStatusFailed, &kind, &detail)
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}
