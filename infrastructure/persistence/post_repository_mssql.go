package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// PostRepositoryMSSQL is the post store on SQL Server (production).
type PostRepositoryMSSQL struct{ db *sql.DB }

func NewPostRepositoryMSSQL(db *sql.DB) *PostRepositoryMSSQL {
	return &PostRepositoryMSSQL{db: db}
}

func (r *PostRepositoryMSSQL) Create(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Status == "" {
		post.Status = model.PostStatusDraft
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dbo.[posts] (id, author_id, title, body, image_ref, status, created_at, updated_at)
		 VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8)`,
		post.ID, post.AuthorID, post.Title, post.Body, post.ImageRef, post.Status, post.CreatedAt, post.UpdatedAt)
	return err
}

func (r *PostRepositoryMSSQL) GetByID(ctx context.Context, id string) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM dbo.[posts] WHERE id=@p1`, id)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrPostNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PostRepositoryMSSQL) ListByAuthor(ctx context.Context, authorID string) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM dbo.[posts] WHERE author_id=@p1 ORDER BY created_at DESC`, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *PostRepositoryMSSQL) UpdateStatusIf(ctx context.Context, id, expected, status string, failureKind, failureDetail *string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[posts] SET status=@p1, failure_kind=@p2, failure_detail=@p3, updated_at=@p4
		 WHERE id=@p5 AND status=@p6`,
		status, failureKind, failureDetail, time.Now().UTC(), id, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostRepositoryMSSQL) MarkPublished(ctx context.Context, id, externalPostID string, publishedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[posts] SET status=@p1, external_post_id=@p2, published_at=@p3, failure_kind=NULL, failure_detail=NULL, updated_at=@p4
		 WHERE id=@p5 AND status=@p6`,
		model.PostStatusPublished, externalPostID, publishedAt, time.Now().UTC(), id, model.PostStatusPublishing)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostRepositoryMSSQL) IsExternallyPublished(ctx context.Context, id string) (bool, string, error) {
	row := r.db.QueryRowContext(ctx, `SELECT external_post_id FROM dbo.[posts] WHERE id=@p1`, id)
	var externalID sql.NullString
	if err := row.Scan(&externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, "", repository.ErrPostNotFound
		}
		return false, "", err
	}
	return externalID.Valid && externalID.String != "", externalID.String, nil
}

func (r *PostRepositoryMSSQL) ListRetryable(ctx context.Context, limit int) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT TOP (@p1) `+postColumns+` FROM dbo.[posts]
		 WHERE status=@p2 AND failure_kind IN (@p3,@p4)
		 ORDER BY updated_at ASC`,
		limit, model.PostStatusFailed, model.FailureRemoteRetryable, model.FailureTransientAuth)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *PostRepositoryMSSQL) ReleaseStuckPublishing(ctx context.Context, cutoff time.Time, failureKind, failureDetail string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[posts] SET status=@p1, failure_kind=@p2, failure_detail=@p3, updated_at=@p4
		 WHERE status=@p5 AND updated_at < @p6`,
		model.PostStatusFailed, failureKind, failureDetail, time.Now().UTC(), model.PostStatusPublishing, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ repository.IPost = (*PostRepositoryMSSQL)(nil)
