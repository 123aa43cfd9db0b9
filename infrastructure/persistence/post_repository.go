package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// PostRepository is the PostgreSQL post store. Status transitions are
// conditional single-row updates, which is what makes concurrent publishes
// of the same post resolve to exactly one winner.
type PostRepository struct{ db *sql.DB }

func NewPostRepository(db *sql.DB) *PostRepository { return &PostRepository{db: db} }

const postColumns = `id, author_id, title, body, image_ref, status, failure_kind, failure_detail, external_post_id, published_at, created_at, updated_at`

func scanPost(row interface{ Scan(...interface{}) error }) (*model.Post, error) {
	p := &model.Post{}
	var imageRef, failureKind, failureDetail, externalID sql.NullString
	var publishedAt sql.NullTime
	err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Body, &imageRef, &p.Status,
		&failureKind, &failureDetail, &externalID, &publishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if imageRef.Valid {
		p.ImageRef = &imageRef.String
	}
	if failureKind.Valid {
		p.FailureKind = &failureKind.String
	}
	if failureDetail.Valid {
		p.FailureDetail = &failureDetail.String
	}
	if externalID.Valid {
		p.ExternalPostID = &externalID.String
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		p.PublishedAt = &t
	}
	return p, nil
}

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Status == "" {
		post.Status = model.PostStatusDraft
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, title, body, image_ref, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		post.ID, post.AuthorID, post.Title, post.Body, post.ImageRef, post.Status, post.CreatedAt, post.UpdatedAt)
	return err
}

func (r *PostRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id=$1`, id)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrPostNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PostRepository) ListByAuthor(ctx context.Context, authorID string) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE author_id=$1 ORDER BY created_at DESC`, authorID)
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

// UpdateStatusIf is the optimistic lock: the UPDATE only lands when the row
// still holds the expected status. A zero row count means another worker won.
func (r *PostRepository) UpdateStatusIf(ctx context.Context, id, expected, status string, failureKind, failureDetail *string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET status=$1, failure_kind=$2, failure_detail=$3, updated_at=$4
		 WHERE id=$5 AND status=$6`,
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

// MarkPublished couples status=published with the external id and publish
// time in one statement, so the status/external-id invariant can't be
// observed half-written.
func (r *PostRepository) MarkPublished(ctx context.Context, id, externalPostID string, publishedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET status=$1, external_post_id=$2, published_at=$3, failure_kind=NULL, failure_detail=NULL, updated_at=$4
		 WHERE id=$5 AND status=$6`,
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

func (r *PostRepository) IsExternallyPublished(ctx context.Context, id string) (bool, string, error) {
	row := r.db.QueryRowContext(ctx, `SELECT external_post_id FROM posts WHERE id=$1`, id)
	var externalID sql.NullString
	if err := row.Scan(&externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, "", repository.ErrPostNotFound
		}
		return false, "", err
	}
	return externalID.Valid && externalID.String != "", externalID.String, nil
}

func (r *PostRepository) ListRetryable(ctx context.Context, limit int) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE status=$1 AND failure_kind IN ($2,$3)
		 ORDER BY updated_at ASC LIMIT $4`,
		model.PostStatusFailed, model.FailureRemoteRetryable, model.FailureTransientAuth, limit)
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

func (r *PostRepository) ReleaseStuckPublishing(ctx context.Context, cutoff time.Time, failureKind, failureDetail string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET status=$1, failure_kind=$2, failure_detail=$3, updated_at=$4
		 WHERE status=$5 AND updated_at < $6`,
		model.PostStatusFailed, failureKind, failureDetail, time.Now().UTC(), model.PostStatusPublishing, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ repository.IPost = (*PostRepository)(nil)
