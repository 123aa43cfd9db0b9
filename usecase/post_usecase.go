package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

var ErrContentProviderUnavailable = errors.New("content provider not configured")

type IPostUsecase interface {
	CreateDraft(ctx context.Context, authorID string, req *dto.CreatePostRequest) (*model.Post, error)
	GetPost(ctx context.Context, postID, userID string) (*model.Post, error)
	ListPosts(ctx context.Context, authorID string) ([]*model.Post, error)
	GenerateDraft(ctx context.Context, authorID string, req *dto.GenerateContentRequest) (*model.Post, error)
}

type postUsecase struct {
	postRepo repository.IPost
	provider repository.IContentProvider
}

func NewPostUsecase(postRepo repository.IPost, provider repository.IContentProvider) IPostUsecase {
	return &postUsecase{postRepo: postRepo, provider: provider}
}

func newPostID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return "post_" + hex.EncodeToString(b)
}

func (u *postUsecase) CreateDraft(ctx context.Context, authorID string, req *dto.CreatePostRequest) (*model.Post, error) {
	post := &model.Post{
		ID:       newPostID(),
		AuthorID: authorID,
		Title:    req.Title,
		Body:     req.Body,
		ImageRef: req.ImageRef,
		Status:   model.PostStatusDraft,
	}
	if err := u.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (u *postUsecase) GetPost(ctx context.Context, postID, userID string) (*model.Post, error) {
	post, err := u.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, ErrNotPostAuthor
	}
	return post, nil
}

func (u *postUsecase) ListPosts(ctx context.Context, authorID string) ([]*model.Post, error) {
	return u.postRepo.ListByAuthor(ctx, authorID)
}

// GenerateDraft asks the content provider for text/image and stores the
// result as a normal draft. Provider output is opaque to the publish flow.
func (u *postUsecase) GenerateDraft(ctx context.Context, authorID string, req *dto.GenerateContentRequest) (*model.Post, error) {
	if u.provider == nil {
		return nil, ErrContentProviderUnavailable
	}
	content, err := u.provider.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return u.CreateDraft(ctx, authorID, &dto.CreatePostRequest{
		Title:    content.Title,
		Body:     content.Body,
		ImageRef: content.ImageURL,
	})
}
