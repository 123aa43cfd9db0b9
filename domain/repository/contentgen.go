package repository

import (
	"context"

	"social-publisher/domain/dto"
)

// IContentProvider supplies generated draft content. Output is opaque to the
// publishing core.
type IContentProvider interface {
	Generate(ctx context.Context, req *dto.GenerateContentRequest) (*dto.GeneratedContent, error)
}
