package repository

import (
	"context"
	"errors"

	"social-publisher/domain/model"
)

var ErrCredentialNotFound = errors.New("credential not found")

// ICredential is the token store. Upsert must leave at most one active row
// per (user_id, platform) even under concurrent refreshes.
type ICredential interface {
	GetActive(ctx context.Context, userID, platform string) (*model.Credential, error)
	Upsert(ctx context.Context, cred *model.Credential) error
	Deactivate(ctx context.Context, userID, platform string) error
}
