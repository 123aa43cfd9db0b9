package repository

import (
	"context"

	"social-publisher/domain/model"
)

type IUser interface {
	GetByUserName(ctx context.Context, userName string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
}
