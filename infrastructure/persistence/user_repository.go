package persistence

import (
	"context"
	"errors"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository stores user accounts on the primary MySQL database.
type UserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) GetByUserName(ctx context.Context, userName string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("user_name = ?", userName).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

var _ repository.IUser = (*UserRepository)(nil)
