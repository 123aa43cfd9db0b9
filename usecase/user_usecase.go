package usecase

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/persistence"
)

type IUserUsecase interface {
	Login(ctx context.Context, req model.ReqLogin) dto.Res
	Register(ctx context.Context, req model.ReqRegister) dto.Res
}

type userUsecase struct {
	userRepo repository.IUser
}

func NewUserUsecase(userRepo repository.IUser) IUserUsecase {
	return &userUsecase{userRepo: userRepo}
}

func hashPassword(password string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(password)))
}

func (u *userUsecase) Login(ctx context.Context, req model.ReqLogin) dto.Res {
	user, err := u.userRepo.GetByUserName(ctx, req.UserName)
	if err != nil {
		if errors.Is(err, persistence.ErrUserNotFound) {
			return dto.Res{ResponseCode: "401", ResponseMessage: "Invalid username or password"}
		}
		logger.GetLogger().WithField("error", err).Error("Error while fetching user")
		return dto.Res{ResponseCode: "500", ResponseMessage: "Internal server error"}
	}
	if user.Password != hashPassword(req.Password) {
		return dto.Res{ResponseCode: "401", ResponseMessage: "Invalid username or password"}
	}

	claims := model.UserClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    strconv.FormatInt(user.ID, 10),
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(24 * time.Hour).Unix(),
		},
		UserName: user.UserName,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(configuration.C.App.SecretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while signing token")
		return dto.Res{ResponseCode: "500", ResponseMessage: "Internal server error"}
	}

	return dto.Res{
		ResponseCode:    "200",
		ResponseMessage: "Success",
		Data:            map[string]string{"token": signed},
	}
}

func (u *userUsecase) Register(ctx context.Context, req model.ReqRegister) dto.Res {
	if _, err := u.userRepo.GetByUserName(ctx, req.UserName); err == nil {
		return dto.Res{ResponseCode: "409", ResponseMessage: "Username already taken"}
	}

	user := &model.User{
		UserName: req.UserName,
		Name:     req.Name,
		Password: hashPassword(req.Password),
	}
	if err := u.userRepo.CreateUser(ctx, user); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while creating user")
		return dto.Res{ResponseCode: "500", ResponseMessage: "Internal server error"}
	}
	return dto.Res{ResponseCode: "200", ResponseMessage: "Success"}
}
