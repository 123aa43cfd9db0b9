package model

import (
	"time"

	"github.com/golang-jwt/jwt"
)

type User struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserName  string    `json:"user_name" gorm:"uniqueIndex;size:100"`
	Name      string    `json:"name"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

type UserClaims struct {
	jwt.StandardClaims
	UserName string `json:"user_name"`
}

type ReqLogin struct {
	UserName string `json:"user_name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ReqRegister struct {
	UserName string `json:"user_name" binding:"required"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required"`
}
