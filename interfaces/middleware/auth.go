package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"
)

// Auth validates the bearer token and stores user_id in the gin context.
func Auth(userRepository repository.IUser) gin.HandlerFunc {
	unauthorized := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}

	return func(ctx *gin.Context) {
		authorization := ctx.Request.Header.Get("Authorization")
		if authorization == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}
		parts := strings.SplitN(authorization, "Bearer ", 2)
		if len(parts) != 2 || parts[1] == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}

		var claims model.UserClaims
		token, err := jwt.ParseWithClaims(parts[1], &claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(configuration.C.App.SecretKey), nil
		})
		if err != nil || !token.Valid {
			res := unauthorized
			var ve *jwt.ValidationError
			if errors.As(err, &ve) && ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
				res.ResponseMessage = "Token expired"
			}
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		if _, err := userRepository.GetByUserName(ctx.Request.Context(), claims.UserName); err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}

		ctx.Set("user_id", claims.Issuer)
		ctx.Next()
	}
}
