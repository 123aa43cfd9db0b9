package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
	"social-publisher/usecase"
)

const ErrorUnmarshal = "Error while unmarshal"

type IUserHandler interface {
	Login(c *gin.Context)
	Register(c *gin.Context)
}

type UserHandler struct {
	userUsecase usecase.IUserUsecase
}

func NewUserHandler(userUsecase usecase.IUserUsecase) IUserHandler {
	return &UserHandler{userUsecase: userUsecase}
}

func (h *UserHandler) Login(c *gin.Context) {
	var req model.ReqLogin
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		c.JSON(http.StatusBadRequest, fmt.Sprintf("%s %v", ErrorUnmarshal, err.Error()))
		return
	}

	res := h.userUsecase.Login(c.Request.Context(), req)
	c.JSON(http.StatusOK, res)
}

func (h *UserHandler) Register(c *gin.Context) {
	var req model.ReqRegister
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		c.JSON(http.StatusBadRequest, fmt.Sprintf("%s %v", ErrorUnmarshal, err.Error()))
		return
	}

	res := h.userUsecase.Register(c.Request.Context(), req)
	c.JSON(http.StatusOK, res)
}
