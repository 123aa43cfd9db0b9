package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/dto"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
	"social-publisher/usecase"
)

type IPostHandler interface {
	CreateDraft(c *gin.Context)
	GetPost(c *gin.Context)
	ListPosts(c *gin.Context)
	GenerateDraft(c *gin.Context)
}

type PostHandler struct {
	postUsecase usecase.IPostUsecase
}

func NewPostHandler(postUsecase usecase.IPostUsecase) IPostHandler {
	return &PostHandler{postUsecase: postUsecase}
}

func (h *PostHandler) CreateDraft(c *gin.Context) {
	var req dto.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := c.GetString("user_id")

	post, err := h.postUsecase.CreateDraft(c.Request.Context(), userID, &req)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while creating draft")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create draft"})
		return
	}
	c.JSON(http.StatusCreated, dto.Res{ResponseCode: "201", ResponseMessage: "Created", Data: post})
}

func (h *PostHandler) GetPost(c *gin.Context) {
	userID := c.GetString("user_id")
	post, err := h.postUsecase.GetPost(c.Request.Context(), c.Param("postId"), userID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, repository.ErrPostNotFound):
			status = http.StatusNotFound
		case errors.Is(err, usecase.ErrNotPostAuthor):
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: post})
}

func (h *PostHandler) ListPosts(c *gin.Context) {
	userID := c.GetString("user_id")
	posts, err := h.postUsecase.ListPosts(c.Request.Context(), userID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while listing posts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list posts"})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: posts})
}

func (h *PostHandler) GenerateDraft(c *gin.Context) {
	var req dto.GenerateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := c.GetString("user_id")

	post, err := h.postUsecase.GenerateDraft(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, usecase.ErrContentProviderUnavailable) {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "content generation not configured"})
			return
		}
		logger.GetLogger().WithField("error", err).Error("Error while generating draft")
		c.JSON(http.StatusBadGateway, gin.H{"error": "content generation failed"})
		return
	}
	c.JSON(http.StatusCreated, dto.Res{ResponseCode: "201", ResponseMessage: "Created", Data: post})
}
