package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
	"social-publisher/usecase"
)

type IPublishHandler interface {
	Publish(c *gin.Context)
	Status(c *gin.Context)
	ProcessRetries(c *gin.Context)
}

type PublishHandler struct {
	publishUsecase usecase.IPublishUsecase
}

func NewPublishHandler(publishUsecase usecase.IPublishUsecase) IPublishHandler {
	return &PublishHandler{publishUsecase: publishUsecase}
}

// Publish starts (or reports) the publish workflow for a post. Repeated calls
// for the same post are safe: once a publish is in flight or done the handler
// returns the current state with already_in_progress_or_done set.
func (h *PublishHandler) Publish(c *gin.Context) {
	postID := c.Param("postId")
	userID := c.GetString("user_id")

	res, err := h.publishUsecase.Publish(c.Request.Context(), postID, userID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, repository.ErrPostNotFound):
			status = http.StatusNotFound
		case errors.Is(err, usecase.ErrNotPostAuthor):
			status = http.StatusForbidden
		default:
			logger.GetLogger().WithField("error", err).WithField("post_id", postID).Error("Error while publishing post")
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(publishHTTPStatus(res), dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: res})
}

func (h *PublishHandler) Status(c *gin.Context) {
	postID := c.Param("postId")
	userID := c.GetString("user_id")

	res, err := h.publishUsecase.Status(c.Request.Context(), postID, userID)
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
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: res})
}

// ProcessRetries triggers one retry sweep on demand, same path the background
// ticker takes.
func (h *PublishHandler) ProcessRetries(c *gin.Context) {
	if err := h.publishUsecase.ProcessRetryable(c.Request.Context(), configuration.C.Publish.RetryBatchSize); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while processing retryable posts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "retry sweep failed"})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success"})
}

// publishHTTPStatus maps the workflow outcome onto an HTTP status: 200 for
// published or no-op, 502/401/422 depending on the failure kind.
func publishHTTPStatus(res *dto.PublishResponse) int {
	if res.FailureKind == nil {
		return http.StatusOK
	}
	switch *res.FailureKind {
	case model.FailureAuthRequired:
		return http.StatusUnauthorized
	case model.FailureRemoteFatal:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
