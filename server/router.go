package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"social-publisher/domain/repository"
	"social-publisher/infrastructure/realtime"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/interfaces/middleware"
)

func InitiateRouter(
	userHandler httpHandler.IUserHandler,
	postHandler httpHandler.IPostHandler,
	publishHandler httpHandler.IPublishHandler,
	linkedInOAuthHandler httpHandler.ILinkedInOAuthHandler,
	userRepository repository.IUser,
	publishHub *realtime.Hub,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "http://localhost:4201", "https://localhost:4200", "https://localhost:4201"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.POST("/login", userHandler.Login)
	router.POST("/register", userHandler.Register)
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("api")
	api.Use(middleware.Auth(userRepository))

	// OAuth connection routes. Only the callback stays outside the auth group
	// (the browser redirect from LinkedIn lands without a bearer token); the
	// auth URL is issued to the signed-in user so the state nonce can carry
	// their id into the callback.
	if linkedInOAuthHandler != nil {
		router.GET("/auth/linkedin/callback", linkedInOAuthHandler.Callback)
		api.GET("/linkedin/auth-url", linkedInOAuthHandler.GetAuthURL)
		api.GET("/linkedin/status", linkedInOAuthHandler.Status)
		api.DELETE("/linkedin/connection", linkedInOAuthHandler.Disconnect)
	}

	posts := api.Group("/posts")
	{
		posts.POST("", postHandler.CreateDraft)
		posts.GET("", postHandler.ListPosts)
		posts.POST("/generate", postHandler.GenerateDraft)
		posts.GET("/:postId", postHandler.GetPost)
		posts.POST("/:postId/publish", publishHandler.Publish)
		posts.GET("/:postId/publish-status", publishHandler.Status)
	}
	api.POST("/publish/process-retries", publishHandler.ProcessRetries)

	if publishHub != nil {
		api.GET("/publish/stream", publishHub.Serve)
	}

	return router
}
