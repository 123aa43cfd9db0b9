package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/cache"
	"social-publisher/infrastructure/clients/contentgen"
	"social-publisher/infrastructure/clients/linkedin"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/persistence"
	"social-publisher/infrastructure/pubsub"
	"social-publisher/infrastructure/realtime"
	"social-publisher/infrastructure/servicebus"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/server"
	"social-publisher/usecase"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	publishDb, err := InitiatePublishDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Publish database initialization failed")
		os.Exit(1)
	}

	userDb, err := persistence.NewUserDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("User database initialization failed")
		os.Exit(1)
	}

	mongoDb, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
		configuration.C.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without attempt history")
		mongoDb = nil
	} else if err := mongoDb.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - continuing without attempt history")
		mongoDb = nil
	}

	pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("PubSub not available - continuing without published events")
		pubSubClient = nil
	}

	azServiceBusClient, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without failure notifications")
		azServiceBusClient = nil
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - continuing without status cache")
		redisClient = nil
	}

	// Repository wiring: MSSQL in production, otherwise PostgreSQL.
	var postRepository repository.IPost
	var credentialRepository repository.ICredential
	if useMSSQL() {
		if err := persistence.EnsurePublishSchemaMSSQL(publishDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring publish schema")
		}
		postRepository = persistence.NewPostRepositoryMSSQL(publishDb)
		credentialRepository = persistence.NewCredentialRepositoryMSSQL(publishDb)
	} else {
		if err := persistence.EnsurePublishSchema(publishDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring publish schema")
		}
		postRepository = persistence.NewPostRepository(publishDb)
		credentialRepository = persistence.NewCredentialRepository(publishDb)
	}
	userRepository := persistence.NewUserRepository(userDb)
	attemptRepository := persistence.NewAttemptRepository(mongoDb)

	li := configuration.C.LinkedIn
	pub := configuration.C.Publish
	httpTimeout := time.Duration(pub.HTTPTimeoutSeconds) * time.Second
	linkedInClient := linkedin.NewClient(li.APIBaseURL, httpTimeout)
	tokenExchanger := linkedin.NewTokenExchanger(li.AuthBaseURL, li.APIBaseURL, li.ClientID, li.ClientSecret, li.RedirectURI, httpTimeout)

	var contentProvider repository.IContentProvider
	if configuration.C.ContentGen.Host != "" {
		contentProvider = contentgen.NewClient(configuration.C.ContentGen.Host, configuration.C.ContentGen.APIKey)
	} else {
		logger.GetLogger().Info("Content generation not configured - drafts are manual only")
	}

	statusCache := cache.NewStatusCache(redisClient)
	publishEvents := pubsub.NewPublishEvents(pubSubClient, configuration.C.Pubsub.PublishedTopic)
	notificationBus := servicebus.NewNotificationBus(azServiceBusClient, configuration.C.ServiceBus.Queue)

	tokenUsecase := usecase.NewTokenUsecase(credentialRepository, tokenExchanger, time.Duration(pub.SafetyMarginMinutes)*time.Minute)
	publishHub := realtime.NewPublishHub()
	publishUsecase := usecase.NewPublishUsecase(
		postRepository,
		tokenUsecase,
		linkedInClient,
		attemptRepository,
		statusCache,
		publishEvents,
		notificationBus,
	).WithBroadcaster(func(post *model.Post) { publishHub.BroadcastPublishStatus(post) })
	postUsecase := usecase.NewPostUsecase(postRepository, contentProvider)
	userUsecase := usecase.NewUserUsecase(userRepository)

	userHandler := httpHandler.NewUserHandler(userUsecase)
	postHandler := httpHandler.NewPostHandler(postUsecase)
	publishHandler := httpHandler.NewPublishHandler(publishUsecase)
	linkedInOAuthHandler := httpHandler.NewLinkedInOAuthHandler(credentialRepository, tokenExchanger)

	router := server.InitiateRouter(userHandler, postHandler, publishHandler, linkedInOAuthHandler, userRepository, publishHub)

	// Background retry processor: re-publishes posts whose last failure was
	// transient (remote 5xx/429 or token endpoint hiccups).
	g.Go(func() error {
		ticker := time.NewTicker(time.Duration(pub.RetryIntervalSecs) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				procCtx, cancelProc := context.WithTimeout(ctx, time.Duration(pub.RetryIntervalSecs)*time.Second)
				if err := publishUsecase.ProcessRetryable(procCtx, pub.RetryBatchSize); err != nil {
					logger.GetLogger().WithField("error", err).Warn("retry sweep failed")
				}
				cancelProc()
			}
		}
	})

	logger.GetLogger().WithField("port", app.Port).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", app.Port),
			Handler: router,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

func useMSSQL() bool {
	env := os.Getenv("ENV")
	return os.Getenv("DB_VENDOR") == "mssql" || env == "production" || env == "prod"
}

// InitiatePublishDatabase opens the posts/credentials store: MSSQL when the
// environment asks for it, PostgreSQL otherwise.
func InitiatePublishDatabase() (*sql.DB, error) {
	if useMSSQL() {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
			return nil, err
		}
		return db, nil
	}
	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL")
		return nil, err
	}
	return db, nil
}
