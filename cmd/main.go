package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/m-atharkhan/FrClass/internal/cache"
	"github.com/m-atharkhan/FrClass/internal/client"
	"github.com/m-atharkhan/FrClass/internal/config"
	"github.com/m-atharkhan/FrClass/internal/domain"
	"github.com/m-atharkhan/FrClass/internal/events"
	"github.com/m-atharkhan/FrClass/internal/handler"
	"github.com/m-atharkhan/FrClass/internal/hub"
	"github.com/m-atharkhan/FrClass/internal/registry"
	"github.com/m-atharkhan/FrClass/internal/repository"
	"github.com/m-atharkhan/FrClass/internal/service"
	"github.com/m-atharkhan/FrClass/pkg/database"
	"github.com/m-atharkhan/FrClass/pkg/jwt"
	pkglog "github.com/m-atharkhan/FrClass/pkg/log"
	"github.com/m-atharkhan/FrClass/pkg/middleware"
	"github.com/m-atharkhan/FrClass/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: cfg.Log.ServiceName,
	})
	logger := pkglog.L()

	// Connect to database using GORM
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Auto-migrate
	if err := database.AutoMigrate(db,
		&domain.MessageModel{},
		&domain.RoomCounterModel{},
		&domain.PollModel{},
		&domain.VoteModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// Initialize repositories
	messageRepo := repository.NewGormMessageRepository(db)
	pollRepo := repository.NewGormPollRepository(db)

	// Initialize poll-results cache
	var resultsCache cache.ResultsCache
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisResultsCache(cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisCache.Close()
		resultsCache = redisCache
		logger.Info().Msg("redis cache connected")
	} else {
		resultsCache = cache.NewNoopResultsCache()
	}

	// Initialize kafka producer for persisted-message events
	var producer events.Producer
	if cfg.Kafka.Enabled {
		kafkaProducer, err := events.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create kafka producer")
		}
		defer kafkaProducer.Close()
		producer = kafkaProducer
		logger.Info().Str("topic", cfg.Kafka.Topic).Msg("kafka producer connected")
	} else {
		producer = events.NewNoopProducer()
	}

	// Initialize attachment storage
	var store storage.Storage
	switch cfg.Storage.Driver {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), cfg.Storage.S3)
	default:
		store, err = storage.NewLocalStorage(cfg.Storage.Local)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	// Initialize class membership checker
	var membership client.MembershipChecker
	if cfg.ClassService.BaseURL != "" {
		membership = client.NewClassClient(cfg.ClassService.BaseURL, cfg.ClassService.CacheTTL)
	} else {
		logger.Warn().Msg("no class service configured, allowing all authenticated users")
		membership = client.AllowAllChecker{}
	}

	// Initialize presence registry and hub
	reg := registry.NewMemoryRegistry()
	h := hub.NewHub(reg, cfg.WebSocket)
	go h.Run()

	// Initialize services
	chatService := service.NewChatService(messageRepo, h, producer)
	pollService := service.NewPollService(pollRepo, resultsCache)

	// Initialize auth middleware
	tokenManager := jwt.NewManager(cfg.Auth.Secret, cfg.Auth.AccessDuration, cfg.Auth.Issuer)
	authMiddleware := middleware.NewAuthMiddleware(tokenManager)

	// Initialize handlers
	httpHandler := handler.NewHandler(chatService, pollService, membership, store, authMiddleware)
	wsHandler := handler.NewWSHandler(h, chatService, tokenManager, membership, cfg.WebSocket)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	httpHandler.RegisterRoutes(r)
	r.GET("/ws", wsHandler.HandleWebSocket)

	// Start server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", addr).Str("driver", cfg.Database.Driver).Msg("realtime gateway starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("server stopped")
}
