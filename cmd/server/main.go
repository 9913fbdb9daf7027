package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flight-tracker-chat/backend/chat/api"
	"flight-tracker-chat/backend/chat/broker"
	"flight-tracker-chat/backend/chat/models"
	"flight-tracker-chat/backend/chat/repository"
	"flight-tracker-chat/backend/chat/service"
	"flight-tracker-chat/backend/internal/ws"
	"flight-tracker-chat/backend/pkg/cache"
	"flight-tracker-chat/backend/pkg/config"
	"flight-tracker-chat/backend/pkg/errors"
	"flight-tracker-chat/backend/pkg/logger"
	"flight-tracker-chat/backend/pkg/middleware"
	"flight-tracker-chat/backend/pkg/token"
	"flight-tracker-chat/backend/pkg/validator"
	"flight-tracker-chat/backend/shared/observability"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		stdlog.Println("No .env file found")
	}

	cfg := config.New()

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting flight chat server", "env", cfg.Server.Env)

	// Observability
	shutdownTracing := observability.SetupTracing("flight-chat")
	defer shutdownTracing()
	observability.SetupPrometheusMetrics(":2112")

	// Initialize database
	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(&models.Session{}, &models.Message{}); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	// Repositories
	messageRepo := repository.NewGormMessageRepository(db)
	sessionRepo := repository.NewGormSessionRepository(db)

	// Broker backend
	var chatBroker broker.Broker
	switch cfg.Broker.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Broker.RedisAddr,
			DB:   cfg.Broker.RedisDB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.LogError(err, "Failed to connect to redis", "addr", cfg.Broker.RedisAddr)
			os.Exit(1)
		}
		chatBroker = broker.NewRedisBroker(rdb, log)
		log.Info("Using redis broker", "addr", cfg.Broker.RedisAddr)
	default:
		chatBroker = broker.NewMemoryBroker()
		log.Info("Using in-memory broker")
	}

	// Sender lookup cache
	var sessionCache *cache.Cache
	if cfg.Cache.Enabled {
		sessionCache = cache.NewCache()
	}

	// Services
	tokens := token.NewService(cfg.Session.Secret, cfg.Session.TokenExpiry)
	sessions := service.NewSessionService(sessionRepo, tokens, log)
	chats := service.NewChatService(messageRepo, sessionRepo, chatBroker, sessionCache, log, service.Options{
		MaxContentBytes:         cfg.Chat.MaxContentBytes,
		LiveFeedRequiresSession: cfg.Chat.LiveFeedRequiresSession,
		SubscriberBuffer:        cfg.Chat.SubscriberBuffer,
	})

	// Subscription gateway
	gateway := ws.NewGateway(chats, log, cfg.WebSocket.WriteWait, cfg.WebSocket.PongWait, cfg.WebSocket.MaxMessageSize)

	// Router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.Middleware(log))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rateLimiterOpts := middleware.DefaultRateLimiterOptions()
	rateLimiterOpts.Limit = rate.Limit(cfg.Security.RateLimit)
	rateLimiterOpts.Burst = cfg.Security.RateLimitBurst
	engine.Use(middleware.NewRateLimiter(log, rateLimiterOpts).Middleware())

	// Add OpenAPI validation if schema file is available
	if schemaPath := os.Getenv("OPENAPI_SCHEMA_PATH"); schemaPath != "" {
		v, err := validator.NewOpenAPIValidator(schemaPath)
		if err != nil {
			log.LogError(err, "Failed to initialize OpenAPI validator", "schema", schemaPath)
		} else {
			engine.Use(v.Middleware())
			log.Info("OpenAPI validation enabled", "schema", schemaPath)
		}
	}

	handler := api.NewChatHandler(chats, sessions, cfg)
	api.RegisterRoutes(engine, handler, gateway, sessions, cfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: engine,
	}

	// Start the server in a goroutine
	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Block until we receive a signal
	<-quit
	log.Info("Shutting down server...")

	// Create a deadline to wait for
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the server
	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	log.Info("Server exited gracefully")
}
