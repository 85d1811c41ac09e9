package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/crosspost-social/crosspost/api/echo"
	redisstore "github.com/crosspost-social/crosspost/cache/redis"
	"github.com/crosspost-social/crosspost/config"
	"github.com/crosspost-social/crosspost/internal/auth"
	"github.com/crosspost-social/crosspost/internal/provider"
	"github.com/crosspost-social/crosspost/log"
	"github.com/crosspost-social/crosspost/mongodb"
	"github.com/crosspost-social/crosspost/services"
	"github.com/crosspost-social/crosspost/tracing"
)

var (
	appLogger      log.Logger
	httpServer     *echo.Echo
	tracerProvider *sdktrace.TracerProvider
	mongoClient    *mongo.Client
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		stdLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		stdLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize Logger
	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
		fallbackLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		fallbackLog.Warn().
			Str("configured_log_level", cfg.LogLevel).
			Str("fallback_log_level", logLevel.String()).
			Err(parseErr).
			Msg("Invalid LOG_LEVEL configured, defaulting to 'info'")
	}
	appLogger = log.NewZerologAdapter(logLevel, cfg.LogPretty)
	appLogger.Info(context.Background(), "Starting crosspost server...")
	appLogger.Info(context.Background(), "Configuration loaded successfully", map[string]interface{}{
		"http_port":     cfg.HTTPPort,
		"mongo_uri":     cfg.MongoURI,
		"mongo_db_name": cfg.MongoDBName,
		"redis_addr":    cfg.RedisAddr,
		"log_level":     cfg.LogLevel,
		"otel_service":  cfg.OtelServiceName,
	})

	// Initialize OpenTelemetry TracerProvider
	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		appLogger.Fatal(context.Background(), "Failed to initialize TracerProvider", err, nil)
	}
	tracerProvider = tp

	ctx := context.Background()

	client, db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize MongoDB connection", err, nil)
	}
	mongoClient = client

	// Repositories
	accountRepo, err := mongodb.NewAccountRepository(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize AccountRepository", err, nil)
	}
	authRepo, err := mongodb.NewAuthorizationRepository(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize AuthorizationRepository", err, nil)
	}
	updateRepo, err := mongodb.NewStatusUpdateRepository(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize StatusUpdateRepository", err, nil)
	}

	redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLogger.Fatal(ctx, "Failed to connect to Redis", err, nil)
	}
	sessionRepo := redisstore.NewSessionStore(redisClient, "crosspost")

	// Providers
	registry := provider.NewRegistry(
		provider.NewTwitterProvider(provider.Config{
			ClientID:     cfg.TwitterClientID,
			ClientSecret: cfg.TwitterClientSecret,
			RedirectURL:  cfg.BaseURL + "/auth/twitter/callback",
		}),
		provider.NewFacebookProvider(provider.Config{
			ClientID:     cfg.FacebookClientID,
			ClientSecret: cfg.FacebookClientSecret,
			RedirectURL:  cfg.BaseURL + "/auth/facebook/callback",
		}),
	)

	// Services
	passwordHasher := auth.NewBcryptPasswordHasher(bcrypt.DefaultCost)
	accountService := services.NewAccountService(accountRepo, authRepo, sessionRepo, registry, passwordHasher,
		services.AccountServiceOptions{
			PendingSignupTTL: time.Duration(cfg.PendingSignupTTLMin) * time.Minute,
			SessionTTL:       time.Duration(cfg.SessionTTLHour) * time.Hour,
		})
	publishService := services.NewPublishService(updateRepo, authRepo, registry,
		time.Duration(cfg.PublishTimeoutSec)*time.Second)

	// HTTP surface
	httpServer = echo.New()
	httpServer.HideBanner = true
	httpServer.Use(middleware.Recover())
	httpServer.Use(middleware.RequestID())

	api := echoapi.NewCrosspostAPI(accountService, publishService)
	api.RegisterRoutes(httpServer)

	go func() {
		appLogger.Info(context.Background(), fmt.Sprintf("HTTP server listening on port %s", cfg.HTTPPort))
		if err := httpServer.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(context.Background(), "Failed to start HTTP server", err, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit

	appLogger.Info(context.Background(), fmt.Sprintf("Received signal: %v. Shutting down server...", receivedSignal))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "HTTP server shutdown error", err, nil)
		}
	}

	accountService.Stop()

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err, nil)
		}
	}

	if err := redisClient.Close(); err != nil {
		appLogger.Error(shutdownCtx, "Redis close error", err, nil)
	}
	mongodb.Close(shutdownCtx, mongoClient)

	appLogger.Info(shutdownCtx, "Server gracefully stopped.")
}
