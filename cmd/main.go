/**
 * @description
 * This is the main entry point for the renewal-service.
 * It initializes and wires together all the components of the application:
 * configuration, database connection, repository, payment gateway client,
 * event producer, rate limiter, the application service, the background
 * expiry sweep scheduler, and the HTTP router. Finally, it starts the HTTP
 * server to listen for incoming requests.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/renewly/renewal-service/internal/api"
	"github.com/renewly/renewal-service/internal/app"
	"github.com/renewly/renewal-service/internal/config"
	"github.com/renewly/renewal-service/internal/store"
	"github.com/renewly/renewal-service/pkg/rabbitmq"
	"github.com/renewly/renewal-service/pkg/razorpayclient"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env if present, then configuration from environment variables
	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up channel to listen for OS signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Establish connection to the PostgreSQL database with connection pool configuration
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Use simple protocol so the service also works behind transaction-pooling
	// proxies like PgBouncer.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// Database tables are created via db/schema.sql; apply it before first run.

	// Optional event producer; fall back to a logging no-op when the broker
	// is not configured or unreachable so startup never fails on it.
	var events app.Publisher = &rabbitmq.EventProducerFallback{}
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
		if err != nil {
			logger.Error("failed to connect to RabbitMQ, using fallback publisher", "error", err)
		} else {
			events = producer
			defer producer.Close()
		}
	}

	// Optional Redis-backed rate limiter for the renewal endpoint.
	var limiter app.RateLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL, renewal rate limiting disabled", "error", err)
		} else {
			limiter = app.NewRedisRateLimiter(redis.NewClient(opts), "renewal:rate_limit")
		}
	}

	// Initialize application layers
	repository := store.NewPostgresRepository(dbpool)
	gateway := razorpayclient.NewClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	service := app.NewService(repository, gateway, events, limiter, logger, cfg)
	handler := api.NewHandler(service)
	router := api.NewRouter(handler, cfg.JWTSecret)

	// Bootstrap the default admin once, guarded by an existence check.
	if err := service.EnsureDefaultAdmin(ctx); err != nil {
		logger.Error("failed to ensure default admin", "error", err)
		os.Exit(1)
	}

	// Start the background expiry sweep scheduler.
	scheduler := app.NewScheduler(service, logger, cfg)
	scheduler.Start()

	// Configure and start the HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for an OS signal
	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	// Stop the scheduler and wait for running jobs to finish
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	// Create a context with a timeout for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Attempt to gracefully shut down the server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
