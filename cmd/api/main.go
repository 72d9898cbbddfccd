package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"vitrine/internal/config"
	"vitrine/internal/database"
	"vitrine/internal/logger"
	"vitrine/internal/media"
	"vitrine/internal/server"
	"vitrine/internal/session"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	log.Info("Starting vitrine API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	ctx := context.Background()

	// Initialize database
	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	db := dbService.DB()

	// Check database health
	health := dbService.Health()
	log.Info("Database health check", zap.Any("health", health))

	// Run migrations
	if err := database.RunMigrations(db, log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	if !cfg.IsProduction() {
		if err := database.GetMigrationStatus(db); err != nil {
			log.Warn("Failed to print migration status", zap.Error(err))
		}
	}

	// Visitor state and rate limit counters
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Fatal("Failed to reach redis", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
	}
	cancel()

	uploader, err := media.NewS3Uploader(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("Failed to configure image storage", zap.Error(err))
	}
	if !uploader.Enabled() {
		log.Warn("S3_BUCKET is not set, image uploads are disabled")
	}

	services := server.NewServices(cfg, db, session.NewRedisStore(redisClient, session.DefaultTTL), log)

	if cfg.Admin.Email != "" {
		created, err := services.Auth.EnsureBootstrapAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name)
		if err != nil {
			log.Fatal("Failed to create bootstrap admin", zap.Error(err))
		}
		if created {
			log.Info("Bootstrap admin created", zap.String("email", cfg.Admin.Email))
		}
	}

	if purged, err := services.Auth.PurgeExpiredTokens(ctx); err != nil {
		log.Warn("Failed to purge expired refresh tokens", zap.Error(err))
	} else if purged > 0 {
		log.Info("Expired refresh tokens purged", zap.Int64("count", purged))
	}

	// Create server
	srv := server.NewServer(cfg, log, db, redisClient, services, uploader)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}
