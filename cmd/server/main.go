package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"trustd/internal/allowlist"
	"trustd/internal/api"
	"trustd/internal/config"
	"trustd/internal/identity"
	"trustd/internal/realip"
	"trustd/internal/service"
	"trustd/internal/storage"
	"trustd/internal/storage/redisstore"
	sqlstore "trustd/internal/storage/sql"
)

func main() {
	// Optional local .env for development
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", "error", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           parseLogLevel(cfg.Log.Level),
	})

	// Initialize the trust store
	store, err := newStore(cfg)
	if err != nil {
		log.Fatal("Failed to initialize trust store", "driver", cfg.Store.Driver, "error", err)
	}
	defer store.Close()

	// Static allow-list, immutable for process lifetime
	prefixes, err := cfg.Access.AllowedPrefixes()
	if err != nil {
		log.Fatal("Invalid allow-list", "error", err)
	}
	allow := allowlist.New(prefixes)
	logger.Info("Loaded allow-list", "networks", allow.Len())

	svc := service.New(store, allow, cfg.Access.CacheTTL, logger)

	realIP := realip.NewExtractor(cfg.Headers.ClientIP)
	id := identity.NewHeaderExtractor(cfg.Headers.Identity)

	// Create router
	router := api.NewRouter(svc, realIP, id, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("Starting trustd", "addr", cfg.Server.Addr(), "store", cfg.Store.Driver)

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

func newStore(cfg *config.Config) (storage.TrustStore, error) {
	switch cfg.Store.Driver {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return redisstore.New(ctx, cfg.Store.RedisURL, cfg.Store.KeyPrefix)
	default:
		return sqlstore.New(cfg.Store.Driver, cfg.Store.DSN)
	}
}

func parseLogLevel(level string) log.Level {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel
	}
	return parsed
}
