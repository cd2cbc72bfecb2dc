package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saviobatista/sbs-viewer/internal/api"
	"github.com/saviobatista/sbs-viewer/internal/config"
	"github.com/saviobatista/sbs-viewer/internal/db"
	"github.com/saviobatista/sbs-viewer/internal/logger"
	"github.com/saviobatista/sbs-viewer/internal/redis"
)

const pingTimeout = 10 * time.Second

func run(ctx context.Context, cfg *config.Config) error {
	client, err := db.New(cfg.DBConnStr)
	if err != nil {
		return fmt.Errorf("failed to create database client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing database client")
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	options := []func(*api.Server){api.WithHistory(client)}
	if cfg.RedisAddr != "" {
		// the cache is optional; lookups fall back to Postgres without it
		cache, err := redis.New(cfg.RedisAddr)
		if err != nil {
			logger.Warn().Err(err).Str("redis_addr", cfg.RedisAddr).Msg("Aircraft cache unavailable")
		} else {
			defer func() {
				if err := cache.Close(); err != nil {
					logger.Error().Err(err).Msg("Error closing Redis client")
				}
			}()
			options = append(options, api.WithCache(cache))
		}
	}

	server := api.NewServer(client, options...)
	if err := server.Start(ctx, cfg.APIAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	logger.Info().Msg("API server stopped")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}
	if _, err := logger.Init(logger.Config{Level: cfg.LogLevel, Output: cfg.LogOutput, File: cfg.LogFile}); err != nil {
		logger.Error().Err(err).Msg("Failed to initialize logger")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error().Err(err).Msg("API failed")
		os.Exit(1)
	}
}
