package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/saviobatista/sbs-viewer/internal/config"
	"github.com/saviobatista/sbs-viewer/internal/db"
	"github.com/saviobatista/sbs-viewer/internal/logger"
	"github.com/saviobatista/sbs-viewer/internal/nats"
	"github.com/saviobatista/sbs-viewer/internal/parser"
	"github.com/saviobatista/sbs-viewer/internal/redis"
	"github.com/saviobatista/sbs-viewer/internal/stats"
	"github.com/saviobatista/sbs-viewer/internal/types"
)

const durableName = "tracker"

// Registry interface for testability
type Registry interface {
	UpsertAircraft(ctx context.Context, obs *types.Observation) (*types.Aircraft, error)
	ListAircraft(ctx context.Context) ([]types.Aircraft, error)
}

// Cache interface for testability
type Cache interface {
	StoreAircraft(ctx context.Context, ac *types.Aircraft) error
}

// Counters tracks message throughput of a tracker
type Counters struct {
	Received atomic.Uint64
	Parsed   atomic.Uint64
	Skipped  atomic.Uint64
	Failed   atomic.Uint64
	Stored   atomic.Uint64
}

// Tracker folds SBS observations into the aircraft registry and keeps the
// cache in step with it
type Tracker struct {
	registry Registry
	cache    Cache
	counters Counters
	log      zerolog.Logger
}

// NewTracker creates a tracker over registry and cache. cache may be nil.
func NewTracker(registry Registry, cache Cache) *Tracker {
	return &Tracker{
		registry: registry,
		cache:    cache,
		log:      logger.WithComponent("tracker"),
	}
}

// WarmCache copies the registry into the cache and returns how many
// aircraft were cached
func (t *Tracker) WarmCache(ctx context.Context) (int, error) {
	if t.cache == nil {
		return 0, nil
	}
	aircraft, err := t.registry.ListAircraft(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load aircraft: %w", err)
	}
	cached := 0
	for i := range aircraft {
		if err := t.cache.StoreAircraft(ctx, &aircraft[i]); err != nil {
			t.log.Warn().Err(err).Str("icao", aircraft[i].Address).Msg("Failed to cache aircraft")
			continue
		}
		cached++
	}
	return cached, nil
}

// ProcessMessage parses msg and upserts the aircraft it describes
func (t *Tracker) ProcessMessage(ctx context.Context, msg *types.SBSMessage) error {
	t.counters.Received.Add(1)

	obs, err := parser.ParseMessage(msg.Raw, msg.Timestamp)
	if err != nil {
		t.counters.Failed.Add(1)
		return fmt.Errorf("failed to parse message: %w", err)
	}
	if obs == nil {
		t.counters.Skipped.Add(1)
		return nil
	}
	t.counters.Parsed.Add(1)

	ac, err := t.registry.UpsertAircraft(ctx, obs)
	if err != nil {
		return fmt.Errorf("failed to upsert aircraft: %w", err)
	}
	t.counters.Stored.Add(1)

	if t.cache != nil {
		if err := t.cache.StoreAircraft(ctx, ac); err != nil {
			t.log.Warn().Err(err).Str("icao", ac.Address).Msg("Failed to cache aircraft")
		}
	}
	return nil
}

// Counters exposes the throughput counters
func (t *Tracker) Counters() *Counters {
	return &t.counters
}

// logStats periodically logs throughput
func (t *Tracker) logStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.log.Info().
				Uint64("received", t.counters.Received.Load()).
				Uint64("parsed", t.counters.Parsed.Load()).
				Uint64("skipped", t.counters.Skipped.Load()).
				Uint64("failed", t.counters.Failed.Load()).
				Uint64("stored", t.counters.Stored.Load()).
				Msg("Tracker statistics")
		}
	}
}

// createClients creates all the required clients for the application
func createClients(cfg *config.Config) (*nats.Client, *db.Client, *redis.Client, error) {
	natsClient, err := nats.New(cfg.NATSURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create NATS client: %w", err)
	}

	dbClient, err := db.New(cfg.DBConnStr)
	if err != nil {
		natsClient.Close()
		return nil, nil, nil, fmt.Errorf("failed to create database client: %w", err)
	}

	redisClient, err := redis.New(cfg.RedisAddr)
	if err != nil {
		natsClient.Close()
		if closeErr := dbClient.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("Error closing database client")
		}
		return nil, nil, nil, fmt.Errorf("failed to create Redis client: %w", err)
	}

	return natsClient, dbClient, redisClient, nil
}

// subscriber is the part of the NATS client the tracker consumes
type subscriber interface {
	SubscribeSBSRaw(durable string, handler func(*types.SBSMessage)) (*nats.Subscription, error)
}

// subscribe feeds every SBS message into tracker
func subscribe(ctx context.Context, sub subscriber, tracker *Tracker) error {
	_, err := sub.SubscribeSBSRaw(durableName, func(msg *types.SBSMessage) {
		if err := tracker.ProcessMessage(ctx, msg); err != nil {
			tracker.log.Debug().Err(err).Str("source", msg.Source).Msg("Failed to process message")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to SBS messages: %w", err)
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	natsClient, dbClient, redisClient, err := createClients(cfg)
	if err != nil {
		return err
	}
	defer func() {
		natsClient.Close()
		if err := dbClient.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing database client")
		}
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing Redis client")
		}
	}()

	runID := uuid.New()
	log := logger.WithComponent("tracker").With().Str("run_id", runID.String()).Logger()

	tracker := NewTracker(dbClient, redisClient)
	cached, err := tracker.WarmCache(ctx)
	if err != nil {
		return fmt.Errorf("failed to warm cache: %w", err)
	}
	log.Info().Int("aircraft", cached).Msg("Cache warmed from registry")

	recorder := stats.NewRecorder(dbClient, dbClient, runID, cfg.SummaryRetention)
	go recorder.StartPersistence(ctx, cfg.StatsInterval)
	go tracker.logStats(ctx, time.Minute)

	if err := subscribe(ctx, natsClient, tracker); err != nil {
		return err
	}
	log.Info().Str("nats_url", cfg.NATSURL).Msg("Tracker started")

	<-ctx.Done()
	log.Info().Msg("Shutting down...")
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
		logger.Error().Err(err).Msg("Tracker failed")
		os.Exit(1)
	}
}
