package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/saviobatista/sbs-viewer/internal/archive"
	"github.com/saviobatista/sbs-viewer/internal/capture"
	"github.com/saviobatista/sbs-viewer/internal/config"
	"github.com/saviobatista/sbs-viewer/internal/logger"
	"github.com/saviobatista/sbs-viewer/internal/nats"
	"github.com/saviobatista/sbs-viewer/internal/types"
)

// Publisher interface for testability
type Publisher interface {
	PublishSBSMessage(msg *types.SBSMessage) error
}

// Archiver keeps raw lines on disk
type Archiver interface {
	Write(line string, ts time.Time) error
}

// Ingestor forwards captured SBS lines to NATS
type Ingestor struct {
	publisher Publisher
	archiver  Archiver
	published atomic.Uint64
	failed    atomic.Uint64
	log       zerolog.Logger
}

// NewIngestor creates an ingestor publishing through p. archiver may be nil.
func NewIngestor(p Publisher, archiver Archiver) *Ingestor {
	return &Ingestor{publisher: p, archiver: archiver, log: logger.WithComponent("ingestor")}
}

// Forward publishes every message from msgs until the channel closes or
// ctx is done
func (i *Ingestor) Forward(ctx context.Context, msgs <-chan capture.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			if i.archiver != nil {
				if err := i.archiver.Write(m.Raw, m.Timestamp); err != nil {
					i.log.Warn().Err(err).Msg("Failed to archive message")
				}
			}
			msg := &types.SBSMessage{Raw: m.Raw, Timestamp: m.Timestamp, Source: m.Source}
			if err := i.publisher.PublishSBSMessage(msg); err != nil {
				i.failed.Add(1)
				i.log.Warn().Err(err).Str("source", m.Source).Msg("Failed to publish message")
				continue
			}
			i.published.Add(1)
		}
	}
}

// Published returns the number of messages published so far
func (i *Ingestor) Published() uint64 {
	return i.published.Load()
}

// Failed returns the number of messages that could not be published
func (i *Ingestor) Failed() uint64 {
	return i.failed.Load()
}

func (i *Ingestor) logStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.log.Info().
				Uint64("published", i.Published()).
				Uint64("failed", i.Failed()).
				Msg("Ingestor statistics")
		}
	}
}

func flushArchive(ctx context.Context, a *archive.Archive, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Flush(); err != nil {
				logger.Error().Err(err).Msg("Failed to flush archive")
			}
		}
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	client, err := nats.New(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("failed to create NATS client: %w", err)
	}
	defer client.Close()

	c := capture.New(cfg.Sources)
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	var archiver Archiver
	if cfg.ArchiveDir != "" {
		a, err := archive.New(cfg.ArchiveDir)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				logger.Error().Err(err).Msg("Error closing archive")
			}
		}()
		go flushArchive(ctx, a, 10*time.Second)
		archiver = a
	}

	ingestor := NewIngestor(client, archiver)
	go ingestor.logStats(ctx, time.Minute)

	logger.Info().Strs("sources", cfg.Sources).Str("nats_url", cfg.NATSURL).Msg("Ingestor started")

	done := make(chan struct{})
	go func() {
		ingestor.Forward(ctx, c.Messages())
		close(done)
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down...")
	c.Stop()
	<-done
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}
	if err := cfg.ValidateIngestor(); err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}
	if _, err := logger.Init(logger.Config{Level: cfg.LogLevel, Output: cfg.LogOutput, File: cfg.LogFile}); err != nil {
		logger.Error().Err(err).Msg("Failed to initialize logger")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error().Err(err).Msg("Ingestor failed")
		os.Exit(1)
	}
}
