package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/saviobatista/sbs-viewer/internal/config"
	"github.com/saviobatista/sbs-viewer/internal/db"
	"github.com/saviobatista/sbs-viewer/internal/logger"
	"github.com/saviobatista/sbs-viewer/internal/redis"
	"github.com/saviobatista/sbs-viewer/internal/source"
	"github.com/saviobatista/sbs-viewer/internal/table"
	"github.com/saviobatista/sbs-viewer/internal/tui"
)

// newSource builds the configured data source. The returned closer
// releases any connection the source holds.
func newSource(cfg *config.Config) (table.Source, io.Closer, error) {
	switch cfg.ViewerSource {
	case config.SourceHTTP:
		return source.NewHTTPSource(cfg.APIURL, cfg.FetchTimeout), nopCloser{}, nil
	case config.SourcePostgres:
		client, err := db.New(cfg.DBConnStr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database client: %w", err)
		}
		return source.NewListerSource(config.SourcePostgres, client), client, nil
	case config.SourceRedis:
		client, err := redis.New(cfg.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Redis client: %w", err)
		}
		return source.NewListerSource(config.SourceRedis, client), client, nil
	case config.SourceDemo:
		return source.NewDemoSource(), nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("unknown viewer source %q", cfg.ViewerSource)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// initLogging keeps log output off the terminal the table is drawn on
func initLogging(cfg *config.Config) (io.Closer, error) {
	if cfg.LogOutput != "file" || cfg.LogFile == "" {
		logger.Discard()
		return nopCloser{}, nil
	}
	return logger.Init(logger.Config{Level: cfg.LogLevel, Output: "file", File: cfg.LogFile})
}

func run(ctx context.Context, cfg *config.Config, opts ...tea.ProgramOption) error {
	src, closer, err := newSource(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	model := tui.New(ctx, table.NewStore(src), tui.Options{
		RefreshInterval: cfg.RefreshInterval,
		FetchTimeout:    cfg.FetchTimeout,
		SourceName:      cfg.ViewerSource,
	})
	defer model.Close()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	if _, err := tea.NewProgram(model, opts...).Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to run viewer: %w", err)
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateViewer(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logCloser, err := initLogging(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	logger.Info().Str("source", cfg.ViewerSource).Msg("Viewer starting")
	if err := run(ctx, cfg, tea.WithAltScreen()); err != nil {
		logger.Error().Err(err).Msg("Viewer failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
