package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/saviobatista/sbs-viewer/internal/config"
	"github.com/saviobatista/sbs-viewer/internal/db/migrations"
	"github.com/saviobatista/sbs-viewer/internal/logger"
)

// run applies every pending migration, or reverts the latest one when
// rollback is set
func run(ctx context.Context, db *sql.DB, rollback bool) error {
	migrator := migrations.New(db)
	all := migrations.All()

	if rollback {
		err := migrator.Rollback(ctx, all)
		if errors.Is(err, migrations.ErrNothingToRollback) {
			logger.Info().Msg("Nothing to roll back")
			return nil
		}
		return err
	}

	n, err := migrator.Migrate(ctx, all)
	if err != nil {
		return err
	}
	logger.Info().Int("applied", n).Msg("Migrations complete")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	dbURL := flag.String("db", cfg.DBConnStr, "Database connection string")
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	timeout := flag.Duration("timeout", time.Minute, "Overall migration timeout")
	flag.Parse()

	if _, err := logger.Init(logger.Config{Level: cfg.LogLevel, Output: cfg.LogOutput, File: cfg.LogFile}); err != nil {
		logger.Error().Err(err).Msg("Failed to initialize logger")
		os.Exit(1)
	}

	if err := migrate(*dbURL, *rollback, *timeout); err != nil {
		logger.Error().Err(err).Msg("Migration failed")
		os.Exit(1)
	}
}

func migrate(dbURL string, rollback bool, timeout time.Duration) error {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return run(ctx, db, rollback)
}
