package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/saviobatista/sbs-viewer/internal/logger"
)

// Migration is one reversible schema change
type Migration struct {
	Name    string
	UpSQL   string
	DownSQL string
}

// All lists the schema migrations in apply order
func All() []*Migration {
	return []*Migration{AircraftRegistry, AircraftSummaries}
}

// ErrNothingToRollback is returned by Rollback when no migration is applied
var ErrNothingToRollback = errors.New("no migrations to rollback")

const uniqueViolation = "23505"

// Migrator manages database migrations
type Migrator struct {
	db  *sql.DB
	log zerolog.Logger
}

// New creates a new Migrator
func New(db *sql.DB) *Migrator {
	return &Migrator{db: db, log: logger.WithComponent("migrations")}
}

// Initialize creates the bookkeeping table if it doesn't exist
func (m *Migrator) Initialize(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// Applied returns the names of applied migrations
func (m *Migrator) Applied(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT name FROM schema_migrations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			m.log.Warn().Err(cerr).Msg("Failed to close rows")
		}
	}()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// run executes statement and bookkeeping in one transaction
func (m *Migrator) run(ctx context.Context, name, statement, recordQuery string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			m.log.Warn().Err(err).Str("migration", name).Msg("Failed to roll back transaction")
		}
	}()

	if _, err := tx.ExecContext(ctx, statement); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, recordQuery, name); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	return tx.Commit()
}

// Apply applies a single migration. A migration recorded concurrently by
// another migrator counts as applied.
func (m *Migrator) Apply(ctx context.Context, migration *Migration) error {
	err := m.run(ctx, migration.Name, migration.UpSQL, `INSERT INTO schema_migrations (name) VALUES ($1)`)
	if isUniqueViolation(err) {
		m.log.Info().Str("migration", migration.Name).Msg("Migration already recorded by another process")
		return nil
	}
	return err
}

// Revert rolls back a single migration
func (m *Migrator) Revert(ctx context.Context, migration *Migration) error {
	return m.run(ctx, migration.Name, migration.DownSQL, `DELETE FROM schema_migrations WHERE name = $1`)
}

// Migrate applies all pending migrations and returns how many ran
func (m *Migrator) Migrate(ctx context.Context, migrations []*Migration) (int, error) {
	if err := m.Initialize(ctx); err != nil {
		return 0, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	n := 0
	for _, migration := range migrations {
		if applied[migration.Name] {
			continue
		}
		if err := m.Apply(ctx, migration); err != nil {
			return n, fmt.Errorf("failed to apply migration %s: %w", migration.Name, err)
		}
		n++
		m.log.Info().Str("migration", migration.Name).Msg("Applied migration")
	}
	return n, nil
}

// Rollback reverts the most recent applied migration
func (m *Migrator) Rollback(ctx context.Context, migrations []*Migration) error {
	applied, err := m.Applied(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	var last *Migration
	for i := len(migrations) - 1; i >= 0; i-- {
		if applied[migrations[i].Name] {
			last = migrations[i]
			break
		}
	}
	if last == nil {
		return ErrNothingToRollback
	}

	if err := m.Revert(ctx, last); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", last.Name, err)
	}
	m.log.Info().Str("migration", last.Name).Msg("Rolled back migration")
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
