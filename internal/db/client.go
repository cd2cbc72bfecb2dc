package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/saviobatista/sbs-viewer/internal/stats"
	"github.com/saviobatista/sbs-viewer/internal/types"
)

type Client struct {
	db *sql.DB
}

// New creates a new database client
func New(connStr string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping verifies the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB exposes the underlying handle for the migrator
func (c *Client) DB() *sql.DB {
	return c.db
}

const aircraftColumns = `id, icao, callsign, first_seen, last_seen, message_count`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAircraft(row rowScanner) (*types.Aircraft, error) {
	var (
		ac       types.Aircraft
		callsign sql.NullString
	)
	if err := row.Scan(&ac.ID, &ac.Address, &callsign, &ac.FirstSeen, &ac.LastSeen, &ac.MessageCount); err != nil {
		return nil, err
	}
	if callsign.Valid {
		ac.Callsign = types.CallsignPtr(callsign.String)
	}
	return &ac, nil
}

// UpsertAircraft records one observation. A new aircraft starts with a
// message count of one; an existing one has its count incremented, its
// seen window widened and its callsign replaced only by a non-blank value.
func (c *Client) UpsertAircraft(ctx context.Context, obs *types.Observation) (*types.Aircraft, error) {
	query := `
		INSERT INTO aircraft (icao, callsign, first_seen, last_seen, message_count)
		VALUES ($1, $2, $3, $3, 1)
		ON CONFLICT (icao) DO UPDATE SET
			callsign = COALESCE(EXCLUDED.callsign, aircraft.callsign),
			first_seen = LEAST(aircraft.first_seen, EXCLUDED.first_seen),
			last_seen = GREATEST(aircraft.last_seen, EXCLUDED.last_seen),
			message_count = aircraft.message_count + 1
		RETURNING ` + aircraftColumns

	var callsign sql.NullString
	if cs := types.CallsignPtr(obs.Callsign); cs != nil {
		callsign = sql.NullString{String: *cs, Valid: true}
	}

	ac, err := scanAircraft(c.db.QueryRowContext(ctx, query, obs.HexIdent, callsign, obs.Timestamp))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert aircraft %s: %w", obs.HexIdent, err)
	}
	return ac, nil
}

func (c *Client) queryAircraft(ctx context.Context, query string, args ...any) ([]types.Aircraft, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	aircraft := []types.Aircraft{}
	for rows.Next() {
		ac, err := scanAircraft(rows)
		if err != nil {
			return nil, err
		}
		aircraft = append(aircraft, *ac)
	}
	return aircraft, rows.Err()
}

// ListAircraft returns the whole registry, most recently seen first.
// Ties on last seen keep id order so repeated listings are stable.
func (c *Client) ListAircraft(ctx context.Context) ([]types.Aircraft, error) {
	query := `SELECT ` + aircraftColumns + ` FROM aircraft ORDER BY last_seen DESC, id`
	aircraft, err := c.queryAircraft(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list aircraft: %w", err)
	}
	return aircraft, nil
}

// ListAircraftSince returns up to limit aircraft seen at or after since,
// most recently seen first. A zero since disables the time filter.
func (c *Client) ListAircraftSince(ctx context.Context, since time.Time, limit int) ([]types.Aircraft, error) {
	query := `
		SELECT ` + aircraftColumns + `
		FROM aircraft
		WHERE ($1::timestamptz IS NULL OR last_seen >= $1)
		ORDER BY last_seen DESC, id
		LIMIT $2`

	var cutoff sql.NullTime
	if !since.IsZero() {
		cutoff = sql.NullTime{Time: since, Valid: true}
	}

	aircraft, err := c.queryAircraft(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list aircraft: %w", err)
	}
	return aircraft, nil
}

// GetAircraft returns the aircraft with the given address or nil when it
// has never been seen
func (c *Client) GetAircraft(ctx context.Context, icao string) (*types.Aircraft, error) {
	query := `SELECT ` + aircraftColumns + ` FROM aircraft WHERE icao = $1`
	ac, err := scanAircraft(c.db.QueryRowContext(ctx, query, icao))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get aircraft %s: %w", icao, err)
	}
	return ac, nil
}

// SummaryRecord is one persisted registry summary
type SummaryRecord struct {
	RunID uuid.UUID `json:"run_id"`
	Time  time.Time `json:"time"`
	stats.Summary
}

// StoreSummary persists a summary computed by the tracker run runID
func (c *Client) StoreSummary(ctx context.Context, runID uuid.UUID, at time.Time, s stats.Summary) error {
	query := `
		INSERT INTO aircraft_summaries (
			time, run_id, total_aircraft, active_aircraft, with_callsign, total_messages
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := c.db.ExecContext(ctx, query, at, runID, s.Total, s.Active, s.WithCallsign, s.TotalMessages)
	if err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}
	return nil
}

// DeleteSummariesBefore removes summaries older than cutoff
func (c *Client) DeleteSummariesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM aircraft_summaries WHERE time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete summaries: %w", err)
	}
	return res.RowsAffected()
}

// GetSummaries retrieves summaries for a time range, newest first
func (c *Client) GetSummaries(ctx context.Context, start, end time.Time) ([]SummaryRecord, error) {
	query := `
		SELECT time, run_id, total_aircraft, active_aircraft, with_callsign, total_messages
		FROM aircraft_summaries
		WHERE time BETWEEN $1 AND $2
		ORDER BY time DESC
	`
	rows, err := c.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get summaries: %w", err)
	}
	defer rows.Close()

	records := []SummaryRecord{}
	for rows.Next() {
		var r SummaryRecord
		if err := rows.Scan(&r.Time, &r.RunID, &r.Total, &r.Active, &r.WithCallsign, &r.TotalMessages); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
