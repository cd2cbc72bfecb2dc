package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saviobatista/sbs-viewer/internal/logger"
	"github.com/saviobatista/sbs-viewer/internal/recency"
	"github.com/saviobatista/sbs-viewer/internal/types"
)

// Summary holds the aggregate counters shown above the aircraft table.
// It is always computed over the full snapshot, never a filtered view.
type Summary struct {
	Total         int   `json:"total_aircraft"`
	Active        int   `json:"active_1h"`
	WithCallsign  int   `json:"with_callsign"`
	TotalMessages int64 `json:"total_messages"`
}

// Compute aggregates a snapshot relative to now
func Compute(snapshot []types.Aircraft, now time.Time) Summary {
	s := Summary{Total: len(snapshot)}
	for i := range snapshot {
		ac := &snapshot[i]
		if recency.IsActive(ac.LastSeen, now) {
			s.Active++
		}
		if ac.HasCallsign() {
			s.WithCallsign++
		}
		s.TotalMessages += ac.MessageCount
	}
	return s
}

// CountSeenWithin counts aircraft last seen less than window before now
func CountSeenWithin(snapshot []types.Aircraft, now time.Time, window time.Duration) int {
	n := 0
	for i := range snapshot {
		if recency.Within(snapshot[i].LastSeen, now, window) {
			n++
		}
	}
	return n
}

// String returns a string representation of the summary
func (s Summary) String() string {
	return fmt.Sprintf(
		"Total Aircraft: %d\n"+
			"Active (1h): %d\n"+
			"With Callsign: %d\n"+
			"Total Messages: %d",
		s.Total, s.Active, s.WithCallsign, s.TotalMessages,
	)
}

// SnapshotSource lists the full aircraft registry
type SnapshotSource interface {
	ListAircraft(ctx context.Context) ([]types.Aircraft, error)
}

// SummaryStore persists computed summaries
type SummaryStore interface {
	StoreSummary(ctx context.Context, runID uuid.UUID, at time.Time, s Summary) error
	DeleteSummariesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Recorder periodically aggregates the registry and persists the result
type Recorder struct {
	source    SnapshotSource
	store     SummaryStore
	runID     uuid.UUID
	retention time.Duration
	now       func() time.Time

	mu   sync.RWMutex
	last Summary
}

// NewRecorder creates a recorder; retention <= 0 disables pruning
func NewRecorder(source SnapshotSource, store SummaryStore, runID uuid.UUID, retention time.Duration) *Recorder {
	return &Recorder{
		source:    source,
		store:     store,
		runID:     runID,
		retention: retention,
		now:       time.Now,
	}
}

// Persist computes the current summary and stores it
func (r *Recorder) Persist(ctx context.Context) error {
	if r.store == nil {
		return fmt.Errorf("summary store not set")
	}

	snapshot, err := r.source.ListAircraft(ctx)
	if err != nil {
		return fmt.Errorf("failed to list aircraft: %w", err)
	}

	now := r.now()
	summary := Compute(snapshot, now)

	if err := r.store.StoreSummary(ctx, r.runID, now, summary); err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}

	r.mu.Lock()
	r.last = summary
	r.mu.Unlock()

	if r.retention > 0 {
		if _, err := r.store.DeleteSummariesBefore(ctx, now.Add(-r.retention)); err != nil {
			return fmt.Errorf("failed to prune summaries: %w", err)
		}
	}

	return nil
}

// Last returns the most recently persisted summary
func (r *Recorder) Last() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// StartPersistence persists on every tick until ctx is done
func (r *Recorder) StartPersistence(ctx context.Context, interval time.Duration) {
	log := logger.WithComponent("stats")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final persistence before shutdown
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := r.Persist(final); err != nil {
				log.Error().Err(err).Msg("Failed to persist final summary")
			}
			cancel()
			return
		case <-ticker.C:
			if err := r.Persist(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to persist summary")
				continue
			}
			last := r.Last()
			log.Info().
				Int("total_aircraft", last.Total).
				Int("active_1h", last.Active).
				Int64("total_messages", last.TotalMessages).
				Msg("Summary persisted")
		}
	}
}
