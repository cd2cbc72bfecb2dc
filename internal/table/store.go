package table

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/saviobatista/sbs-viewer/internal/logger"
	"github.com/saviobatista/sbs-viewer/internal/types"
)

// Source produces a full aircraft snapshot or fails
type Source interface {
	FetchSnapshot(ctx context.Context) ([]types.Aircraft, error)
}

// ViewState is the user-controlled part of the table state
type ViewState struct {
	Query         string
	SortField     Field
	SortDirection Direction
	Loading       bool
	// Error is empty when the last committed refresh succeeded
	Error string
}

// State is an immutable copy of everything a render needs.
// Snapshot must not be modified by consumers.
type State struct {
	ViewState
	Snapshot []types.Aircraft
	// Loaded is set once any refresh has committed a snapshot
	Loaded bool
}

// Ticket identifies one refresh request
type Ticket struct {
	gen uint64
}

// Store owns the current snapshot and view state. All mutations go through
// SetQuery, RequestSort and refresh completion; subscribers are notified
// after each one.
type Store struct {
	source Source
	log    zerolog.Logger

	mu        sync.Mutex
	state     State
	requested uint64
	committed uint64
	subs      map[int]func(State)
	nextSub   int
	// version counts committed changes; delivery skips anything older
	// than the last version handed to subscribers
	version uint64

	notifyMu  sync.Mutex
	delivered uint64
}

// NewStore creates a store in its initial state: no query, sorted by last
// seen descending, loading.
func NewStore(source Source) *Store {
	return &Store{
		source: source,
		log:    logger.WithComponent("table"),
		state: State{
			ViewState: ViewState{
				SortField:     FieldLastSeen,
				SortDirection: Descending,
				Loading:       true,
			},
		},
		subs: make(map[int]func(State)),
	}
}

// State returns the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to receive new states. Calls are serialized and
// never go back in time: when changes race, a subscriber may skip an
// intermediate state but always ends on the latest one. fn must not
// mutate the store. The returned func removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SetQuery replaces the search query
func (s *Store) SetQuery(query string) {
	s.mutate(func(st *State) bool {
		if st.Query == query {
			return false
		}
		st.Query = query
		return true
	})
}

// RequestSort applies a column selection using the NextSort toggle rule
func (s *Store) RequestSort(field Field) {
	s.mutate(func(st *State) bool {
		st.SortField, st.SortDirection = NextSort(st.SortField, st.SortDirection, field)
		return true
	})
}

// BeginRefresh marks the store loading and returns the ticket that the
// matching Complete call must present.
func (s *Store) BeginRefresh() Ticket {
	var t Ticket
	s.mutate(func(st *State) bool {
		s.requested++
		t = Ticket{gen: s.requested}
		st.Loading = true
		return true
	})
	return t
}

// Fetch asks the source for a snapshot without touching store state
func (s *Store) Fetch(ctx context.Context) ([]types.Aircraft, error) {
	return s.source.FetchSnapshot(ctx)
}

// Complete commits the outcome of the refresh identified by t. A result
// older than one already committed is discarded and Complete returns false.
// On error the previous snapshot stays current.
func (s *Store) Complete(t Ticket, snapshot []types.Aircraft, err error) bool {
	committed := false
	s.mutate(func(st *State) bool {
		if t.gen == 0 || t.gen > s.requested || t.gen < s.committed {
			return false
		}
		s.committed = t.gen
		committed = true

		if err != nil {
			st.Error = "Failed to load aircraft data: " + err.Error()
		} else {
			st.Snapshot = slices.Clone(snapshot)
			st.Error = ""
			st.Loaded = true
		}
		if t.gen == s.requested {
			st.Loading = false
		}
		return true
	})

	switch {
	case !committed:
		s.log.Debug().Uint64("generation", t.gen).Msg("Discarded superseded refresh")
	case err != nil:
		s.log.Warn().Err(err).Uint64("generation", t.gen).Msg("Refresh failed, keeping previous snapshot")
	default:
		s.log.Debug().Uint64("generation", t.gen).Int("aircraft", len(snapshot)).Msg("Snapshot committed")
	}
	return committed
}

// Refresh fetches and commits a new snapshot. Failures are recorded in the
// state, never returned.
func (s *Store) Refresh(ctx context.Context) {
	t := s.BeginRefresh()
	snapshot, err := s.Fetch(ctx)
	s.Complete(t, snapshot, err)
}

// mutate applies fn under the lock and notifies subscribers when it reports a change
func (s *Store) mutate(fn func(st *State) bool) {
	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return
	}
	s.version++
	version := s.version
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if version <= s.delivered {
		return
	}

	// re-read so a delivery that lost the race still hands out the newest state
	s.mu.Lock()
	st := s.state
	version = s.version
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	s.delivered = version
	for _, sub := range subs {
		sub(st)
	}
}
