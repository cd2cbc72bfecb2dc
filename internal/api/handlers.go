package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/saviobatista/sbs-viewer/internal/stats"
	"github.com/saviobatista/sbs-viewer/internal/table"
	"github.com/saviobatista/sbs-viewer/internal/types"
)

const (
	defaultActiveMinutes = 30
	defaultLimit         = 1000
	maxLimit             = 10000
	defaultHistoryWindow = 24 * time.Hour
)

// TruncatedHeader is set on /api/aircraft responses whose search or sort
// only covered the maxLimit most recently seen aircraft
const TruncatedHeader = "X-Aircraft-Scan-Truncated"

// StatsResponse is the body of /api/stats
type StatsResponse struct {
	TotalAircraft int   `json:"total_aircraft"`
	Active1h      int   `json:"active_1h"`
	Active30m     int   `json:"active_30m"`
	TotalMessages int64 `json:"total_messages"`
	WithCallsign  int   `json:"with_callsign"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "ADS-B API Server", "status": "running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

// listQuery holds the parsed /api/aircraft parameters
type listQuery struct {
	activeOnly bool
	minutes    int
	limit      int
	search     string
	sorted     bool
	field      table.Field
	dir        table.Direction
}

func intParam(q url.Values, name string, def, min, max int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", name, min, max)
	}
	return n, nil
}

func parseListQuery(q url.Values) (listQuery, error) {
	lq := listQuery{search: q.Get("q"), dir: table.Descending}
	var err error

	if v := q.Get("active_only"); v != "" {
		if lq.activeOnly, err = strconv.ParseBool(v); err != nil {
			return lq, fmt.Errorf("active_only must be a boolean")
		}
	}
	if lq.minutes, err = intParam(q, "minutes", defaultActiveMinutes, 1, 7*24*60); err != nil {
		return lq, err
	}
	if lq.limit, err = intParam(q, "limit", defaultLimit, 1, maxLimit); err != nil {
		return lq, err
	}

	if v := q.Get("sort"); v != "" {
		f, ok := table.ParseField(v)
		if !ok {
			return lq, fmt.Errorf("unknown sort field %q", v)
		}
		lq.field, lq.sorted = f, true
	}
	if v := q.Get("order"); v != "" {
		d, ok := table.ParseDirection(v)
		if !ok {
			return lq, fmt.Errorf("order must be asc or desc")
		}
		lq.dir = d
	}
	return lq, nil
}

func (s *Server) handleListAircraft(w http.ResponseWriter, r *http.Request) {
	lq, err := parseListQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var since time.Time
	if lq.activeOnly {
		since = s.now().Add(-time.Duration(lq.minutes) * time.Minute)
	}
	// Search and sort run over at most maxLimit of the most recently seen
	// aircraft; older matches past that window are not considered and the
	// response is marked with TruncatedHeader.
	scanned := lq.search != "" || lq.sorted
	fetch := lq.limit
	if scanned {
		fetch = maxLimit
	}

	aircraft, err := s.registry.ListAircraftSince(r.Context(), since, fetch)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list aircraft")
		s.writeError(w, http.StatusInternalServerError, "Failed to list aircraft")
		return
	}
	if scanned && len(aircraft) >= maxLimit {
		w.Header().Set(TruncatedHeader, "true")
		s.log.Warn().Int("scanned", len(aircraft)).Msg("Aircraft search hit the scan limit")
	}

	aircraft = table.Filter(aircraft, lq.search)
	if lq.sorted {
		aircraft = table.Sort(aircraft, lq.field, lq.dir)
	}
	if len(aircraft) > lq.limit {
		aircraft = aircraft[:lq.limit]
	}
	if aircraft == nil {
		aircraft = []types.Aircraft{}
	}
	s.writeJSON(w, http.StatusOK, aircraft)
}

func (s *Server) handleGetAircraft(w http.ResponseWriter, r *http.Request) {
	icao := strings.ToUpper(mux.Vars(r)["icao"])

	if s.cache != nil {
		ac, err := s.cache.GetAircraft(r.Context(), icao)
		if err != nil {
			s.log.Warn().Err(err).Str("icao", icao).Msg("Cache lookup failed, using registry")
		} else if ac != nil {
			s.writeJSON(w, http.StatusOK, ac)
			return
		}
	}

	ac, err := s.registry.GetAircraft(r.Context(), icao)
	if err != nil {
		s.log.Error().Err(err).Str("icao", icao).Msg("Failed to get aircraft")
		s.writeError(w, http.StatusInternalServerError, "Failed to get aircraft")
		return
	}
	if ac == nil {
		s.writeError(w, http.StatusNotFound, "Aircraft not found")
		return
	}
	s.writeJSON(w, http.StatusOK, ac)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	aircraft, err := s.registry.ListAircraft(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list aircraft for stats")
		s.writeError(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}

	now := s.now()
	sum := stats.Compute(aircraft, now)
	s.writeJSON(w, http.StatusOK, StatsResponse{
		TotalAircraft: sum.Total,
		Active1h:      sum.Active,
		Active30m:     stats.CountSeenWithin(aircraft, now, 30*time.Minute),
		TotalMessages: sum.TotalMessages,
		WithCallsign:  sum.WithCallsign,
	})
}

func parseTimeParam(q url.Values, name string, def time.Time) (time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s time format", name)
	}
	return t, nil
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	q := r.URL.Query()

	start, err := parseTimeParam(q, "start", now.Add(-defaultHistoryWindow))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseTimeParam(q, "end", now)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if end.Before(start) {
		s.writeError(w, http.StatusBadRequest, "end must not be before start")
		return
	}

	records, err := s.history.GetSummaries(r.Context(), start, end)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get summaries")
		s.writeError(w, http.StatusInternalServerError, "Failed to get statistics history")
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}
