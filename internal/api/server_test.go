package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saviobatista/sbs-viewer/internal/db"
	"github.com/saviobatista/sbs-viewer/internal/stats"
	"github.com/saviobatista/sbs-viewer/internal/testutils"
	"github.com/saviobatista/sbs-viewer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refNow = time.Date(2025, 11, 8, 14, 45, 0, 0, time.UTC)

type mockRegistry struct {
	aircraft  []types.Aircraft
	err       error
	lastSince time.Time
	lastLimit int
}

func (m *mockRegistry) ListAircraft(ctx context.Context) ([]types.Aircraft, error) {
	return m.aircraft, m.err
}

func (m *mockRegistry) ListAircraftSince(ctx context.Context, since time.Time, limit int) ([]types.Aircraft, error) {
	m.lastSince, m.lastLimit = since, limit
	if m.err != nil {
		return nil, m.err
	}
	var out []types.Aircraft
	for _, ac := range m.aircraft {
		if !since.IsZero() && ac.LastSeen.Before(since) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, ac)
	}
	return out, nil
}

func (m *mockRegistry) GetAircraft(ctx context.Context, icao string) (*types.Aircraft, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.aircraft {
		if m.aircraft[i].Address == icao {
			return &m.aircraft[i], nil
		}
	}
	return nil, nil
}

type mockHistory struct {
	records []db.SummaryRecord
	start   time.Time
	end     time.Time
}

func (m *mockHistory) GetSummaries(ctx context.Context, start, end time.Time) ([]db.SummaryRecord, error) {
	m.start, m.end = start, end
	return m.records, nil
}

func newTestServer(reg Registry, options ...func(*Server)) *Server {
	s := NewServer(reg, options...)
	s.now = func() time.Time { return refNow }
	return s
}

func serve(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeAircraft(t *testing.T, rec *httptest.ResponseRecorder) []types.Aircraft {
	t.Helper()
	var out []types.Aircraft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func addresses(aircraft []types.Aircraft) []string {
	out := make([]string, len(aircraft))
	for i, ac := range aircraft {
		out[i] = ac.Address
	}
	return out
}

func TestServer_Root(t *testing.T) {
	rec := serve(t, newTestServer(&mockRegistry{}), http.MethodGet, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"ADS-B API Server","status":"running"}`, rec.Body.String())
}

func TestServer_Health(t *testing.T) {
	rec := serve(t, newTestServer(&mockRegistry{}), http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","timestamp":"2025-11-08T14:45:00Z"}`, rec.Body.String())
}

func TestServer_ListAircraft(t *testing.T) {
	reg := &mockRegistry{aircraft: testutils.Fleet(refNow)}
	rec := serve(t, newTestServer(reg), http.MethodGet, "/api/aircraft")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Len(t, decodeAircraft(t, rec), 5)
	assert.True(t, reg.lastSince.IsZero())
	assert.Equal(t, defaultLimit, reg.lastLimit)
}

func TestServer_ListAircraft_WireShape(t *testing.T) {
	cs := "FIN123"
	reg := &mockRegistry{aircraft: []types.Aircraft{
		{ID: 1, Address: "ABC123", Callsign: &cs, FirstSeen: refNow.Add(-time.Hour), LastSeen: refNow, MessageCount: 245},
		{ID: 3, Address: "4CA123", FirstSeen: refNow.Add(-time.Hour), LastSeen: refNow, MessageCount: 67},
	}}
	rec := serve(t, newTestServer(reg), http.MethodGet, "/api/aircraft")

	assert.JSONEq(t, `[
		{"id":1,"icao":"ABC123","callsign":"FIN123","first_seen":"2025-11-08T13:45:00Z","last_seen":"2025-11-08T14:45:00Z","message_count":245},
		{"id":3,"icao":"4CA123","callsign":null,"first_seen":"2025-11-08T13:45:00Z","last_seen":"2025-11-08T14:45:00Z","message_count":67}
	]`, rec.Body.String())
}

func TestServer_ListAircraft_ActiveOnly(t *testing.T) {
	reg := &mockRegistry{aircraft: testutils.Fleet(refNow)}
	rec := serve(t, newTestServer(reg), http.MethodGet, "/api/aircraft?active_only=true&minutes=10")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ABC123", "DEF456"}, addresses(decodeAircraft(t, rec)))
	assert.Equal(t, refNow.Add(-10*time.Minute), reg.lastSince)
}

func TestServer_ListAircraft_SearchSortLimit(t *testing.T) {
	reg := &mockRegistry{aircraft: testutils.Fleet(refNow)}
	rec := serve(t, newTestServer(reg), http.MethodGet, "/api/aircraft?q=123&sort=icao&order=asc&limit=2")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"123ABC", "4CA123"}, addresses(decodeAircraft(t, rec)))
	assert.Equal(t, maxLimit, reg.lastLimit)
}

func TestServer_ListAircraft_EmptyIsArray(t *testing.T) {
	rec := serve(t, newTestServer(&mockRegistry{}), http.MethodGet, "/api/aircraft")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServer_ListAircraft_BadParams(t *testing.T) {
	for _, target := range []string{
		"/api/aircraft?active_only=maybe",
		"/api/aircraft?minutes=0",
		"/api/aircraft?limit=abc",
		"/api/aircraft?limit=100000",
		"/api/aircraft?sort=altitude",
		"/api/aircraft?order=up",
	} {
		rec := serve(t, newTestServer(&mockRegistry{}), http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), `"error"`, target)
	}
}

func TestServer_ListAircraft_RegistryError(t *testing.T) {
	rec := serve(t, newTestServer(&mockRegistry{err: errors.New("db down")}), http.MethodGet, "/api/aircraft")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestServer_GetAircraft(t *testing.T) {
	s := newTestServer(&mockRegistry{aircraft: testutils.Fleet(refNow)})

	rec := serve(t, s, http.MethodGet, "/api/aircraft/def456")
	require.Equal(t, http.StatusOK, rec.Code)
	var ac types.Aircraft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ac))
	assert.Equal(t, int64(2), ac.ID)

	rec = serve(t, s, http.MethodGet, "/api/aircraft/FFFFFF")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Aircraft not found"}`, rec.Body.String())
}

func TestServer_ListAircraftScanLimit(t *testing.T) {
	many := make([]types.Aircraft, maxLimit+5)
	for i := range many {
		many[i] = types.Aircraft{
			ID:           int64(i + 1),
			Address:      fmt.Sprintf("%06X", i+1),
			FirstSeen:    refNow.Add(-time.Hour),
			LastSeen:     refNow.Add(-time.Duration(i) * time.Second),
			MessageCount: 1,
		}
	}
	reg := &mockRegistry{aircraft: many}
	s := newTestServer(reg)

	rec := serve(t, s, http.MethodGet, "/api/aircraft?q=0000&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxLimit, reg.lastLimit)
	assert.Equal(t, "true", rec.Header().Get(TruncatedHeader))

	var got []types.Aircraft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 5)

	// a plain listing is not a scan
	rec = serve(t, s, http.MethodGet, "/api/aircraft?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(TruncatedHeader))

	// a scan that fits under the limit is complete
	small := newTestServer(&mockRegistry{aircraft: testutils.Fleet(refNow)})
	rec = serve(t, small, http.MethodGet, "/api/aircraft?q=sas")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(TruncatedHeader))
}

type mockCache struct {
	aircraft map[string]types.Aircraft
	err      error
	lookups  int
}

func (m *mockCache) GetAircraft(ctx context.Context, icao string) (*types.Aircraft, error) {
	m.lookups++
	if m.err != nil {
		return nil, m.err
	}
	ac, ok := m.aircraft[icao]
	if !ok {
		return nil, nil
	}
	return &ac, nil
}

func TestServer_GetAircraftFromCache(t *testing.T) {
	fleet := testutils.Fleet(refNow)
	cached := fleet[0]
	cached.MessageCount = 999
	cache := &mockCache{aircraft: map[string]types.Aircraft{"ABC123": cached}}
	s := newTestServer(&mockRegistry{aircraft: fleet}, WithCache(cache))

	rec := serve(t, s, http.MethodGet, "/api/aircraft/abc123")
	require.Equal(t, http.StatusOK, rec.Code)
	var ac types.Aircraft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ac))
	assert.Equal(t, int64(999), ac.MessageCount, "served from the cache")

	// cache miss falls through to the registry
	rec = serve(t, s, http.MethodGet, "/api/aircraft/DEF456")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ac))
	assert.Equal(t, int64(2), ac.ID)
	assert.Equal(t, 2, cache.lookups)
}

func TestServer_GetAircraftCacheErrorFallsBack(t *testing.T) {
	cache := &mockCache{err: errors.New("redis down")}
	s := newTestServer(&mockRegistry{aircraft: testutils.Fleet(refNow)}, WithCache(cache))

	rec := serve(t, s, http.MethodGet, "/api/aircraft/ABC123")
	require.Equal(t, http.StatusOK, rec.Code)
	var ac types.Aircraft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ac))
	assert.Equal(t, int64(245), ac.MessageCount)

	rec = serve(t, s, http.MethodGet, "/api/aircraft/FFFFFF")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Stats(t *testing.T) {
	rec := serve(t, newTestServer(&mockRegistry{aircraft: testutils.Fleet(refNow)}), http.MethodGet, "/api/stats")

	require.Equal(t, http.StatusOK, rec.Code)
	var got StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, StatsResponse{
		TotalAircraft: 5,
		Active1h:      3,
		Active30m:     3,
		TotalMessages: 1334,
		WithCallsign:  4,
	}, got)
}

func TestServer_StatsHistory(t *testing.T) {
	runID := uuid.New()
	hist := &mockHistory{records: []db.SummaryRecord{
		{RunID: runID, Time: refNow, Summary: stats.Summary{Total: 5, Active: 3, WithCallsign: 4, TotalMessages: 1334}},
	}}
	s := newTestServer(&mockRegistry{}, WithHistory(hist))

	rec := serve(t, s, http.MethodGet, "/api/stats/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, refNow.Add(-defaultHistoryWindow), hist.start)
	assert.Equal(t, refNow, hist.end)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, runID.String(), got[0]["run_id"])
	assert.EqualValues(t, 1334, got[0]["total_messages"])

	rec = serve(t, s, http.MethodGet, "/api/stats/history?start=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, s, http.MethodGet, "/api/stats/history?start=2025-11-08T14:00:00Z&end=2025-11-08T13:00:00Z")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_StatsHistoryDisabled(t *testing.T) {
	rec := serve(t, newTestServer(&mockRegistry{}), http.MethodGet, "/api/stats/history")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Preflight(t *testing.T) {
	rec := serve(t, newTestServer(&mockRegistry{}), http.MethodOptions, "/api/aircraft")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}
