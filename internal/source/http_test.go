package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != AircraftPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSource_FetchSnapshot(t *testing.T) {
	srv := newServer(t, http.StatusOK, `[`+validRecord+`]`)
	src := NewHTTPSource(srv.URL+"/", time.Second)

	got, err := src.FetchSnapshot(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ABC123", got[0].Address)
	assert.True(t, got[0].LastSeen.Equal(mustTime(t, "2025-11-08T14:43:00Z")))
}

func TestHTTPSource_ServerError(t *testing.T) {
	srv := newServer(t, http.StatusServiceUnavailable, `{"detail":"down"}`)

	_, err := NewHTTPSource(srv.URL, time.Second).FetchSnapshot(context.Background())

	assert.True(t, errors.Is(err, ErrUnreachable), "got %v", err)
}

func TestHTTPSource_Malformed(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"aircraft":[]}`)

	_, err := NewHTTPSource(srv.URL, time.Second).FetchSnapshot(context.Background())

	assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
}

func TestHTTPSource_ClientError(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusNoContent} {
		srv := newServer(t, status, `{}`)

		_, err := NewHTTPSource(srv.URL, time.Second).FetchSnapshot(context.Background())

		require.Error(t, err, status)
		assert.True(t, errors.Is(err, ErrUnreachable), "status %d: got %v", status, err)
		assert.False(t, errors.Is(err, ErrMalformed), status)
		assert.Contains(t, err.Error(), http.StatusText(status))
	}
}

func TestHTTPSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPSource(url, time.Second).FetchSnapshot(context.Background())

	assert.True(t, errors.Is(err, ErrUnreachable), "got %v", err)
}

func TestHTTPSource_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	_, err := NewHTTPSource(srv.URL, 50*time.Millisecond).FetchSnapshot(context.Background())

	assert.True(t, errors.Is(err, ErrUnreachable), "got %v", err)
}
