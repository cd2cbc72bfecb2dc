package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/saviobatista/sbs-viewer/internal/testutils"
	"github.com/saviobatista/sbs-viewer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLister struct {
	aircraft []types.Aircraft
	err      error
}

func (m *mockLister) ListAircraft(ctx context.Context) ([]types.Aircraft, error) {
	return m.aircraft, m.err
}

func TestListerSource_FetchSnapshot(t *testing.T) {
	fleet := testutils.Fleet(time.Now())
	fleet = append(fleet, types.Aircraft{ID: 6, Address: ""})

	got, err := NewListerSource("postgres", &mockLister{aircraft: fleet}).FetchSnapshot(context.Background())

	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestListerSource_Error(t *testing.T) {
	src := NewListerSource("redis", &mockLister{err: errors.New("connection refused")})

	_, err := src.FetchSnapshot(context.Background())

	assert.True(t, errors.Is(err, ErrUnreachable))
	assert.Contains(t, err.Error(), "redis")
}

func TestStaticSource(t *testing.T) {
	fixed := testutils.Fleet(time.Now())
	src := NewStaticSource(func() []types.Aircraft { return fixed }, 0)

	got, err := src.FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixed, got)

	got[0].Address = "CHANGED"
	assert.Equal(t, "ABC123", fixed[0].Address)
}

func TestStaticSource_Cancelled(t *testing.T) {
	src := NewStaticSource(func() []types.Aircraft { return nil }, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.FetchSnapshot(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDemoAircraft(t *testing.T) {
	now := time.Date(2025, 11, 8, 14, 45, 0, 0, time.UTC)
	demo := DemoAircraft(now)

	require.Len(t, demo, 5)
	var total int64
	for i := range demo {
		require.NoError(t, demo[i].Validate())
		total += demo[i].MessageCount
	}
	assert.Equal(t, int64(1334), total)
	assert.Nil(t, demo[2].Callsign)
}
