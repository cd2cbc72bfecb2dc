package source

import (
	"context"
	"slices"
	"time"

	"github.com/saviobatista/sbs-viewer/internal/types"
)

// DemoLatency is the simulated round trip of the demo source
const DemoLatency = 500 * time.Millisecond

// StaticSource serves a fixed snapshot after a delay
type StaticSource struct {
	aircraft func() []types.Aircraft
	delay    time.Duration
}

// NewStaticSource returns aircraft from gen on every fetch
func NewStaticSource(gen func() []types.Aircraft, delay time.Duration) *StaticSource {
	return &StaticSource{aircraft: gen, delay: delay}
}

// NewDemoSource serves DemoAircraft relative to the time of each fetch
func NewDemoSource() *StaticSource {
	return NewStaticSource(func() []types.Aircraft {
		return DemoAircraft(time.Now())
	}, DemoLatency)
}

// FetchSnapshot implements table.Source
func (s *StaticSource) FetchSnapshot(ctx context.Context) ([]types.Aircraft, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return slices.Clone(s.aircraft()), nil
}

// DemoAircraft returns five sample aircraft with activity relative to now
func DemoAircraft(now time.Time) []types.Aircraft {
	return []types.Aircraft{
		{ID: 1, Address: "ABC123", Callsign: types.CallsignPtr("FIN123"), FirstSeen: now.Add(-2 * time.Hour), LastSeen: now.Add(-2 * time.Minute), MessageCount: 245},
		{ID: 2, Address: "DEF456", Callsign: types.CallsignPtr("SAS789"), FirstSeen: now.Add(-90 * time.Minute), LastSeen: now.Add(-1 * time.Minute), MessageCount: 189},
		{ID: 3, Address: "4CA123", FirstSeen: now.Add(-45 * time.Minute), LastSeen: now.Add(-8 * time.Minute), MessageCount: 67},
		{ID: 4, Address: "A1B2C3", Callsign: types.CallsignPtr("BAW456"), FirstSeen: now.Add(-3 * time.Hour), LastSeen: now.Add(-30 * time.Second), MessageCount: 521},
		{ID: 5, Address: "123ABC", Callsign: types.CallsignPtr("LH789"), FirstSeen: now.Add(-5 * time.Hour), LastSeen: now.Add(-3 * time.Hour), MessageCount: 312},
	}
}
