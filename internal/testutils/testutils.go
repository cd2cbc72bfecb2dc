package testutils

import (
	"context"
	"fmt"
	"time"

	"github.com/saviobatista/sbs-viewer/internal/types"
)

const sbsTimeLayout = "2006/01/02,15:04:05.000"

// MockSBSMessage creates a BaseStation MSG line for testing
func MockSBSMessage(transmissionType int, hexIdent string) *types.SBSMessage {
	return mockMessage(transmissionType, hexIdent, "")
}

// MockCallsignMessage creates an identification MSG line carrying a callsign
func MockCallsignMessage(hexIdent, callsign string) *types.SBSMessage {
	return mockMessage(1, hexIdent, callsign)
}

func mockMessage(transmissionType int, hexIdent, callsign string) *types.SBSMessage {
	now := time.Now().UTC()
	stamp := now.Format(sbsTimeLayout)
	return &types.SBSMessage{
		Raw: fmt.Sprintf("MSG,%d,1,1,%s,1,%s,%s,%s,,,,,,,,0,0,0,0",
			transmissionType, hexIdent, stamp, stamp, callsign),
		Timestamp: now,
		Source:    "test-source",
	}
}

// Fleet returns five aircraft with last-seen times spread around now:
// two within five minutes, one within the hour, one hours old and one days old.
func Fleet(now time.Time) []types.Aircraft {
	return []types.Aircraft{
		{ID: 1, Address: "ABC123", Callsign: types.CallsignPtr("FIN123"), FirstSeen: now.Add(-4 * time.Hour), LastSeen: now.Add(-1 * time.Minute), MessageCount: 245},
		{ID: 2, Address: "DEF456", Callsign: types.CallsignPtr("SAS789"), FirstSeen: now.Add(-3 * time.Hour), LastSeen: now.Add(-4 * time.Minute), MessageCount: 189},
		{ID: 3, Address: "4CA123", Callsign: nil, FirstSeen: now.Add(-90 * time.Minute), LastSeen: now.Add(-20 * time.Minute), MessageCount: 67},
		{ID: 4, Address: "A1B2C3", Callsign: types.CallsignPtr("BAW456"), FirstSeen: now.Add(-6 * time.Hour), LastSeen: now.Add(-3 * time.Hour), MessageCount: 521},
		{ID: 5, Address: "123ABC", Callsign: types.CallsignPtr("LH789"), FirstSeen: now.Add(-80 * time.Hour), LastSeen: now.Add(-50 * time.Hour), MessageCount: 312},
	}
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(condition func() bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for condition")
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}
