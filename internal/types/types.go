package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SBSMessage represents a raw SBS message
type SBSMessage struct {
	Raw       string    `json:"raw"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// Observation is the registry-relevant content of a single SBS message
type Observation struct {
	HexIdent         string    `json:"hex_ident"`
	Callsign         string    `json:"callsign,omitempty"`
	TransmissionType int       `json:"transmission_type"`
	Timestamp        time.Time `json:"timestamp"`
}

// Aircraft is one tracked aircraft as served to the table.
// A nil Callsign means the callsign is unknown.
type Aircraft struct {
	ID           int64     `json:"id"`
	Address      string    `json:"icao"`
	Callsign     *string   `json:"callsign"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
	MessageCount int64     `json:"message_count"`
}

var (
	ErrMissingAddress   = errors.New("aircraft address is required")
	ErrNegativeCount    = errors.New("message count is negative")
	ErrSeenOutOfOrder   = errors.New("last seen is before first seen")
	ErrMissingTimestamp = errors.New("aircraft timestamps are required")
)

// Validate checks the entity invariants of an aircraft record
func (a *Aircraft) Validate() error {
	if strings.TrimSpace(a.Address) == "" {
		return ErrMissingAddress
	}
	if a.MessageCount < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeCount, a.MessageCount)
	}
	if a.FirstSeen.IsZero() || a.LastSeen.IsZero() {
		return ErrMissingTimestamp
	}
	if a.LastSeen.Before(a.FirstSeen) {
		return ErrSeenOutOfOrder
	}
	return nil
}

// HasCallsign reports whether the aircraft carries a non-empty callsign
func (a *Aircraft) HasCallsign() bool {
	return a.Callsign != nil && *a.Callsign != ""
}

// CallsignPtr normalizes a raw callsign; blank values become nil
func CallsignPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
