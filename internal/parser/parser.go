package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/saviobatista/sbs-viewer/internal/types"
)

// TransmissionType is the second field of a BaseStation MSG record
type TransmissionType int

const (
	TransESIdentification TransmissionType = 1
	TransESSurfacePos     TransmissionType = 2
	TransESAirbornePos    TransmissionType = 3
	TransESAirborneVel    TransmissionType = 4
	TransSurveillanceAlt  TransmissionType = 5
	TransSurveillanceID   TransmissionType = 6
	TransAirToAir         TransmissionType = 7
	TransAllCallReply     TransmissionType = 8
)

// BaseStation field positions
const (
	fieldMessageType      = 0
	fieldTransmissionType = 1
	fieldHexIdent         = 4
	fieldCallsign         = 10
	minFields             = 11
	msgFields             = 22
)

// ParseMessage parses a raw SBS line into an observation of one aircraft.
// It returns nil without error for records that do not describe an aircraft
// (SEL, AIR, STA, CLK).
func ParseMessage(raw string, timestamp time.Time) (*types.Observation, error) {
	fields := strings.Split(strings.TrimSpace(raw), ",")
	if len(fields) < minFields {
		return nil, fmt.Errorf("invalid message format: expected at least %d fields, got %d", minFields, len(fields))
	}

	obs := &types.Observation{Timestamp: timestamp}

	switch fields[fieldMessageType] {
	case "MSG":
		if len(fields) < msgFields {
			return nil, fmt.Errorf("invalid MSG format: expected %d fields, got %d", msgFields, len(fields))
		}
		tt, err := strconv.Atoi(fields[fieldTransmissionType])
		if err != nil {
			return nil, fmt.Errorf("invalid transmission type: %w", err)
		}
		if tt < int(TransESIdentification) || tt > int(TransAllCallReply) {
			return nil, fmt.Errorf("unknown transmission type: %d", tt)
		}
		obs.TransmissionType = tt
		// Only identification messages carry a trustworthy callsign
		if TransmissionType(tt) == TransESIdentification {
			obs.Callsign = strings.TrimSpace(fields[fieldCallsign])
		}
	case "ID":
		obs.Callsign = strings.TrimSpace(fields[fieldCallsign])
	case "SEL", "AIR", "STA", "CLK":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown message type: %q", fields[fieldMessageType])
	}

	obs.HexIdent = strings.ToUpper(strings.TrimSpace(fields[fieldHexIdent]))
	if !isHexIdent(obs.HexIdent) {
		return nil, fmt.Errorf("invalid hex ident: %q", fields[fieldHexIdent])
	}

	return obs, nil
}

func isHexIdent(s string) bool {
	if len(s) != 6 {
		return false
	}
	_, err := strconv.ParseUint(s, 16, 32)
	return err == nil
}
