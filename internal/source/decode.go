package source

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/saviobatista/sbs-viewer/internal/types"
)

// Decode parses a JSON array of aircraft. Records that fail validation or
// repeat an already seen id or address are skipped and counted; only a
// body that is not an array fails as a whole.
func Decode(data []byte, log zerolog.Logger) ([]types.Aircraft, int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw == nil {
		// JSON null
		return nil, 0, fmt.Errorf("%w: expected array", ErrMalformed)
	}

	var records []types.Aircraft
	skipped := 0
	for i, r := range raw {
		var ac types.Aircraft
		if err := json.Unmarshal(r, &ac); err != nil {
			skipped++
			log.Warn().Err(err).Int("index", i).Msg("Skipping undecodable aircraft record")
			continue
		}
		records = append(records, ac)
	}

	out, dropped := Sanitize(records, log)
	return out, skipped + dropped, nil
}

// Sanitize normalizes callsigns and drops invalid or duplicate records
func Sanitize(records []types.Aircraft, log zerolog.Logger) ([]types.Aircraft, int) {
	out := make([]types.Aircraft, 0, len(records))
	ids := make(map[int64]struct{}, len(records))
	addrs := make(map[string]struct{}, len(records))
	skipped := 0

	for _, ac := range records {
		if ac.Callsign != nil {
			ac.Callsign = types.CallsignPtr(*ac.Callsign)
		}
		if err := ac.Validate(); err != nil {
			skipped++
			log.Warn().Err(err).Int64("id", ac.ID).Str("icao", ac.Address).Msg("Skipping invalid aircraft record")
			continue
		}
		if _, dup := ids[ac.ID]; dup {
			skipped++
			log.Warn().Int64("id", ac.ID).Msg("Skipping duplicate aircraft id")
			continue
		}
		if _, dup := addrs[ac.Address]; dup {
			skipped++
			log.Warn().Str("icao", ac.Address).Msg("Skipping duplicate aircraft address")
			continue
		}
		ids[ac.ID] = struct{}{}
		addrs[ac.Address] = struct{}{}
		out = append(out, ac)
	}
	return out, skipped
}
