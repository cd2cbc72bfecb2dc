package table

import (
	"slices"
	"strings"

	"github.com/saviobatista/sbs-viewer/internal/types"
	"golang.org/x/text/cases"
)

// Filter returns the aircraft whose address or callsign contains query,
// ignoring case and surrounding whitespace. A blank query keeps everything
// in its original order.
func Filter(snapshot []types.Aircraft, query string) []types.Aircraft {
	// Casers carry state and are not shared between calls
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(snapshot)
	}

	out := make([]types.Aircraft, 0, len(snapshot))
	for i := range snapshot {
		if matches(&snapshot[i], q, fold) {
			out = append(out, snapshot[i])
		}
	}
	return out
}

func matches(ac *types.Aircraft, folded string, fold cases.Caser) bool {
	if strings.Contains(fold.String(ac.Address), folded) {
		return true
	}
	return ac.Callsign != nil && strings.Contains(fold.String(*ac.Callsign), folded)
}
