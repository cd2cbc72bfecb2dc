package table

import (
	"cmp"
	"slices"
	"strings"

	"github.com/saviobatista/sbs-viewer/internal/types"
)

// Field identifies a sortable aircraft column
type Field int

const (
	FieldAddress Field = iota
	FieldCallsign
	FieldMessageCount
	FieldFirstSeen
	FieldLastSeen
)

func (f Field) String() string {
	switch f {
	case FieldAddress:
		return "address"
	case FieldCallsign:
		return "callsign"
	case FieldMessageCount:
		return "message_count"
	case FieldFirstSeen:
		return "first_seen"
	case FieldLastSeen:
		return "last_seen"
	default:
		return "unknown"
	}
}

// ParseField maps a field name back to its Field. "icao" is accepted as
// an alias of "address".
func ParseField(s string) (Field, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "address", "icao":
		return FieldAddress, true
	case "callsign":
		return FieldCallsign, true
	case "message_count", "messages":
		return FieldMessageCount, true
	case "first_seen":
		return FieldFirstSeen, true
	case "last_seen":
		return FieldLastSeen, true
	}
	return 0, false
}

// ParseDirection accepts "asc" or "desc"
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return Ascending, true
	case "desc":
		return Descending, true
	}
	return 0, false
}

// Direction is the sort order of the active column
type Direction int

const (
	Descending Direction = iota
	Ascending
)

func (d Direction) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// Flip returns the opposite direction
func (d Direction) Flip() Direction {
	if d == Ascending {
		return Descending
	}
	return Ascending
}

// NextSort applies a column selection: a new column starts descending,
// the active column flips.
func NextSort(current Field, dir Direction, requested Field) (Field, Direction) {
	if requested == current {
		return current, dir.Flip()
	}
	return requested, Descending
}

// Sort returns a stably sorted copy of aircraft. Aircraft missing the
// field's value go last in both directions.
func Sort(aircraft []types.Aircraft, field Field, dir Direction) []types.Aircraft {
	out := slices.Clone(aircraft)
	slices.SortStableFunc(out, func(a, b types.Aircraft) int {
		return compare(&a, &b, field, dir)
	})
	return out
}

func compare(a, b *types.Aircraft, field Field, dir Direction) int {
	if field == FieldCallsign {
		ap, bp := a.HasCallsign(), b.HasCallsign()
		switch {
		case ap && !bp:
			return -1
		case !ap && bp:
			return 1
		case !ap && !bp:
			return 0
		}
	}

	c := compareValues(a, b, field)
	if dir == Descending {
		return -c
	}
	return c
}

func compareValues(a, b *types.Aircraft, field Field) int {
	switch field {
	case FieldAddress:
		return strings.Compare(a.Address, b.Address)
	case FieldCallsign:
		return strings.Compare(*a.Callsign, *b.Callsign)
	case FieldMessageCount:
		return cmp.Compare(a.MessageCount, b.MessageCount)
	case FieldFirstSeen:
		return a.FirstSeen.Compare(b.FirstSeen)
	case FieldLastSeen:
		return a.LastSeen.Compare(b.LastSeen)
	default:
		return 0
	}
}
