package table

import (
	"fmt"
	"strings"
	"time"

	"github.com/saviobatista/sbs-viewer/internal/recency"
	"github.com/saviobatista/sbs-viewer/internal/stats"
)

// Indicator is the sort glyph state of a column header
type Indicator int

const (
	Unsorted Indicator = iota
	SortedAscending
	SortedDescending
)

// Glyph returns the header symbol for the indicator
func (i Indicator) Glyph() string {
	switch i {
	case SortedAscending:
		return "↑"
	case SortedDescending:
		return "↓"
	default:
		return "↕"
	}
}

// Column describes one table header cell
type Column struct {
	Title    string
	Field    Field
	Sortable bool
	Sort     Indicator
}

// Row holds the display values of one aircraft. Nothing here needs further
// computation before rendering.
type Row struct {
	ID            int64
	Address       string
	Callsign      string
	CallsignKnown bool
	Messages      string
	FirstSeen     string
	LastSeen      string
	LastSeenAgo   string
	Recent        bool
	Status        string
}

// EmptyState explains why a view has no rows
type EmptyState int

const (
	EmptyNone EmptyState = iota
	EmptyNoData
	EmptyNoMatch
)

// Message returns the user-facing text for the empty state
func (e EmptyState) Message() string {
	switch e {
	case EmptyNoData:
		return "No aircraft data available."
	case EmptyNoMatch:
		return "No aircraft found matching your search."
	default:
		return ""
	}
}

const (
	UnknownCallsign = "Unknown"
	StatusActive    = "Active"
	StatusInactive  = "Inactive"
)

// View is everything a renderer needs for one frame
type View struct {
	Columns  []Column
	Rows     []Row
	Summary  stats.Summary
	Empty    EmptyState
	Query    string
	Filtered bool
	Loading  bool
	Loaded   bool
	Error    string
	Shown    int
	Total    int
}

// Footer returns e.g. "Showing 1 of 5 aircraft (filtered)"
func (v View) Footer() string {
	s := fmt.Sprintf("Showing %d of %d aircraft", v.Shown, v.Total)
	if v.Filtered {
		s += " (filtered)"
	}
	return s
}

var sortableColumns = []struct {
	title string
	field Field
}{
	{"ICAO", FieldAddress},
	{"Callsign", FieldCallsign},
	{"Messages", FieldMessageCount},
	{"First Seen", FieldFirstSeen},
	{"Last Seen", FieldLastSeen},
}

// SortableFields lists the sortable columns in display order
func SortableFields() []Field {
	fields := make([]Field, len(sortableColumns))
	for i, c := range sortableColumns {
		fields[i] = c.field
	}
	return fields
}

// Columns builds the header cells for the given sort
func Columns(field Field, dir Direction) []Column {
	cols := make([]Column, 0, len(sortableColumns)+1)
	for _, c := range sortableColumns {
		ind := Unsorted
		if c.field == field {
			ind = SortedDescending
			if dir == Ascending {
				ind = SortedAscending
			}
		}
		cols = append(cols, Column{Title: c.title, Field: c.field, Sortable: true, Sort: ind})
	}
	return append(cols, Column{Title: "Status"})
}

// Derive computes the view for state at now. It is pure: the same inputs
// always yield the same view.
func Derive(st State, now time.Time, f Formatter) View {
	filtered := Filter(st.Snapshot, st.Query)
	sorted := Sort(filtered, st.SortField, st.SortDirection)

	rows := make([]Row, len(sorted))
	for i := range sorted {
		ac := &sorted[i]
		row := Row{
			ID:          ac.ID,
			Address:     ac.Address,
			Callsign:    UnknownCallsign,
			Messages:    f.Count(ac.MessageCount),
			FirstSeen:   f.DateTime(ac.FirstSeen),
			LastSeen:    f.DateTime(ac.LastSeen),
			LastSeenAgo: recency.TimeAgo(ac.LastSeen, now),
			Recent:      recency.IsRecent(ac.LastSeen, now),
			Status:      StatusInactive,
		}
		if ac.HasCallsign() {
			row.Callsign = *ac.Callsign
			row.CallsignKnown = true
		}
		if row.Recent {
			row.Status = StatusActive
		}
		rows[i] = row
	}

	v := View{
		Columns:  Columns(st.SortField, st.SortDirection),
		Rows:     rows,
		Summary:  stats.Compute(st.Snapshot, now),
		Query:    st.Query,
		Filtered: strings.TrimSpace(st.Query) != "",
		Loading:  st.Loading,
		Loaded:   st.Loaded,
		Error:    st.Error,
		Shown:    len(rows),
		Total:    len(st.Snapshot),
	}

	if len(rows) == 0 {
		v.Empty = EmptyNoData
		if v.Total > 0 {
			v.Empty = EmptyNoMatch
		}
	}
	return v
}
