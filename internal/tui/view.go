package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/saviobatista/sbs-viewer/internal/table"
)

const (
	colStatus   = 5
	colCallsign = 1
)

// View renders the current frame
func (m *Model) View() string {
	v := table.Derive(m.state, m.now(), m.format)

	sections := []string{
		m.styles.title.Render("ADS-B Aircraft Tracker"),
		m.renderStats(v),
		m.search.View(),
	}
	if v.Error != "" {
		sections = append(sections, m.styles.errorBanner.Render("⚠ "+v.Error))
	}
	sections = append(sections, m.renderBody(v), m.renderFooter(v), m.renderHelp())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderStats(v table.View) string {
	card := func(label, value string) string {
		return m.styles.card.Render(lipgloss.JoinVertical(lipgloss.Left,
			m.styles.cardLabel.Render(label),
			m.styles.cardValue.Render(value),
		))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total Aircraft", m.format.Count(int64(v.Summary.Total))),
		card("Active (1h)", m.format.Count(int64(v.Summary.Active))),
		card("With Callsign", m.format.Count(int64(v.Summary.WithCallsign))),
		card("Total Messages", m.format.Count(v.Summary.TotalMessages)),
	)
}

func (m *Model) renderBody(v table.View) string {
	if !v.Loaded && v.Loading {
		return m.spinner.View() + " Loading aircraft data..."
	}
	if v.Empty != table.EmptyNone {
		return m.styles.dim.Render(v.Empty.Message())
	}
	return m.renderTable(v)
}

func (m *Model) renderTable(v table.View) string {
	headers := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		headers[i] = c.Title
		if c.Sortable {
			headers[i] = fmt.Sprintf("%d %s %s", i+1, c.Title, c.Sort.Glyph())
		}
	}

	rows := make([][]string, len(v.Rows))
	for i, r := range v.Rows {
		rows[i] = []string{r.Address, r.Callsign, r.Messages, r.FirstSeen, r.LastSeen + " (" + r.LastSeenAgo + ")", r.Status}
	}

	t := ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(m.styles.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return m.styles.header
			}
			if row < 0 || row >= len(v.Rows) {
				return m.styles.cell
			}
			r := v.Rows[row]
			switch {
			case col == colCallsign && !r.CallsignKnown:
				return m.styles.unknown
			case col == colStatus && r.Recent:
				return m.styles.active
			case col == colStatus:
				return m.styles.inactive
			}
			return m.styles.cell
		})
	if m.width > 0 {
		t = t.Width(m.width)
	}
	return t.Render()
}

func (m *Model) renderFooter(v table.View) string {
	parts := []string{v.Footer()}
	if m.opts.SourceName != "" {
		parts = append(parts, "source: "+m.opts.SourceName)
	}
	parts = append(parts, fmt.Sprintf("refresh every %s", m.opts.RefreshInterval))
	if v.Loading && v.Loaded {
		parts = append(parts, m.spinner.View()+" updating")
	}
	return m.styles.dim.Render(strings.Join(parts, " • "))
}

func (m *Model) renderHelp() string {
	if m.search.Focused() {
		return m.styles.help.Render("enter/esc: done")
	}
	return m.styles.help.Render("/: search • 1-5: sort • r: refresh • esc: clear search • q: quit")
}
