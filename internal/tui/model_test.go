package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/saviobatista/sbs-viewer/internal/table"
	"github.com/saviobatista/sbs-viewer/internal/testutils"
	"github.com/saviobatista/sbs-viewer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refNow = time.Date(2025, 11, 8, 14, 45, 0, 0, time.UTC)

type fakeSource struct {
	aircraft []types.Aircraft
	err      error
}

func (f *fakeSource) FetchSnapshot(ctx context.Context) ([]types.Aircraft, error) {
	return f.aircraft, f.err
}

func newTestModel(t *testing.T, src table.Source) *Model {
	t.Helper()
	m := New(context.Background(), table.NewStore(src), Options{
		RefreshInterval: time.Second,
		FetchTimeout:    time.Second,
		Location:        time.UTC,
		SourceName:      "demo",
	})
	m.now = func() time.Time { return refNow }
	t.Cleanup(m.Close)
	return m
}

// refreshNow runs one refresh command to completion
func refreshNow(m *Model) {
	msg := m.refresh()()
	m.Update(msg)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(m *Model, s string) {
	for _, r := range s {
		m.Update(key(string(r)))
	}
}

func TestModel_InitialLoading(t *testing.T) {
	m := newTestModel(t, &fakeSource{})

	assert.True(t, m.state.Loading)
	assert.Contains(t, m.View(), "Loading aircraft data...")
}

func TestModel_RendersSnapshot(t *testing.T) {
	m := newTestModel(t, &fakeSource{aircraft: testutils.Fleet(refNow)})
	refreshNow(m)

	view := m.View()
	assert.False(t, m.state.Loading)
	for _, want := range []string{"ABC123", "SAS789", "Unknown", "1,334", "Showing 5 of 5 aircraft", "Last Seen ↓", "ICAO ↕", "1m ago"} {
		assert.Contains(t, view, want)
	}
}

func TestModel_NoData(t *testing.T) {
	m := newTestModel(t, &fakeSource{aircraft: []types.Aircraft{}})
	refreshNow(m)

	assert.Contains(t, m.View(), "No aircraft data available.")
}

func TestModel_Search(t *testing.T) {
	m := newTestModel(t, &fakeSource{aircraft: testutils.Fleet(refNow)})
	refreshNow(m)

	m.Update(key("/"))
	require.True(t, m.search.Focused())
	typeText(m, "sas")

	assert.Equal(t, "sas", m.state.Query)
	view := m.View()
	assert.Contains(t, view, "SAS789")
	assert.NotContains(t, view, "FIN123")
	assert.Contains(t, view, "Showing 1 of 5 aircraft (filtered)")
	assert.Contains(t, view, "1,334", "stats ignore the search")

	// keys go to the search box while it is focused
	m.Update(key("q"))
	assert.Equal(t, "sasq", m.state.Query)
	assert.Contains(t, m.View(), "No aircraft found matching your search.")

	m.Update(key("enter"))
	assert.False(t, m.search.Focused())
	m.Update(key("esc"))
	assert.Equal(t, "", m.state.Query)
}

func TestModel_Sort(t *testing.T) {
	m := newTestModel(t, &fakeSource{aircraft: testutils.Fleet(refNow)})
	refreshNow(m)

	m.Update(key("3"))
	assert.Equal(t, table.FieldMessageCount, m.state.SortField)
	assert.Equal(t, table.Descending, m.state.SortDirection)

	m.Update(key("3"))
	assert.Equal(t, table.Ascending, m.state.SortDirection)
	assert.Contains(t, m.View(), "Messages ↑")

	m.Update(key("1"))
	assert.Equal(t, table.FieldAddress, m.state.SortField)
	assert.Equal(t, table.Descending, m.state.SortDirection)
}

func TestModel_RefreshFailureKeepsRows(t *testing.T) {
	src := &fakeSource{aircraft: testutils.Fleet(refNow)}
	m := newTestModel(t, src)
	refreshNow(m)

	src.err = errors.New("connection refused")
	src.aircraft = nil
	refreshNow(m)

	view := m.View()
	assert.Contains(t, view, "Failed to load aircraft data: connection refused")
	assert.Contains(t, view, "ABC123")
	assert.Len(t, m.state.Snapshot, 5)
}

func TestModel_StaleRefreshDiscarded(t *testing.T) {
	src := &fakeSource{aircraft: testutils.Fleet(refNow)}
	m := newTestModel(t, src)

	stale := m.refresh()
	fresh := m.refresh()

	m.Update(fresh())
	src.aircraft = nil
	m.Update(stale())

	assert.Len(t, m.state.Snapshot, 5)
	assert.False(t, m.state.Loading)
}

func TestModel_TickSchedulesRefresh(t *testing.T) {
	m := newTestModel(t, &fakeSource{aircraft: testutils.Fleet(refNow)})
	refreshNow(m)

	_, cmd := m.Update(tickMsg(refNow))
	require.NotNil(t, cmd)
	assert.True(t, m.state.Loading, "a tick starts a refresh")
}

func TestModel_Quit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		m := newTestModel(t, &fakeSource{})
		_, cmd := m.Update(key(k))
		require.NotNil(t, cmd, k)
		assert.IsType(t, tea.QuitMsg{}, cmd(), k)
	}
}

func TestModel_WindowSize(t *testing.T) {
	m := newTestModel(t, &fakeSource{aircraft: testutils.Fleet(refNow)})
	refreshNow(m)

	m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	assert.Equal(t, 160, m.width)
	assert.Contains(t, m.View(), "ABC123")
}
