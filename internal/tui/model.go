// Package tui renders the aircraft table in the terminal.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/saviobatista/sbs-viewer/internal/table"
	"github.com/saviobatista/sbs-viewer/internal/types"
)

// Options configures the viewer
type Options struct {
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	// Location renders timestamps; time.Local when nil
	Location *time.Location
	// SourceName is shown in the footer
	SourceName string
}

type refreshDoneMsg struct {
	ticket   table.Ticket
	snapshot []types.Aircraft
	err      error
}

type tickMsg time.Time

// Model is the bubbletea model of the viewer. All store mutations happen
// inside Update so the subscription callback never races the renderer.
type Model struct {
	ctx     context.Context
	store   *table.Store
	opts    Options
	format  table.Formatter
	now     func() time.Time
	state   table.State
	search  textinput.Model
	spinner spinner.Model
	styles  styles
	width   int
	unsub   func()
}

// New creates the viewer over store. ctx bounds every fetch.
func New(ctx context.Context, store *table.Store, opts Options) *Model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 10 * time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Second
	}

	si := textinput.New()
	si.Placeholder = "Search by ICAO or callsign..."
	si.Prompt = "/ "
	si.Width = 40
	si.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorCyan))
	si.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorForeground))
	si.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorComment))

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPink))

	m := &Model{
		ctx:     ctx,
		store:   store,
		opts:    opts,
		format:  table.NewFormatter(opts.Location),
		now:     time.Now,
		state:   store.State(),
		search:  si,
		spinner: sp,
		styles:  newStyles(),
	}
	m.unsub = store.Subscribe(func(st table.State) {
		m.state = st
	})
	return m
}

// Close detaches the model from its store
func (m *Model) Close() {
	if m.unsub != nil {
		m.unsub()
	}
}

// Init starts the first refresh, the spinner and the poll timer
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.spinner.Tick, m.tick())
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.opts.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh begins a refresh now and fetches in the returned command
func (m *Model) refresh() tea.Cmd {
	ticket := m.store.BeginRefresh()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, m.opts.FetchTimeout)
		defer cancel()
		snapshot, err := m.store.Fetch(ctx)
		return refreshDoneMsg{ticket: ticket, snapshot: snapshot, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case refreshDoneMsg:
		m.store.Complete(msg.ticket, msg.snapshot, msg.err)
		return m, nil
	case tickMsg:
		return m, tea.Batch(m.refresh(), m.tick())
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.search.Focused() {
		return m.handleSearchKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		return m, m.search.Focus()
	case "r":
		return m, m.refresh()
	case "esc":
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.store.SetQuery("")
		}
		return m, nil
	case "1", "2", "3", "4", "5":
		fields := table.SortableFields()
		m.store.RequestSort(fields[msg.String()[0]-'1'])
		return m, nil
	}
	return m, nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.store.SetQuery(m.search.Value())
	return m, cmd
}
