// Package tui is the terminal front-end for a single scan session.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/presentation"
	"github.com/Veraticus/ecolens/internal/session"
	"github.com/Veraticus/ecolens/internal/tui/themes"
)

// Session is the scan session the TUI drives.
type Session interface {
	AttemptScan(ctx context.Context) (*session.Attempt, error)
	Snapshot() session.Snapshot
	Subscribe(l session.Listener)
}

// eventBuffer bounds how many session events may queue while the UI is busy.
// Events carry full snapshots, so dropping one only skips an intermediate frame.
const eventBuffer = 64

// Model holds the TUI state.
type Model struct {
	ctx         context.Context
	scanner     Session
	lastErr     error
	profile     *model.Profile
	events      <-chan session.Event
	config      Config
	theme       themes.Theme
	keymap      KeyMap
	help        help.Model
	view        presentation.ViewState
	snap        session.Snapshot
	records     []model.ScanRecord
	spinner     spinner.Model
	progress    progress.Model
	width       int
	height      int
	showHistory bool
	showDebug   bool
	showHelp    bool
	quitting    bool
}

// forward returns a listener that queues events for the UI without blocking
// the session.
func forward(ch chan<- session.Event) session.Listener {
	return func(ev session.Event) {
		select {
		case ch <- ev:
		default:
		}
	}
}

func newModel(ctx context.Context, s Session, events <-chan session.Event, cfg Config) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cfg.Theme.Primary)

	prog := progress.New(progress.WithDefaultGradient())
	prog.ShowPercentage = false
	prog.Width = min(cfg.Width-4, 40)

	m := Model{
		ctx:         ctx,
		scanner:     s,
		events:      events,
		config:      cfg,
		theme:       cfg.Theme,
		keymap:      DefaultKeyMap(),
		help:        help.New(),
		spinner:     sp,
		progress:    prog,
		width:       cfg.Width,
		height:      cfg.Height,
		showHistory: cfg.ShowHistory,
		showDebug:   cfg.ShowDebug,
	}
	m.setSnapshot(s.Snapshot())
	return m
}

// Init starts the spinner, the event pump and the first history load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitForEvent(),
		m.loadHistory(),
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(m.width-4, 40)
		m.help.Width = msg.Width
		return m, nil

	case sessionEventMsg:
		m.setSnapshot(msg.event.Snapshot)
		cmds := []tea.Cmd{m.waitForEvent()}
		if msg.event.Type == session.EventOutcome {
			cmds = append(cmds, m.loadHistory())
		}
		return m, tea.Batch(cmds...)

	case eventsClosedMsg:
		return m, nil

	case scanResultMsg:
		m.setSnapshot(m.scanner.Snapshot())
		m.lastErr = visibleError(msg.err)
		return m, nil

	case historyLoadedMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.profile = msg.profile
		m.records = msg.records
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Scan):
		if !m.view.ButtonEnabled {
			return m, nil
		}
		m.lastErr = nil
		return m, m.scan()

	case key.Matches(msg, m.keymap.ToggleHist):
		m.showHistory = !m.showHistory
		if m.showHistory {
			return m, m.loadHistory()
		}

	case key.Matches(msg, m.keymap.ToggleDebug):
		m.showDebug = !m.showDebug

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	}

	return m, nil
}

func (m *Model) setSnapshot(snap session.Snapshot) {
	m.snap = snap
	m.view = presentation.Build(snap)
}

func (m Model) scan() tea.Cmd {
	return func() tea.Msg {
		attempt, err := m.scanner.AttemptScan(m.ctx)
		return scanResultMsg{attempt: attempt, err: err}
	}
}

func (m Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case ev := <-m.events:
			return sessionEventMsg{event: ev}
		case <-m.ctx.Done():
			return eventsClosedMsg{}
		}
	}
}

func (m Model) loadHistory() tea.Cmd {
	if m.config.History == nil || m.snap.UserID == "" {
		return nil
	}
	userID := m.snap.UserID
	limit := m.config.HistorySize
	return func() tea.Msg {
		profile, err := m.config.History.GetProfile(m.ctx, userID)
		if err != nil {
			return historyLoadedMsg{err: err}
		}
		records, err := m.config.History.RecentScans(m.ctx, userID, limit)
		if err != nil {
			return historyLoadedMsg{err: err}
		}
		return historyLoadedMsg{profile: profile, records: records}
	}
}

// visibleError filters out gate rejections, which the button state already
// explains.
func visibleError(err error) error {
	switch {
	case err == nil,
		errors.Is(err, common.ErrCoolingDown),
		errors.Is(err, common.ErrScanInProgress),
		errors.Is(err, common.ErrSessionClosed),
		errors.Is(err, context.Canceled):
		return nil
	}
	return err
}
