package tui

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ecolens/internal/classifier"
	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/session"
)

type fakeSession struct {
	err       error
	attempt   *session.Attempt
	listeners []session.Listener
	snap      session.Snapshot
	scans     int
	mu        sync.Mutex
}

func (f *fakeSession) AttemptScan(context.Context) (*session.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	return f.attempt, f.err
}

func (f *fakeSession) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSession) Subscribe(l session.Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, l)
}

type fakeHistory struct {
	profile *model.Profile
	records []model.ScanRecord
}

func (h *fakeHistory) RecentScans(context.Context, string, int) ([]model.ScanRecord, error) {
	return h.records, nil
}

func (h *fakeHistory) GetProfile(context.Context, string) (*model.Profile, error) {
	return h.profile, nil
}

func idleSnapshot() session.Snapshot {
	return session.Snapshot{
		SessionID:  "s1",
		UserID:     "alice",
		Mode:       session.ModeMission,
		State:      session.StateIdle,
		ModelState: classifier.StateReady,
		Mission: &model.Mission{
			TargetCategory: "Nature",
			Prompt:         "Find something related to Nature!",
			Examples:       []string{"tree", "plant"},
		},
	}
}

func testModel(t *testing.T, s *fakeSession, opts ...Option) Model {
	t.Helper()
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newModel(context.Background(), s, nil, cfg)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

var spaceKey = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}

func TestModel_ScanKeyRunsAttempt(t *testing.T) {
	s := &fakeSession{snap: idleSnapshot()}
	m := testModel(t, s)

	m, cmd := update(t, m, spaceKey)
	require.NotNil(t, cmd)

	msg := cmd()
	result, ok := msg.(scanResultMsg)
	require.True(t, ok, "expected scanResultMsg, got %T", msg)
	assert.NoError(t, result.err)
	assert.Equal(t, 1, s.scans)

	_, _ = update(t, m, result)
}

func TestModel_ScanKeyIgnoredWhenDisabled(t *testing.T) {
	tests := []struct {
		mutate func(*session.Snapshot)
		name   string
	}{
		{name: "cooling down", mutate: func(s *session.Snapshot) { s.State = session.StateCooldown; s.CooldownRemaining = 5 }},
		{name: "scanning", mutate: func(s *session.Snapshot) { s.State = session.StateScanning }},
		{name: "model loading", mutate: func(s *session.Snapshot) { s.ModelState = classifier.StateLoading }},
		{name: "disabled", mutate: func(s *session.Snapshot) { s.State = session.StateDisabled }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := idleSnapshot()
			tt.mutate(&snap)
			s := &fakeSession{snap: snap}
			m := testModel(t, s)

			_, cmd := update(t, m, spaceKey)
			assert.Nil(t, cmd)
			assert.Equal(t, 0, s.scans)
		})
	}
}

func TestModel_SessionEventsUpdateView(t *testing.T) {
	s := &fakeSession{snap: idleSnapshot()}
	m := testModel(t, s)

	snap := idleSnapshot()
	snap.State = session.StateCooldown
	snap.CooldownRemaining = 7
	snap.LastAttempt = &session.Attempt{
		Outcome:    model.OutcomeSuccess,
		Category:   "Nature",
		Label:      "fern",
		Confidence: 0.82,
		RewardXP:   50,
		Predictions: model.Predictions{
			{Label: "fern", Confidence: 0.82},
		},
	}

	m, _ = update(t, m, sessionEventMsg{event: session.Event{Type: session.EventOutcome, Snapshot: snap}})

	out := m.View()
	assert.Contains(t, out, "Success!")
	assert.Contains(t, out, "+50 XP")
	assert.Contains(t, out, "Wait 7s")
	assert.Contains(t, out, "fern (82%)")
	assert.Contains(t, out, "Find something related to Nature!")
}

func TestModel_VisibleErrors(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want string
	}{
		{name: "capture failure", err: fmt.Errorf("%w: camera offline", common.ErrCaptureFailed), want: "No camera frame available"},
		{name: "classification failure", err: fmt.Errorf("%w: timeout", common.ErrClassificationFailed), want: scanFailedMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSession{snap: idleSnapshot()}
			m := testModel(t, s)

			m, _ = update(t, m, scanResultMsg{err: tt.err})
			assert.Contains(t, m.View(), tt.want)
		})
	}
}

func TestModel_GateRejectionsHidden(t *testing.T) {
	for _, err := range []error{common.ErrCoolingDown, common.ErrScanInProgress, common.ErrSessionClosed} {
		assert.NoError(t, visibleError(err))
	}
}

func TestModel_FatalView(t *testing.T) {
	snap := idleSnapshot()
	snap.State = session.StateDisabled
	snap.ModelState = classifier.StateFailed
	snap.Fatal = common.NewUserError(classifier.ModelLoadMessage, common.ErrModelLoad)

	m := testModel(t, &fakeSession{snap: snap})
	out := m.View()
	assert.Contains(t, out, classifier.ModelLoadMessage)
	assert.NotContains(t, out, "Mission")
}

func TestModel_HistoryPanel(t *testing.T) {
	history := &fakeHistory{
		profile: &model.Profile{UserID: "alice", XP: 150},
		records: []model.ScanRecord{
			{UserID: "alice", Category: "Nature", ObjectLabel: "fern", Confidence: 0.8, ScannedAt: time.Now()},
		},
	}
	s := &fakeSession{snap: idleSnapshot()}
	m := testModel(t, s, WithHistory(history))

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	out := m.View()
	assert.Contains(t, out, "Scan History")
	assert.Contains(t, out, "fern")
	assert.Contains(t, out, "Level 2 Scout")
	assert.Contains(t, out, "150 XP")
}

func TestModel_Quit(t *testing.T) {
	m := testModel(t, &fakeSession{snap: idleSnapshot()})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, m.View())
}

func TestForward_DoesNotBlock(t *testing.T) {
	ch := make(chan session.Event, 1)
	l := forward(ch)

	l(session.Event{Type: session.EventIdle})
	l(session.Event{Type: session.EventCooldownTick})

	ev := <-ch
	assert.Equal(t, session.EventIdle, ev.Type)
	assert.Empty(t, ch)
}

func TestModel_WaitForEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan session.Event, 1)
	m := newModel(ctx, &fakeSession{snap: idleSnapshot()}, ch, defaultConfig())

	ch <- session.Event{Type: session.EventIdle}
	msg := m.waitForEvent()()
	assert.IsType(t, sessionEventMsg{}, msg)

	cancel()
	assert.IsType(t, eventsClosedMsg{}, m.waitForEvent()())
}
