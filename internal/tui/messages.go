package tui

import (
	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/session"
)

// sessionEventMsg wraps an event forwarded from the session.
type sessionEventMsg struct {
	event session.Event
}

// eventsClosedMsg signals the event stream has ended.
type eventsClosedMsg struct{}

// scanResultMsg carries the result of one AttemptScan call.
type scanResultMsg struct {
	attempt *session.Attempt
	err     error
}

// historyLoadedMsg carries a refreshed profile and scan history.
type historyLoadedMsg struct {
	err     error
	profile *model.Profile
	records []model.ScanRecord
}
