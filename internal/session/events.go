package session

// EventType identifies a session event.
type EventType string

// Session events.
const (
	EventModelReady     EventType = "model_ready"
	EventModelFailed    EventType = "model_failed"
	EventScanStarted    EventType = "scan_started"
	EventOutcome        EventType = "outcome"
	EventCooldownTick   EventType = "cooldown_tick"
	EventIdle           EventType = "idle"
	EventMissionChanged EventType = "mission_changed"
	EventClosed         EventType = "closed"
)

// Event is published to listeners after every state change. Attempt is set
// for outcome events only.
type Event struct {
	Attempt   *Attempt
	Type      EventType
	SessionID string
	Snapshot  Snapshot
}

// Listener receives session events. Listeners are called outside the session
// lock, possibly from several goroutines, and must not block.
type Listener func(Event)

// Subscribe registers a listener for all subsequent events.
func (s *Session) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Session) emit(t EventType, attempt *Attempt) {
	s.mu.Lock()
	listeners := s.listeners
	snap := s.snapshotLocked()
	s.mu.Unlock()

	ev := Event{
		Type:      t,
		SessionID: s.id,
		Snapshot:  snap,
		Attempt:   attempt,
	}
	for _, l := range listeners {
		l(ev)
	}
}
