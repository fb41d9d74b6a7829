// Package session implements the scan session state machine: it gates scan
// attempts on model readiness and cooldown, classifies a captured frame,
// resolves the top label against the taxonomy and judges the result against
// the active mission.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/ecolens/internal/camera"
	"github.com/Veraticus/ecolens/internal/classifier"
	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/service"
	"github.com/Veraticus/ecolens/internal/taxonomy"
	"github.com/Veraticus/ecolens/internal/timeutil"
)

// State is the position of a session in its scan cycle.
type State string

// Session states.
const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
	StateCooldown State = "cooldown"
	StateDisabled State = "disabled"
	StateClosed   State = "closed"
)

// Classifier is the shared, read-only model a session classifies with.
type Classifier interface {
	State() classifier.State
	Err() error
	Done() <-chan struct{}
	Classify(ctx context.Context, frame model.Frame) (model.Predictions, error)
}

// Resolver maps a raw classifier label onto the taxonomy.
type Resolver interface {
	Resolve(label string) taxonomy.Resolution
}

// Missions supplies the active mission and draws replacements.
type Missions interface {
	Next() *model.Mission
	Current() *model.Mission
}

// Deps are the collaborators a session is built from. Sink and Logger may be
// nil; Clock defaults to the real clock.
type Deps struct {
	Classifier Classifier
	Resolver   Resolver
	Missions   Missions
	Camera     camera.Source
	Sink       service.RewardSink
	Clock      timeutil.Clock
	Logger     *slog.Logger
}

// Attempt is the result of one completed scan.
type Attempt struct {
	At          time.Time         `json:"at"`
	Mission     *model.Mission    `json:"mission,omitempty"`
	NextMission *model.Mission    `json:"next_mission,omitempty"`
	ID          string            `json:"id"`
	Frame       string            `json:"frame"`
	Label       string            `json:"label"`
	Category    model.Category    `json:"category"`
	Outcome     model.Outcome     `json:"outcome"`
	Guidance    string            `json:"guidance,omitempty"`
	Keyword     string            `json:"keyword,omitempty"`
	Predictions model.Predictions `json:"predictions"`
	Confidence  float64           `json:"confidence"`
	RewardXP    int               `json:"reward_xp"`
	Recorded    bool              `json:"recorded"`
}

// Snapshot is a consistent copy of session state for rendering.
type Snapshot struct {
	Fatal             error
	Mission           *model.Mission
	LastAttempt       *Attempt
	SessionID         string
	UserID            string
	Mode              Mode
	State             State
	ModelState        classifier.State
	CooldownRemaining int
}

// Session drives scan attempts for a single user. It is safe for concurrent
// use, but admits at most one attempt in flight.
type Session struct {
	cfg    Config
	deps   Deps
	clock  timeutil.Clock
	logger *slog.Logger
	id     string

	mu          sync.Mutex
	state       State
	fatal       error
	mission     *model.Mission
	lastAttempt *Attempt
	remaining   int
	generation  uint64
	cancelScan  context.CancelFunc
	stopTicker  chan struct{}
	listeners   []Listener

	closeCh   chan struct{}
	closeOnce sync.Once
	writes    sync.WaitGroup
	workers   sync.WaitGroup
}

// New creates a session in the Idle state. In mission mode the first mission
// is drawn immediately.
func New(cfg Config, deps Deps) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Classifier == nil || deps.Resolver == nil || deps.Camera == nil {
		return nil, fmt.Errorf("%w: session requires a classifier, resolver and camera", common.ErrMissingConfig)
	}
	if cfg.Mode == ModeMission && deps.Missions == nil {
		return nil, fmt.Errorf("%w: mission mode requires a mission generator", common.ErrMissingConfig)
	}
	if deps.Clock == nil {
		deps.Clock = timeutil.RealClock{}
	}

	id := uuid.NewString()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		cfg:     cfg,
		deps:    deps,
		clock:   deps.Clock,
		logger:  logger.With("session_id", id, "user_id", cfg.UserID),
		id:      id,
		state:   StateIdle,
		closeCh: make(chan struct{}),
	}
	if cfg.Mode == ModeMission {
		s.mission = deps.Missions.Next()
	}

	s.workers.Add(1)
	go s.watchModel()

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:         s.id,
		UserID:            s.cfg.UserID,
		Mode:              s.cfg.Mode,
		State:             s.state,
		ModelState:        s.deps.Classifier.State(),
		CooldownRemaining: s.remaining,
		Mission:           s.mission,
		LastAttempt:       s.lastAttempt,
		Fatal:             s.fatal,
	}
}

// watchModel disables the session if the shared model fails to load.
func (s *Session) watchModel() {
	defer s.workers.Done()

	select {
	case <-s.closeCh:
		return
	case <-s.deps.Classifier.Done():
	}

	if s.deps.Classifier.State() != classifier.StateFailed {
		s.logger.Debug("Classifier ready for session")
		s.emit(EventModelReady, nil)
		return
	}

	s.mu.Lock()
	disabled := s.disableLocked()
	s.mu.Unlock()
	if disabled {
		s.emit(EventModelFailed, nil)
	}
}

// disableLocked moves the session into the permanent Disabled state.
func (s *Session) disableLocked() bool {
	if s.state == StateClosed || s.state == StateDisabled {
		return false
	}

	s.fatal = s.deps.Classifier.Err()
	if s.fatal == nil {
		s.fatal = common.NewUserError(classifier.ModelLoadMessage, common.ErrModelLoad)
	}
	s.state = StateDisabled
	s.stopCooldownLocked()
	s.logger.Error("Session disabled", "error", s.fatal)
	return true
}

// AttemptScan runs one scan attempt and blocks until its outcome is known.
// Rejected attempts never reach the classifier. Capture and classification
// failures return the session to Idle without starting a cooldown.
func (s *Session) AttemptScan(ctx context.Context) (*Attempt, error) {
	s.mu.Lock()
	if disabled, err := s.gateLocked(); err != nil {
		s.mu.Unlock()
		if disabled {
			s.emit(EventModelFailed, nil)
		}
		return nil, err
	}

	scanCtx, cancel := context.WithCancel(ctx)
	s.generation++
	gen := s.generation
	s.cancelScan = cancel
	s.state = StateScanning
	mission := s.mission
	s.mu.Unlock()
	defer cancel()

	s.emit(EventScanStarted, nil)

	frame, err := s.deps.Camera.Capture(scanCtx)
	if err != nil {
		return nil, s.abort(gen, fmt.Errorf("%w: %w", common.ErrCaptureFailed, err))
	}

	preds, err := s.deps.Classifier.Classify(scanCtx, frame)
	if err != nil {
		if !errors.Is(err, common.ErrClassificationFailed) && !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %w", common.ErrClassificationFailed, err)
		}
		return nil, s.abort(gen, err)
	}

	attempt := s.judge(frame, preds, mission)
	return s.complete(ctx, gen, attempt)
}

// gateLocked reports whether the check itself disabled the session and the
// reason a new attempt cannot start, if any.
func (s *Session) gateLocked() (bool, error) {
	switch s.state {
	case StateClosed:
		return false, common.ErrSessionClosed
	case StateDisabled:
		return false, s.fatal
	case StateScanning:
		return false, common.ErrScanInProgress
	case StateCooldown:
		return false, fmt.Errorf("%w: %ds remaining", common.ErrCoolingDown, s.remaining)
	}

	switch state := s.deps.Classifier.State(); state {
	case classifier.StateReady:
		return false, nil
	case classifier.StateFailed:
		disabled := s.disableLocked()
		return disabled, s.fatal
	default:
		return false, fmt.Errorf("%w: model is %s", common.ErrNotReady, state)
	}
}

// abort returns a failed attempt's session to Idle.
func (s *Session) abort(gen uint64, err error) error {
	s.mu.Lock()
	if s.generation != gen || s.state != StateScanning {
		s.mu.Unlock()
		return common.ErrSessionClosed
	}
	s.state = StateIdle
	s.cancelScan = nil
	s.mu.Unlock()

	if errors.Is(err, context.Canceled) {
		s.logger.Debug("Scan attempt canceled by caller")
	} else {
		s.logger.Warn("Scan attempt aborted", "error", err)
	}
	s.emit(EventIdle, nil)
	return err
}

// judge resolves the top prediction and decides the outcome.
func (s *Session) judge(frame model.Frame, preds model.Predictions, mission *model.Mission) *Attempt {
	attempt := &Attempt{
		ID:          uuid.NewString(),
		At:          s.clock.Now().UTC(),
		Frame:       frame.Name,
		Predictions: preds,
		Mission:     mission,
		Category:    model.Unknown,
		Outcome:     model.OutcomeUnknown,
		Guidance:    s.cfg.UnknownGuidance,
	}

	top, ok := preds.Top()
	if !ok {
		return attempt
	}
	attempt.Label = top.Label
	attempt.Confidence = top.Confidence

	res := s.deps.Resolver.Resolve(top.Label)
	if !res.Known() {
		return attempt
	}
	attempt.Category = res.Category
	attempt.Keyword = res.Keyword
	if res.Guidance != "" {
		attempt.Guidance = res.Guidance
	}

	switch {
	case s.cfg.Mode == ModeSorting:
		attempt.Outcome = model.OutcomeSuccess
	case mission != nil && res.Category == mission.TargetCategory:
		attempt.Outcome = model.OutcomeSuccess
	default:
		attempt.Outcome = model.OutcomeFail
	}
	return attempt
}

// complete applies an attempt's outcome unless the session moved on while it
// was classifying.
func (s *Session) complete(ctx context.Context, gen uint64, attempt *Attempt) (*Attempt, error) {
	s.mu.Lock()
	if s.generation != gen || s.state != StateScanning {
		s.mu.Unlock()
		s.logger.Debug("Discarding attempt from torn down session", "attempt_id", attempt.ID)
		return nil, common.ErrSessionClosed
	}
	s.cancelScan = nil

	if attempt.Outcome == model.OutcomeSuccess {
		attempt.RewardXP = s.cfg.RewardXP
		if s.cfg.Mode == ModeMission {
			s.mission = s.deps.Missions.Next()
			attempt.NextMission = s.mission
		}
	}
	attempt.Recorded = s.shouldRecord(attempt)
	s.persistLocked(ctx, attempt)

	s.lastAttempt = attempt
	cooling := s.startCooldownLocked()
	s.mu.Unlock()

	s.logger.Info("Scan outcome",
		"outcome", attempt.Outcome,
		"label", attempt.Label,
		"category", attempt.Category,
		"confidence", attempt.Confidence)

	s.emit(EventOutcome, attempt)
	if attempt.NextMission != nil {
		s.emit(EventMissionChanged, nil)
	}
	if !cooling {
		s.emit(EventIdle, nil)
	}
	return attempt, nil
}

// shouldRecord reports whether an attempt is appended to scan history.
// Attempts without a usable label are never recorded.
func (s *Session) shouldRecord(a *Attempt) bool {
	if s.deps.Sink == nil || strings.TrimSpace(a.Label) == "" {
		return false
	}
	return a.Category.IsKnown() || s.cfg.PersistUnknown
}

// persistLocked hands the attempt's side effects to a tracked goroutine. The
// writes outlive the caller's context but not PersistTimeout.
func (s *Session) persistLocked(ctx context.Context, a *Attempt) {
	reward := a.RewardXP > 0 && s.deps.Sink != nil
	if !a.Recorded && !reward {
		return
	}

	record := model.ScanRecord{
		ID:          uuid.NewString(),
		UserID:      s.cfg.UserID,
		Category:    a.Category,
		ObjectLabel: a.Label,
		Confidence:  a.Confidence,
		ScannedAt:   a.At,
	}
	sink := s.deps.Sink
	userID := s.cfg.UserID
	timeout := s.cfg.persistTimeout()

	s.writes.Add(1)
	go func() {
		defer s.writes.Done()

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		if a.Recorded {
			if err := sink.AppendScanRecord(writeCtx, record); err != nil {
				common.LogError(s.logger, fmt.Errorf("%w: %w", common.ErrPersistence, err),
					"Failed to append scan record", common.Fields{"attempt_id": a.ID})
			}
		}
		if reward {
			if err := sink.IncreaseExperience(writeCtx, userID, a.RewardXP); err != nil {
				common.LogError(s.logger, fmt.Errorf("%w: %w", common.ErrPersistence, err),
					"Failed to increase experience", common.Fields{"attempt_id": a.ID, "amount": a.RewardXP})
			}
		}
	}()
}

// startCooldownLocked enters Cooldown, or Idle when no cooldown is
// configured. It reports whether a cooldown started.
func (s *Session) startCooldownLocked() bool {
	s.remaining = s.cfg.cooldownSeconds()
	if s.remaining == 0 {
		s.state = StateIdle
		return false
	}

	s.state = StateCooldown
	stop := make(chan struct{})
	s.stopTicker = stop
	ticker := s.clock.NewTicker(time.Second)

	s.workers.Add(1)
	go s.runCooldown(ticker, stop)
	return true
}

func (s *Session) stopCooldownLocked() {
	if s.stopTicker != nil {
		close(s.stopTicker)
		s.stopTicker = nil
	}
	s.remaining = 0
}

func (s *Session) runCooldown(ticker timeutil.Ticker, stop <-chan struct{}) {
	defer s.workers.Done()
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			done, ok := s.tick(stop)
			if !ok {
				return
			}
			s.emit(EventCooldownTick, nil)
			if done {
				s.emit(EventIdle, nil)
				return
			}
		}
	}
}

// tick decrements the cooldown by one second. ok is false when the cooldown
// was cancelled before the tick could be applied.
func (s *Session) tick(stop <-chan struct{}) (done, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-stop:
		return false, false
	default:
	}
	if s.state != StateCooldown || s.remaining <= 0 {
		return false, false
	}

	s.remaining--
	if s.remaining > 0 {
		return false, true
	}

	s.state = StateIdle
	s.stopTicker = nil
	return true, true
}

// Flush waits for outstanding history and reward writes.
func (s *Session) Flush() {
	s.writes.Wait()
}

// Close tears the session down. An attempt still classifying is discarded
// when it returns. Close waits for outstanding writes and is idempotent.
func (s *Session) Close() error {
	first := false
	s.closeOnce.Do(func() {
		first = true

		s.mu.Lock()
		s.state = StateClosed
		s.generation++
		if s.cancelScan != nil {
			s.cancelScan()
			s.cancelScan = nil
		}
		s.stopCooldownLocked()
		s.mu.Unlock()

		close(s.closeCh)
	})

	if first {
		s.emit(EventClosed, nil)
	}

	s.workers.Wait()
	s.writes.Wait()
	return nil
}
