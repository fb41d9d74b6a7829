package classifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/model"
)

// ModelLoadMessage is shown to the user when the model cannot be loaded.
const ModelLoadMessage = "Failed to load AI model. Please refresh."

// State is the lifecycle of the underlying model.
type State int32

// Model lifecycle states.
const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Model is a loaded image classifier. Implementations return predictions for
// a single frame; ordering is normalized by the Adapter.
type Model interface {
	Classify(ctx context.Context, frame model.Frame) (model.Predictions, error)
}

// LoadFunc loads a model. It is called at most once per Adapter.
type LoadFunc func(ctx context.Context) (Model, error)

// Adapter loads a model once in the background and serves classification
// calls once it is ready. A Ready model is never replaced, so one Adapter can
// be shared read-only by any number of sessions.
type Adapter struct {
	err    error
	model  Model
	load   LoadFunc
	logger *slog.Logger
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	state  State
}

// NewAdapter creates an adapter in the Unloaded state.
func NewAdapter(load LoadFunc, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		load:   load,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Load starts loading the model in the background and returns immediately.
// Only the first call has any effect; a failed load is not retried.
func (a *Adapter) Load(ctx context.Context) {
	a.once.Do(func() {
		a.mu.Lock()
		a.state = StateLoading
		a.mu.Unlock()

		go a.run(ctx)
	})
}

func (a *Adapter) run(ctx context.Context) {
	defer close(a.done)

	start := time.Now()
	a.logger.Info("Loading classifier model")

	m, err := a.load(ctx)
	if err == nil && m == nil {
		err = errors.New("loader returned no model")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		a.state = StateFailed
		a.err = common.NewUserError(ModelLoadMessage, fmt.Errorf("%w: %w", common.ErrModelLoad, err))
		a.logger.Error("Classifier model failed to load",
			"error", err,
			"elapsed", time.Since(start))
		return
	}

	a.model = m
	a.state = StateReady
	a.logger.Info("Classifier model ready", "elapsed", time.Since(start))
}

// State returns the current lifecycle state.
func (a *Adapter) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Err returns the load error once the adapter has failed.
func (a *Adapter) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.err
}

// Done is closed once loading finishes, successfully or not.
func (a *Adapter) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until loading finishes and returns the load error, if any.
// Wait does not start loading.
func (a *Adapter) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Classify runs the model on frame and returns predictions ordered by
// descending confidence. It fails with common.ErrNotReady unless the model
// is Ready.
func (a *Adapter) Classify(ctx context.Context, frame model.Frame) (model.Predictions, error) {
	a.mu.RLock()
	state, m := a.state, a.model
	a.mu.RUnlock()

	if state != StateReady {
		return nil, fmt.Errorf("%w: model is %s", common.ErrNotReady, state)
	}

	preds, err := m.Classify(ctx, frame)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", common.ErrClassificationFailed, err)
	}
	if err := preds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrClassificationFailed, err)
	}

	ranked := slices.Clone(preds)
	ranked.Sort()

	a.logger.Debug("Classified frame",
		"frame", frame.Name,
		"predictions", len(ranked))

	return ranked, nil
}

// Close releases the model if it holds resources.
func (a *Adapter) Close() error {
	a.mu.RLock()
	m := a.model
	a.mu.RUnlock()

	if closer, ok := m.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
