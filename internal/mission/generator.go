// Package mission draws the category a user is asked to find next.
package mission

import (
	"errors"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/timeutil"
	"github.com/google/uuid"
)

// ErrEmptyCatalog is returned when a generator is built without missions.
var ErrEmptyCatalog = errors.New("mission catalog is empty")

// Generator holds the active mission and replaces it by uniform random draw
// with replacement from a fixed catalog.
type Generator struct {
	clock   timeutil.Clock
	rng     *rand.Rand
	current *model.Mission
	catalog []model.Mission
	mu      sync.Mutex
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the random source used for draws.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		g.rng = rng
	}
}

// WithClock sets the clock used to stamp drawn missions.
func WithClock(clock timeutil.Clock) Option {
	return func(g *Generator) {
		g.clock = clock
	}
}

// NewGenerator creates a generator over catalog. No mission is active until
// Next is called.
func NewGenerator(catalog []model.Mission, opts ...Option) (*Generator, error) {
	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}

	g := &Generator{
		catalog: slices.Clone(catalog),
		clock:   timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return g, nil
}

// Next draws a new mission and makes it current. Every call returns a fresh
// value with its own ID, even when the same catalog entry is drawn twice.
func (g *Generator) Next() *model.Mission {
	g.mu.Lock()
	defer g.mu.Unlock()

	tmpl := g.catalog[g.rng.IntN(len(g.catalog))]
	m := &model.Mission{
		ID:             uuid.NewString(),
		TargetCategory: tmpl.TargetCategory,
		Prompt:         tmpl.Prompt,
		Examples:       slices.Clone(tmpl.Examples),
		DrawnAt:        g.clock.Now().UTC(),
	}
	g.current = m
	return m
}

// Current returns the active mission, or nil before the first draw.
func (g *Generator) Current() *model.Mission {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Catalog returns a copy of the missions the generator draws from.
func (g *Generator) Catalog() []model.Mission {
	return slices.Clone(g.catalog)
}
