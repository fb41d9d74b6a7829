package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/Veraticus/ecolens/internal/model"
)

// cacheEntry represents cached predictions for one frame.
type cacheEntry struct {
	expiry      time.Time
	predictions model.Predictions
}

// predictionCache provides thread-safe caching of predictions keyed by frame digest.
type predictionCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
	stop    sync.Once
}

// newPredictionCache creates a new cache with the specified TTL.
func newPredictionCache(ttl time.Duration) *predictionCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &predictionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// frameKey returns the cache key of a frame.
func frameKey(frame model.Frame) string {
	sum := sha256.Sum256(frame.Data)
	return hex.EncodeToString(sum[:])
}

// get retrieves predictions from the cache if they exist and haven't expired.
func (c *predictionCache) get(key string) (model.Predictions, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if time.Now().After(entry.expiry) {
		return nil, false
	}

	return slices.Clone(entry.predictions), true
}

// set stores predictions in the cache.
func (c *predictionCache) set(key string, predictions model.Predictions) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		predictions: slices.Clone(predictions),
		expiry:      time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *predictionCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// size returns the number of entries in the cache.
func (c *predictionCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *predictionCache) Close() {
	c.stop.Do(func() { close(c.stopCh) })
}

// guardedModel puts a remote model behind a prediction cache and a rate limiter.
type guardedModel struct {
	next    Model
	cache   *predictionCache
	limiter *rateLimiter
}

func guard(load LoadFunc, cacheTTL time.Duration, requestsPerMinute int) LoadFunc {
	return func(ctx context.Context) (Model, error) {
		m, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return &guardedModel{
			next:    m,
			cache:   newPredictionCache(cacheTTL),
			limiter: newRateLimiter(requestsPerMinute),
		}, nil
	}
}

// Classify implements Model.
func (g *guardedModel) Classify(ctx context.Context, frame model.Frame) (model.Predictions, error) {
	key := frameKey(frame)
	if preds, ok := g.cache.get(key); ok {
		return preds, nil
	}

	if err := g.limiter.wait(ctx); err != nil {
		return nil, err
	}

	preds, err := g.next.Classify(ctx, frame)
	if err != nil {
		return nil, err
	}

	g.cache.set(key, preds)
	return preds, nil
}

// Close stops the cache janitor and closes the wrapped model.
func (g *guardedModel) Close() error {
	g.cache.Close()
	if closer, ok := g.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
