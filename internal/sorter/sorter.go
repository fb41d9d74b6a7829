// Package sorter classifies a batch of image files directly against the
// taxonomy, outside of any scan session. Nothing is persisted and no
// cooldown applies.
package sorter

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/ecolens/internal/camera"
	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/taxonomy"
)

// DefaultParallel is the number of frames classified at once.
const DefaultParallel = 4

// Classifier classifies one frame.
type Classifier interface {
	Classify(ctx context.Context, frame model.Frame) (model.Predictions, error)
}

// Resolver maps a label onto the taxonomy.
type Resolver interface {
	Resolve(label string) taxonomy.Resolution
}

// Result is the outcome for one file. Err is set when the file could not be
// read or classified.
type Result struct {
	Err        error          `json:"-"`
	Path       string         `json:"path"`
	Label      string         `json:"label"`
	Category   model.Category `json:"category"`
	Guidance   string         `json:"guidance,omitempty"`
	Confidence float64        `json:"confidence"`
}

// Options tunes a batch run.
type Options struct {
	// OnResult is called once per finished file, never concurrently.
	OnResult func(Result)
	Parallel int
}

// Sort classifies every path. Per-file failures are reported in the results;
// only cancellation of ctx aborts the batch. Results are in input order.
func Sort(ctx context.Context, paths []string, cls Classifier, res Resolver, opts Options) ([]Result, error) {
	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = DefaultParallel
	}

	results := make([]Result, len(paths))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			r := classifyFile(gCtx, path, cls, res)
			if r.Err != nil && gCtx.Err() != nil {
				return gCtx.Err()
			}

			mu.Lock()
			results[i] = r
			if opts.OnResult != nil {
				opts.OnResult(r)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("batch sort interrupted: %w", err)
	}
	return results, nil
}

func classifyFile(ctx context.Context, path string, cls Classifier, res Resolver) Result {
	r := Result{Path: path, Category: model.Unknown}

	frame, err := camera.ReadFrame(path)
	if err != nil {
		r.Err = err
		return r
	}

	preds, err := cls.Classify(ctx, frame)
	if err != nil {
		r.Err = err
		return r
	}

	top, ok := preds.Top()
	if !ok {
		return r
	}
	r.Label = top.Label
	r.Confidence = top.Confidence

	resolution := res.Resolve(top.Label)
	if resolution.Known() {
		r.Category = resolution.Category
		r.Guidance = resolution.Guidance
	}
	return r
}

// Tally counts results per category. Failed files are counted under
// failedKey.
func Tally(results []Result, failedKey model.Category) map[model.Category]int {
	counts := make(map[model.Category]int)
	for _, r := range results {
		if r.Err != nil {
			counts[failedKey]++
			continue
		}
		counts[r.Category]++
	}
	return counts
}
