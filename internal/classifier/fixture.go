package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Veraticus/ecolens/internal/model"
)

// fixtureFile is the on-disk format of a fixture model.
//
//	{
//	  "load_delay": "2s",
//	  "frames": {"oak.jpg": [{"label": "oak tree", "confidence": 0.91}]},
//	  "default": [{"label": "asphalt", "confidence": 0.2}]
//	}
type fixtureFile struct {
	Frames    map[string]model.Predictions `json:"frames"`
	LoadDelay string                       `json:"load_delay,omitempty"`
	Default   model.Predictions            `json:"default,omitempty"`
}

// fixtureModel answers with canned predictions looked up by frame name.
type fixtureModel struct {
	frames   map[string]model.Predictions
	fallback model.Predictions
}

func newFixtureLoader(path string) LoadFunc {
	return func(ctx context.Context) (Model, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read fixture model: %w", err)
		}

		var file fixtureFile
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse fixture model: %w", err)
		}

		if file.LoadDelay != "" {
			delay, err := time.ParseDuration(file.LoadDelay)
			if err != nil {
				return nil, fmt.Errorf("invalid load_delay: %w", err)
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		m := &fixtureModel{
			frames:   make(map[string]model.Predictions, len(file.Frames)),
			fallback: file.Default,
		}
		for name, preds := range file.Frames {
			m.frames[strings.ToLower(name)] = preds
		}
		return m, nil
	}
}

// Classify implements Model. Frames are matched by exact name first and then
// by name without extension.
func (m *fixtureModel) Classify(ctx context.Context, frame model.Frame) (model.Predictions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := strings.ToLower(frame.Name)
	if preds, ok := m.frames[name]; ok {
		return slices.Clone(preds), nil
	}
	if preds, ok := m.frames[strings.TrimSuffix(name, filepath.Ext(name))]; ok {
		return slices.Clone(preds), nil
	}
	return slices.Clone(m.fallback), nil
}
