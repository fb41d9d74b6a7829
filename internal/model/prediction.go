package model

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Prediction is one ranked (label, confidence) pair produced by a classifier.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Validate ensures the Prediction has valid data.
func (p Prediction) Validate() error {
	if math.IsNaN(p.Confidence) || p.Confidence < 0.0 || p.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %v", p.Confidence)
	}
	return nil
}

// Predictions is a ranked list of predictions for a single frame.
type Predictions []Prediction

// Sort orders predictions by descending confidence. Ties keep the order the
// model produced them in.
func (p Predictions) Sort() {
	sort.SliceStable(p, func(i, j int) bool {
		return p[i].Confidence > p[j].Confidence
	})
}

// Top returns the highest ranked prediction. The list must already be sorted.
func (p Predictions) Top() (Prediction, bool) {
	if len(p) == 0 {
		return Prediction{}, false
	}
	return p[0], true
}

// TopN returns the first n predictions.
func (p Predictions) TopN(n int) Predictions {
	if n <= 0 {
		return Predictions{}
	}
	if n > len(p) {
		n = len(p)
	}
	result := make(Predictions, n)
	copy(result, p[:n])
	return result
}

// Debug formats the first n predictions as "label (NN%)".
func (p Predictions) Debug(n int) []string {
	top := p.TopN(n)
	out := make([]string, len(top))
	for i, pred := range top {
		out[i] = fmt.Sprintf("%s (%.0f%%)", pred.Label, pred.Confidence*100)
	}
	return out
}

// Validate ensures all predictions in the slice are valid.
func (p Predictions) Validate() error {
	for i, pred := range p {
		if err := pred.Validate(); err != nil {
			return fmt.Errorf("invalid prediction at index %d: %w", i, err)
		}
	}
	return nil
}

// Frame is a single still image captured from a camera source.
type Frame struct {
	CapturedAt time.Time
	Name       string
	MIME       string
	Data       []byte
}
