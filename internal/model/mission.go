package model

import "time"

// Mission is the category a user is currently asked to find. A drawn mission
// is never mutated; the generator replaces it wholesale.
type Mission struct {
	DrawnAt        time.Time `json:"drawn_at" yaml:"-"`
	ID             string    `json:"id" yaml:"-"`
	TargetCategory Category  `json:"target_category" yaml:"category"`
	Prompt         string    `json:"prompt" yaml:"prompt"`
	Examples       []string  `json:"examples" yaml:"examples"`
}
