// Package model defines the core data structures for the ecolens engine.
package model

import "strings"

// Category is one entry of the closed taxonomy the engine reasons about.
type Category string

// Unknown is the outcome of a label that no taxonomy rule matched.
const Unknown Category = "unknown"

// IsKnown reports whether c names a real taxonomy category.
func (c Category) IsKnown() bool {
	return c != "" && !strings.EqualFold(string(c), string(Unknown))
}

func (c Category) String() string {
	if c == "" {
		return string(Unknown)
	}
	return string(c)
}

// TaxonomyRule maps a set of keywords onto a category. Guidance is the
// user-facing hint shown when a scan resolves to this rule.
type TaxonomyRule struct {
	Category Category `json:"category" yaml:"category"`
	Guidance string   `json:"guidance,omitempty" yaml:"guidance,omitempty"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}
