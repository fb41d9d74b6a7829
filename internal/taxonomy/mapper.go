// Package taxonomy maps open-vocabulary classifier labels onto a small closed
// set of categories using an ordered keyword rule table.
package taxonomy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/ecolens/internal/model"
)

// Rule is an alias to the model.TaxonomyRule type for convenience.
type Rule = model.TaxonomyRule

// ErrInvalidRule is returned when a rule table cannot be used for matching.
var ErrInvalidRule = errors.New("invalid taxonomy rule")

// Resolution describes how a label was resolved.
type Resolution struct {
	Category model.Category
	Keyword  string
	Guidance string
}

// Known reports whether the resolution matched a rule.
func (r Resolution) Known() bool {
	return r.Category.IsKnown()
}

// Mapper evaluates labels against an ordered rule list. The first rule with a
// keyword contained in the label wins, so rule order is significant.
type Mapper struct {
	rules []compiledRule
}

type compiledRule struct {
	category model.Category
	guidance string
	keywords []string
}

// NewMapper creates a mapper for the given rules. Rules are evaluated in the
// order given.
func NewMapper(rules []Rule) (*Mapper, error) {
	m := &Mapper{rules: make([]compiledRule, 0, len(rules))}

	for i, rule := range rules {
		if !rule.Category.IsKnown() {
			return nil, fmt.Errorf("%w: rule %d has category %q", ErrInvalidRule, i, rule.Category)
		}
		if len(rule.Keywords) == 0 {
			return nil, fmt.Errorf("%w: rule %d (%s) has no keywords", ErrInvalidRule, i, rule.Category)
		}

		compiled := compiledRule{
			category: rule.Category,
			guidance: rule.Guidance,
			keywords: make([]string, 0, len(rule.Keywords)),
		}
		for _, kw := range rule.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			// An empty keyword would match every label.
			if kw == "" {
				return nil, fmt.Errorf("%w: rule %d (%s) has an empty keyword", ErrInvalidRule, i, rule.Category)
			}
			compiled.keywords = append(compiled.keywords, kw)
		}
		m.rules = append(m.rules, compiled)
	}

	return m, nil
}

// MustNewMapper is like NewMapper but panics on an invalid rule table.
func MustNewMapper(rules []Rule) *Mapper {
	m, err := NewMapper(rules)
	if err != nil {
		panic(err)
	}
	return m
}

// Map returns the category of the first rule matching label, or model.Unknown.
func (m *Mapper) Map(label string) model.Category {
	return m.Resolve(label).Category
}

// Resolve is like Map but also reports the keyword and guidance of the matching rule.
func (m *Mapper) Resolve(label string) Resolution {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower == "" {
		return Resolution{Category: model.Unknown}
	}

	for _, rule := range m.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return Resolution{
					Category: rule.category,
					Keyword:  kw,
					Guidance: rule.guidance,
				}
			}
		}
	}

	return Resolution{Category: model.Unknown}
}

// Categories returns the distinct categories in rule order.
func (m *Mapper) Categories() []model.Category {
	seen := make(map[model.Category]bool, len(m.rules))
	out := make([]model.Category, 0, len(m.rules))
	for _, rule := range m.rules {
		if seen[rule.category] {
			continue
		}
		seen[rule.category] = true
		out = append(out, rule.category)
	}
	return out
}

// Has reports whether c is produced by at least one rule.
func (m *Mapper) Has(c model.Category) bool {
	for _, rule := range m.rules {
		if rule.category == c {
			return true
		}
	}
	return false
}
