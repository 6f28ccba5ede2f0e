// Package rules implements the replacement-rule registry.
//
// A Registry is an ordered, read-only collection of compiled rules. Order is
// behavioural: during scanning, earlier rules claim text ranges before later
// rules see them. Rules are configuration, not state — there is no runtime
// mutation API. Construction fails fast on duplicate labels or patterns that
// do not compile.
package rules

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrDuplicateLabel is returned when two rule specs share a label.
var ErrDuplicateLabel = errors.New("rules: duplicate label")

// ErrEmpty is returned when a registry is constructed with no rules.
var ErrEmpty = errors.New("rules: no rules")

// Spec is the raw, uncompiled form of a rule as it appears in configuration.
type Spec struct {
	Pattern string `yaml:"pattern"`
	Label   string `yaml:"label"`
}

// Rule is a compiled replacement rule. Immutable after construction.
type Rule struct {
	// Pattern matches case-insensitively and only on word boundaries, so a
	// rule for a short token never fires inside a longer unrelated word.
	Pattern *regexp.Regexp
	// Label is the replacement text shown in place of the match.
	Label string
	// Precedence is the rule's position in the registry (0 = highest).
	Precedence int
}

// Registry is the ordered, read-only rule set.
type Registry struct {
	rules   []*Rule
	byLabel map[string]*Rule
}

// New compiles the given specs into a Registry. Spec order is precedence
// order. Fails on the first duplicate label or invalid pattern.
func New(specs []Spec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, ErrEmpty
	}

	r := &Registry{
		rules:   make([]*Rule, 0, len(specs)),
		byLabel: make(map[string]*Rule, len(specs)),
	}

	for i, s := range specs {
		if s.Label == "" {
			return nil, fmt.Errorf("rules: spec %d: empty label", i)
		}
		if _, exists := r.byLabel[s.Label]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, s.Label)
		}

		re, err := compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rules: compile %q: %w", s.Pattern, err)
		}

		rule := &Rule{Pattern: re, Label: s.Label, Precedence: i}
		r.rules = append(r.rules, rule)
		r.byLabel[s.Label] = rule
	}

	return r, nil
}

// compile wraps a pattern with case folding and word boundaries.
func compile(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, errors.New("empty pattern")
	}
	return regexp.Compile(`(?i)\b(?:` + pattern + `)\b`)
}

// Len returns the number of rules.
func (r *Registry) Len() int { return len(r.rules) }

// At returns the rule at precedence position i.
func (r *Registry) At(i int) *Rule { return r.rules[i] }

// All returns the rules in precedence order. The returned slice is a copy;
// the rules themselves are shared and must not be mutated.
func (r *Registry) All() []*Rule {
	out := make([]*Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// ByLabel looks up a rule by its replacement label.
func (r *Registry) ByLabel(label string) (*Rule, bool) {
	rule, ok := r.byLabel[label]
	return rule, ok
}
