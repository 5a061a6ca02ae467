package gitsource

import (
	"fmt"
	"regexp"
)

// Rule assigns Priority to branches whose short name matches Pattern.
type Rule struct {
	Pattern  string
	Priority int
}

type compiledRule struct {
	re       *regexp.Regexp
	priority int
}

// Ranker maps branch names to priorities. The first matching rule wins.
type Ranker struct {
	rules    []compiledRule
	fallback int
}

// NewRanker compiles rules. Names that match nothing get fallback.
func NewRanker(rules []Rule, fallback int) (*Ranker, error) {
	r := &Ranker{fallback: fallback}
	for _, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", rule.Pattern, err)
		}
		r.rules = append(r.rules, compiledRule{re: re, priority: rule.Priority})
	}
	return r, nil
}

// Rank returns the priority of a branch short name such as "origin/develop".
func (r *Ranker) Rank(name string) int {
	for _, rule := range r.rules {
		if rule.re.MatchString(name) {
			return rule.priority
		}
	}
	return r.fallback
}
