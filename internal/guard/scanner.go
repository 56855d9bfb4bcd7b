// Package guard keeps documents away from external model providers when
// they carry credentials or text aimed at the model itself.
package guard

import (
	"sort"
	"strings"
)

// Detection is one credential found in text.
type Detection struct {
	PatternName string
	Start       int // byte offset
	End         int // byte offset
}

// Scanner matches text against credential patterns and injection rules.
type Scanner struct {
	patterns  []Pattern
	injection []InjectionRule
	threshold func() float64
}

type Option func(*Scanner)

// WithInjectionThreshold sets the severity at which injection rules block.
// A threshold of zero or less turns injection checks off.
func WithInjectionThreshold(threshold func() float64) Option {
	return func(s *Scanner) { s.threshold = threshold }
}

// NewScanner creates a scanner with the default patterns and rules.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		patterns:  DefaultPatterns(),
		injection: DefaultInjectionRules(),
		threshold: func() float64 { return DefaultInjectionThreshold },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns all credential detections ordered by position.
func (s *Scanner) Scan(text string) []Detection {
	var detections []Detection
	for _, p := range s.patterns {
		for _, loc := range p.Regex.FindAllStringIndex(text, -1) {
			detections = append(detections, Detection{
				PatternName: p.Name,
				Start:       loc[0],
				End:         loc[1],
			})
		}
	}
	sort.Slice(detections, func(i, j int) bool { return detections[i].Start < detections[j].Start })
	return detections
}

// Blocks reports whether any of texts must stay in-process, and names what
// was found.
func (s *Scanner) Blocks(texts ...string) (bool, string) {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	threshold := s.threshold()
	for _, t := range texts {
		for _, d := range s.Scan(t) {
			add(d.PatternName)
		}
		if threshold <= 0 {
			continue
		}
		if score, rules := s.InjectionScore(t); score >= threshold {
			for _, r := range rules {
				add("injection:" + r)
			}
		}
	}
	return len(names) > 0, strings.Join(names, ", ")
}
