package matcher

import (
	"slices"
	"strings"
)

// DefaultExcluded lists platform prefixes that are only ever resolved by
// the parent loader.
var DefaultExcluded = []string{"java.", "javax.", "jdk.", "sun.", "com.sun."}

// NameMatcher matches qualified type names against a pattern set.
type NameMatcher interface {
	Match(name string) bool
	Patterns() []string
}

type nameMatcherImpl struct {
	exact    map[string]bool
	prefixes []string
	packages map[string]bool
	patterns []string
}

// New returns a matcher for patterns. A pattern ending in "." or "$" is a
// prefix, "pkg.*" matches types directly in pkg, anything else is an exact
// name. Blank patterns are ignored.
func New(patterns ...string) NameMatcher {
	m := &nameMatcherImpl{
		exact:    make(map[string]bool, len(patterns)),
		packages: map[string]bool{},
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || slices.Contains(m.patterns, p) {
			continue
		}
		m.patterns = append(m.patterns, p)
		switch {
		case strings.HasSuffix(p, ".*"):
			m.packages[strings.TrimSuffix(p, ".*")] = true
		case strings.HasSuffix(p, ".") || strings.HasSuffix(p, "$"):
			m.prefixes = append(m.prefixes, p)
		default:
			m.exact[p] = true
		}
	}
	return m
}

// NewDefault returns a matcher for DefaultExcluded plus extra.
func NewDefault(extra ...string) NameMatcher {
	return New(append(slices.Clone(DefaultExcluded), extra...)...)
}

func (m *nameMatcherImpl) Match(name string) bool {
	if m.exact[name] {
		return true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	if len(m.packages) > 0 {
		if i := strings.LastIndexByte(name, '.'); i > 0 && m.packages[name[:i]] {
			return true
		}
	}
	return false
}

func (m *nameMatcherImpl) Patterns() []string {
	return slices.Clone(m.patterns)
}

// Reject returns names not matched by m, keeping order.
func Reject(m NameMatcher, names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !m.Match(n) {
			out = append(out, n)
		}
	}
	return out
}
