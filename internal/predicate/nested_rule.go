package predicate

import (
	"github.com/seitarof/classgate/internal/classfile"
)

// LookupFunc returns the descriptor of a nested type by qualified name. It
// returns a nil descriptor and a nil error when the type does not exist.
type LookupFunc func(name string) (*classfile.TypeDescriptor, error)

// NestedTypeRule rejects a type when any type nested in it, directly or
// transitively, is rejected by Rules. It is not part of DefaultRules.
// Nested types that do not exist are skipped. A nested type that fails to
// load, malformed bytes included, cannot be shown safe and rejects the outer
// type.
type NestedTypeRule struct {
	Lookup LookupFunc
	// Rules classify each nested type. DefaultRules when empty.
	Rules []Rule
}

// NewNestedTypeRule returns a NestedTypeRule using DefaultRules.
func NewNestedTypeRule(lookup LookupFunc) *NestedTypeRule {
	return &NestedTypeRule{Lookup: lookup}
}

func (r *NestedTypeRule) Name() string { return string(ReasonUnsafeNestedType) }

func (r *NestedTypeRule) Try(desc *classfile.TypeDescriptor) (Verdict, bool) {
	if r.Lookup == nil || len(desc.NestedTypes) == 0 {
		return Verdict{}, false
	}
	rules := r.Rules
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	inner := New(rules...)

	seen := map[string]struct{}{desc.Name: {}}
	queue := append([]string(nil), desc.NestedTypes...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		nested, err := r.Lookup(name)
		if err != nil {
			return Reject(ReasonUnsafeNestedType, name), true
		}
		if nested == nil {
			continue
		}
		if v := inner.Classify(nested); !v.Admitted() {
			return Reject(ReasonUnsafeNestedType, name), true
		}
		queue = append(queue, nested.NestedTypes...)
	}
	return Verdict{}, false
}
