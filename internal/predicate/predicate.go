package predicate

import (
	"github.com/seitarof/classgate/internal/classfile"
)

// Predicate classifies parsed types.
type Predicate interface {
	Classify(desc *classfile.TypeDescriptor) Verdict
}

// Rule rejects a type for one reason. ok is false when the rule does not fire.
type Rule interface {
	Name() string
	Try(desc *classfile.TypeDescriptor) (Verdict, bool)
}

type predicateImpl struct {
	rules []Rule
}

// New builds predicate with rule chain. The first firing rule wins.
func New(rules ...Rule) Predicate {
	return &predicateImpl{rules: rules}
}

// Default returns a predicate with DefaultRules.
func Default() Predicate {
	return New(DefaultRules()...)
}

func (p *predicateImpl) Classify(desc *classfile.TypeDescriptor) Verdict {
	for _, rule := range p.rules {
		if v, ok := rule.Try(desc); ok {
			return v
		}
	}
	return Admit()
}

// IsUnsafe parses b and reports whether the default rules reject it.
func IsUnsafe(b []byte) (bool, error) {
	desc, err := classfile.Parse(b)
	if err != nil {
		return false, err
	}
	return !Default().Classify(desc).Admitted(), nil
}
