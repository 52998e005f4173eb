package predicate

import (
	"github.com/seitarof/classgate/internal/classfile"
)

// InitializerMember is the member name reported for initializer rejections.
const InitializerMember = "<clinit>"

// DefaultRules returns built-in rules in priority order.
// Nested types are not inspected.
func DefaultRules() []Rule {
	return []Rule{
		&NonFinalStaticRule{},
		&NonLiteralFinalStaticRule{},
		&NonEmptyInitializerRule{},
	}
}

// NonFinalStaticRule: static field without final -> reject.
type NonFinalStaticRule struct{}

func (r *NonFinalStaticRule) Name() string { return string(ReasonNonFinalStatic) }

func (r *NonFinalStaticRule) Try(desc *classfile.TypeDescriptor) (Verdict, bool) {
	for _, f := range desc.Fields {
		if f.Flags.IsStatic() && !f.Flags.IsFinal() {
			return Reject(ReasonNonFinalStatic, f.Name), true
		}
	}
	return Verdict{}, false
}

// NonLiteralFinalStaticRule: static final field without ConstantValue -> reject.
type NonLiteralFinalStaticRule struct{}

func (r *NonLiteralFinalStaticRule) Name() string { return string(ReasonNonLiteralFinalStatic) }

func (r *NonLiteralFinalStaticRule) Try(desc *classfile.TypeDescriptor) (Verdict, bool) {
	for _, f := range desc.Fields {
		if f.Flags.IsStatic() && f.Flags.IsFinal() && f.Constant == nil {
			return Reject(ReasonNonLiteralFinalStatic, f.Name), true
		}
	}
	return Verdict{}, false
}

// NonEmptyInitializerRule: <clinit> doing more than re-storing folded
// constants -> reject.
type NonEmptyInitializerRule struct{}

func (r *NonEmptyInitializerRule) Name() string { return string(ReasonNonEmptyInitializer) }

func (r *NonEmptyInitializerRule) Try(desc *classfile.TypeDescriptor) (Verdict, bool) {
	if desc.Initializer == nil || desc.Initializer.IsTrivial(desc) {
		return Verdict{}, false
	}
	return Reject(ReasonNonEmptyInitializer, InitializerMember), true
}
