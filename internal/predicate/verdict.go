package predicate

import "fmt"

// Reason identifies the rule that rejected a type.
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonNonFinalStatic        Reason = "non-final-static"
	ReasonNonLiteralFinalStatic Reason = "non-literal-final-static"
	ReasonNonEmptyInitializer   Reason = "non-empty-initializer"
	ReasonUnsafeNestedType      Reason = "unsafe-nested-type"
)

// Verdict is the outcome of classifying one type.
type Verdict struct {
	Reason Reason
	// Member names the offending field, "<clinit>" or nested type.
	Member string
}

// Admit returns the admitting verdict.
func Admit() Verdict {
	return Verdict{}
}

// Reject returns a rejecting verdict.
func Reject(reason Reason, member string) Verdict {
	return Verdict{Reason: reason, Member: member}
}

// Admitted reports whether v admits the type.
func (v Verdict) Admitted() bool {
	return v.Reason == ReasonNone
}

func (v Verdict) String() string {
	if v.Admitted() {
		return "admit"
	}
	if v.Member == "" {
		return fmt.Sprintf("reject(%s)", v.Reason)
	}
	return fmt.Sprintf("reject(%s: %s)", v.Reason, v.Member)
}
