// Package transform adapts the static-initialization predicate to a byte
// transform: admitted bytes pass through untouched, unsafe types are vetoed.
package transform

import (
	"github.com/seitarof/classgate/internal/classfile"
	"github.com/seitarof/classgate/internal/predicate"
)

// Result is the outcome of one Transform call.
type Result struct {
	// Bytes is the input slice itself when admitted, nil when vetoed.
	Bytes      []byte
	Verdict    predicate.Verdict
	Descriptor *classfile.TypeDescriptor
}

// Vetoed reports whether the type was rejected.
func (r Result) Vetoed() bool {
	return !r.Verdict.Admitted()
}

// Transformer decides whether a type's bytes may be defined.
type Transformer interface {
	Transform(name string, b []byte) (Result, error)
}

type transformerImpl struct {
	parser    classfile.Parser
	predicate predicate.Predicate
}

// New returns a transformer classifying with p. A nil p means predicate.Default().
func New(p predicate.Predicate) Transformer {
	if p == nil {
		p = predicate.Default()
	}
	return &transformerImpl{parser: classfile.New(), predicate: p}
}

// Transform never modifies b. Malformed input is returned as an error, not a veto.
func (t *transformerImpl) Transform(name string, b []byte) (Result, error) {
	desc, err := t.parser.Parse(b)
	if err != nil {
		return Result{}, err
	}
	v := t.predicate.Classify(desc)
	if !v.Admitted() {
		return Result{Verdict: v, Descriptor: desc}, nil
	}
	return Result{Bytes: b, Verdict: v, Descriptor: desc}, nil
}
