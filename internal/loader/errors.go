package loader

import (
	"errors"
	"fmt"

	"github.com/seitarof/classgate/internal/predicate"
)

var (
	// ErrDuplicateDefinition means a loader tried to define one name twice.
	ErrDuplicateDefinition = errors.New("loader: duplicate type definition")
	// ErrNotInstantiable is returned by NewInstance for interfaces and abstract types.
	ErrNotInstantiable = errors.New("loader: type is not instantiable")
)

// ClassFormatViolation reports a structurally valid type refused by the
// static-initialization rules. It is an expected, catchable condition.
type ClassFormatViolation struct {
	Name   string
	Reason predicate.Reason
	// Member is the offending field, "<clinit>" or nested type.
	Member string
}

func (e *ClassFormatViolation) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("class format violation: %s rejected: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("class format violation: %s rejected: %s (%s)", e.Name, e.Reason, e.Member)
}

// TypeNotFoundError reports that no resolver or byte source supplies Name.
type TypeNotFoundError struct {
	Name string
}

func (e *TypeNotFoundError) Error() string {
	return "type not found: " + e.Name
}

// IsViolation reports whether err is or wraps a *ClassFormatViolation.
func IsViolation(err error) bool {
	var v *ClassFormatViolation
	return errors.As(err, &v)
}

// IsNotFound reports whether err is or wraps a *TypeNotFoundError.
func IsNotFound(err error) bool {
	var nf *TypeNotFoundError
	return errors.As(err, &nf)
}
