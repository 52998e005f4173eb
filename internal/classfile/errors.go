package classfile

import (
	"errors"
	"fmt"
)

// MalformedDescriptorError reports bytes that are not a well-formed class file.
type MalformedDescriptorError struct {
	// Name is the qualified type name, empty when parsing failed before this_class was read.
	Name   string
	Detail string
}

func (e *MalformedDescriptorError) Error() string {
	if e.Name == "" {
		return "malformed class file: " + e.Detail
	}
	return fmt.Sprintf("malformed class file %s: %s", e.Name, e.Detail)
}

func malformed(format string, args ...any) *MalformedDescriptorError {
	return &MalformedDescriptorError{Detail: fmt.Sprintf(format, args...)}
}

func detailOf(err error) string {
	var me *MalformedDescriptorError
	if errors.As(err, &me) {
		return me.Detail
	}
	return err.Error()
}
