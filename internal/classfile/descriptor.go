package classfile

import (
	"fmt"
	"math"
)

// TypeDescriptor is the parsed, immutable view of one compiled type.
type TypeDescriptor struct {
	Name         string
	SuperName    string
	OuterName    string
	AccessFlags  AccessFlags
	MajorVersion uint16
	MinorVersion uint16
	Fields       []FieldDescriptor
	Initializer  *InitializerBody
	NestedTypes  []string
}

// Field returns the field with the given name, or nil.
func (d *TypeDescriptor) Field(name string) *FieldDescriptor {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i]
		}
	}
	return nil
}

// StaticConstants returns the compile-time constants of all static final fields.
func (d *TypeDescriptor) StaticConstants() map[string]ConstantValue {
	out := map[string]ConstantValue{}
	for _, f := range d.Fields {
		if f.Constant != nil && f.Flags.IsStatic() {
			out[f.Name] = *f.Constant
		}
	}
	return out
}

// FieldDescriptor describes one declared field.
type FieldDescriptor struct {
	Name       string
	Descriptor string
	Type       FieldType
	Flags      AccessFlags
	// Constant is set only when the compiler emitted a ConstantValue attribute.
	Constant *ConstantValue
}

// ConstantKind identifies the literal type of a ConstantValue attribute.
type ConstantKind int

const (
	ConstantInt ConstantKind = iota
	ConstantLong
	ConstantFloat
	ConstantDouble
	ConstantString
)

func (k ConstantKind) String() string {
	switch k {
	case ConstantInt:
		return "int"
	case ConstantLong:
		return "long"
	case ConstantFloat:
		return "float"
	case ConstantDouble:
		return "double"
	case ConstantString:
		return "string"
	default:
		return fmt.Sprintf("ConstantKind(%d)", int(k))
	}
}

// ConstantValue is a literal proven constant by the compiler.
type ConstantValue struct {
	Kind  ConstantKind
	Int   int64
	Float float64
	Str   string
}

// Value returns the constant as a Go value.
func (c ConstantValue) Value() any {
	switch c.Kind {
	case ConstantInt:
		return int32(c.Int)
	case ConstantLong:
		return c.Int
	case ConstantFloat:
		return float32(c.Float)
	case ConstantDouble:
		return c.Float
	default:
		return c.Str
	}
}

// Equal reports whether c and o are the same literal. Floating point
// values compare by bit pattern.
func (c ConstantValue) Equal(o ConstantValue) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case ConstantFloat:
		return math.Float32bits(float32(c.Float)) == math.Float32bits(float32(o.Float))
	case ConstantDouble:
		return math.Float64bits(c.Float) == math.Float64bits(o.Float)
	case ConstantString:
		return c.Str == o.Str
	default:
		return c.Int == o.Int
	}
}

func (c ConstantValue) String() string {
	if c.Kind == ConstantString {
		return fmt.Sprintf("%q", c.Str)
	}
	return fmt.Sprint(c.Value())
}

// MemberRef is a resolved Fieldref/Methodref/InterfaceMethodref.
type MemberRef struct {
	Owner      string
	Name       string
	Descriptor string
}

func (r MemberRef) String() string {
	return r.Owner + "." + r.Name + ":" + r.Descriptor
}
