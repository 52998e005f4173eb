package loader

import (
	"github.com/seitarof/classgate/internal/classfile"
)

// LoadedType is a type defined by a Loader. It is never mutated.
type LoadedType struct {
	Name       string
	Descriptor *classfile.TypeDescriptor
	// Bytes are the admitted class-file bytes, unmodified.
	Bytes []byte
	// DefinedBy is the id of the defining loader.
	DefinedBy string
	statics   map[string]classfile.ConstantValue
}

func newLoadedType(desc *classfile.TypeDescriptor, b []byte, loaderID string) *LoadedType {
	return &LoadedType{
		Name:       desc.Name,
		Descriptor: desc,
		Bytes:      b,
		DefinedBy:  loaderID,
		statics:    desc.StaticConstants(),
	}
}

// Static returns the value of a static constant field.
func (t *LoadedType) Static(field string) (any, bool) {
	cv, ok := t.statics[field]
	if !ok {
		return nil, false
	}
	return cv.Value(), true
}

// Instance is an object of an admitted type with zero-valued instance fields.
type Instance struct {
	Type   *LoadedType
	Fields map[string]any
}

func newInstance(t *LoadedType) *Instance {
	fields := map[string]any{}
	for _, f := range t.Descriptor.Fields {
		if f.Flags.IsStatic() {
			continue
		}
		fields[f.Name] = zeroValue(f.Type)
	}
	return &Instance{Type: t, Fields: fields}
}

func zeroValue(ft classfile.FieldType) any {
	if ft.Kind != classfile.TypeKindBase {
		return nil
	}
	switch ft.Base {
	case 'Z':
		return false
	case 'B':
		return int8(0)
	case 'C':
		return uint16(0)
	case 'S':
		return int16(0)
	case 'I':
		return int32(0)
	case 'J':
		return int64(0)
	case 'F':
		return float32(0)
	case 'D':
		return float64(0)
	}
	return nil
}
