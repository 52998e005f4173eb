package classfile

import (
	"fmt"
	"strings"
)

// TypeKind is coarse-grained field type category.
type TypeKind int

const (
	TypeKindBase TypeKind = iota
	TypeKindObject
	TypeKindArray
)

// FieldType keeps parsed field descriptor metadata.
type FieldType struct {
	Kind TypeKind
	// Base is the descriptor character for base types (B C D F I J S Z).
	Base      byte
	ClassName string
	ElemType  *FieldType
	TypeName  string
}

var baseTypeNames = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
}

// ParseFieldType parses a JVM field descriptor such as "I", "[J" or "Ljava/lang/String;".
func ParseFieldType(desc string) (FieldType, error) {
	t, rest, err := parseFieldType(desc, 0)
	if err != nil {
		return FieldType{}, err
	}
	if rest != "" {
		return FieldType{}, fmt.Errorf("trailing %q in field descriptor %q", rest, desc)
	}
	return t, nil
}

func parseFieldType(desc string, dims int) (FieldType, string, error) {
	if desc == "" {
		return FieldType{}, "", fmt.Errorf("empty field descriptor")
	}
	if dims > 255 {
		return FieldType{}, "", fmt.Errorf("array descriptor exceeds 255 dimensions")
	}
	c := desc[0]
	if name, ok := baseTypeNames[c]; ok {
		return FieldType{Kind: TypeKindBase, Base: c, TypeName: name}, desc[1:], nil
	}
	switch c {
	case 'L':
		end := strings.IndexByte(desc, ';')
		if end <= 1 {
			return FieldType{}, "", fmt.Errorf("unterminated class descriptor %q", desc)
		}
		internal := desc[1:end]
		if strings.ContainsAny(internal, ".[;") {
			return FieldType{}, "", fmt.Errorf("invalid class name %q in descriptor", internal)
		}
		name := BinaryName(internal)
		return FieldType{Kind: TypeKindObject, ClassName: name, TypeName: name}, desc[end+1:], nil
	case '[':
		elem, rest, err := parseFieldType(desc[1:], dims+1)
		if err != nil {
			return FieldType{}, "", err
		}
		return FieldType{Kind: TypeKindArray, ElemType: &elem, TypeName: elem.TypeName + "[]"}, rest, nil
	default:
		return FieldType{}, "", fmt.Errorf("unknown descriptor character %q", c)
	}
}

// IsString reports whether the type is java.lang.String.
func (t FieldType) IsString() bool {
	return t.Kind == TypeKindObject && t.ClassName == "java.lang.String"
}

// BinaryName converts an internal name (a/b/C$D) into a qualified name (a.b.C$D).
func BinaryName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// InternalName converts a qualified name into its internal form.
func InternalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}
