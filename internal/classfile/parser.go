package classfile

import "errors"

const (
	magic = 0xCAFEBABE

	MinMajorVersion = 45
	MaxMajorVersion = 70

	initializerName = "<clinit>"
)

// Parser turns raw class-file bytes into a TypeDescriptor.
type Parser interface {
	Parse(b []byte) (*TypeDescriptor, error)
}

type parserImpl struct{}

// New returns default parser.
func New() Parser {
	return &parserImpl{}
}

// Parse parses b with the default parser.
func Parse(b []byte) (*TypeDescriptor, error) {
	return New().Parse(b)
}

func (p *parserImpl) Parse(b []byte) (*TypeDescriptor, error) {
	r := &reader{buf: b}
	if m := r.u4(); r.err == nil && m != magic {
		return nil, malformed("bad magic 0x%08x", m)
	}
	minor := r.u2()
	major := r.u2()
	if r.err != nil {
		return nil, r.err
	}
	if major < MinMajorVersion || major > MaxMajorVersion {
		return nil, malformed("unsupported class file version %d.%d", major, minor)
	}

	cp, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}

	desc := &TypeDescriptor{MajorVersion: major, MinorVersion: minor}
	desc.AccessFlags = AccessFlags(r.u2())
	thisIdx := r.u2()
	superIdx := r.u2()
	if r.err != nil {
		return nil, r.err
	}
	if desc.Name, err = cp.className(thisIdx); err != nil {
		return nil, malformed("this_class: %s", detailOf(err))
	}
	// Every error past this point carries the type name.
	if err := p.parseBody(r, cp, desc, superIdx); err != nil {
		var me *MalformedDescriptorError
		if errors.As(err, &me) && me.Name == "" {
			me.Name = desc.Name
		}
		return nil, err
	}
	return desc, nil
}

func (p *parserImpl) parseBody(r *reader, cp constantPool, desc *TypeDescriptor, superIdx uint16) error {
	if superIdx != 0 {
		super, err := cp.className(superIdx)
		if err != nil {
			return malformed("super_class: %s", detailOf(err))
		}
		desc.SuperName = super
	} else if desc.Name != "java.lang.Object" && !desc.AccessFlags.IsInterface() && desc.AccessFlags&AccModule == 0 {
		return malformed("missing super_class")
	}

	ifaceCount := r.u2()
	for i := 0; i < int(ifaceCount); i++ {
		idx := r.u2()
		if r.err != nil {
			return r.err
		}
		if _, err := cp.className(idx); err != nil {
			return malformed("interface %d: %s", i, detailOf(err))
		}
	}

	fieldCount := r.u2()
	if r.err != nil {
		return r.err
	}
	desc.Fields = make([]FieldDescriptor, 0, fieldCount)
	for i := 0; i < int(fieldCount); i++ {
		f, err := p.parseField(r, cp)
		if err != nil {
			return err
		}
		desc.Fields = append(desc.Fields, f)
	}

	methodCount := r.u2()
	if r.err != nil {
		return r.err
	}
	for i := 0; i < int(methodCount); i++ {
		if err := p.parseMethod(r, cp, desc); err != nil {
			return err
		}
	}

	if err := p.parseClassAttributes(r, cp, desc); err != nil {
		return err
	}
	if r.remaining() != 0 {
		return malformed("%d trailing bytes after class attributes", r.remaining())
	}
	return nil
}

func (p *parserImpl) parseField(r *reader, cp constantPool) (FieldDescriptor, error) {
	flags := AccessFlags(r.u2())
	nameIdx := r.u2()
	descIdx := r.u2()
	if r.err != nil {
		return FieldDescriptor{}, r.err
	}
	name, err := cp.utf8(nameIdx)
	if err != nil {
		return FieldDescriptor{}, malformed("field name: %s", detailOf(err))
	}
	rawDesc, err := cp.utf8(descIdx)
	if err != nil {
		return FieldDescriptor{}, malformed("field %s descriptor: %s", name, detailOf(err))
	}
	ft, err := ParseFieldType(rawDesc)
	if err != nil {
		return FieldDescriptor{}, malformed("field %s: %v", name, err)
	}
	f := FieldDescriptor{Name: name, Descriptor: rawDesc, Type: ft, Flags: flags}

	err = readAttributes(r, cp, func(attr string, body *reader) error {
		if attr != "ConstantValue" {
			return nil
		}
		// The JVM ignores ConstantValue on instance fields.
		if !flags.IsStatic() {
			body.bytes(body.remaining())
			return nil
		}
		if f.Constant != nil {
			return malformed("field %s: duplicate ConstantValue attribute", name)
		}
		idx := body.u2()
		if body.err != nil {
			return body.err
		}
		cv, err := cp.constant(idx)
		if err != nil {
			return malformed("field %s ConstantValue: %s", name, detailOf(err))
		}
		if !constantMatchesType(cv, ft) {
			return malformed("field %s: %s constant does not fit type %s", name, cv.Kind, ft.TypeName)
		}
		f.Constant = &cv
		return nil
	})
	if err != nil {
		return FieldDescriptor{}, err
	}
	return f, nil
}

func (p *parserImpl) parseMethod(r *reader, cp constantPool, desc *TypeDescriptor) error {
	r.u2() // access flags
	nameIdx := r.u2()
	descIdx := r.u2()
	if r.err != nil {
		return r.err
	}
	name, err := cp.utf8(nameIdx)
	if err != nil {
		return malformed("method name: %s", detailOf(err))
	}
	mdesc, err := cp.utf8(descIdx)
	if err != nil {
		return malformed("method %s descriptor: %s", name, detailOf(err))
	}
	isInit := name == initializerName
	if isInit && mdesc != "()V" {
		return malformed("class initializer has descriptor %s", mdesc)
	}

	return readAttributes(r, cp, func(attr string, body *reader) error {
		if attr != "Code" || !isInit {
			return nil
		}
		if desc.Initializer != nil {
			return malformed("duplicate class initializer")
		}
		body.u2() // max_stack
		body.u2() // max_locals
		codeLen := body.u4()
		if body.err != nil {
			return body.err
		}
		if codeLen == 0 {
			return malformed("class initializer has empty Code array")
		}
		code := body.bytes(int(codeLen))
		excCount := body.u2()
		body.bytes(int(excCount) * 8)
		if body.err != nil {
			return body.err
		}
		if err := readAttributes(body, cp, func(string, *reader) error { return nil }); err != nil {
			return err
		}
		ops, err := decodeInstructions(code, cp)
		if err != nil {
			return malformed("class initializer: %s", detailOf(err))
		}
		desc.Initializer = &InitializerBody{Operations: ops}
		return nil
	})
}

func (p *parserImpl) parseClassAttributes(r *reader, cp constantPool, desc *TypeDescriptor) error {
	seen := map[string]bool{}
	addNested := func(name string) {
		if name == desc.Name || seen[name] {
			return
		}
		seen[name] = true
		desc.NestedTypes = append(desc.NestedTypes, name)
	}

	return readAttributes(r, cp, func(attr string, body *reader) error {
		switch attr {
		case "InnerClasses":
			n := body.u2()
			for i := 0; i < int(n); i++ {
				innerIdx := body.u2()
				outerIdx := body.u2()
				body.u2() // inner_name_index
				body.u2() // inner_class_access_flags
				if body.err != nil {
					return body.err
				}
				inner, err := cp.className(innerIdx)
				if err != nil {
					return malformed("InnerClasses[%d]: %s", i, detailOf(err))
				}
				if outerIdx == 0 {
					continue
				}
				outer, err := cp.className(outerIdx)
				if err != nil {
					return malformed("InnerClasses[%d] outer: %s", i, detailOf(err))
				}
				switch {
				case outer == desc.Name:
					addNested(inner)
				case inner == desc.Name:
					desc.OuterName = outer
				}
			}
		case "NestHost":
			idx := body.u2()
			if body.err != nil {
				return body.err
			}
			host, err := cp.className(idx)
			if err != nil {
				return malformed("NestHost: %s", detailOf(err))
			}
			if desc.OuterName == "" {
				desc.OuterName = host
			}
		}
		return nil
	})
}

// readAttributes iterates an attribute table. fn receives a reader bounded
// to the attribute body; unread bytes of known attributes are an error.
func readAttributes(r *reader, cp constantPool, fn func(name string, body *reader) error) error {
	count := r.u2()
	if r.err != nil {
		return r.err
	}
	for i := 0; i < int(count); i++ {
		nameIdx := r.u2()
		length := r.u4()
		if r.err != nil {
			return r.err
		}
		name, err := cp.utf8(nameIdx)
		if err != nil {
			return malformed("attribute name: %s", detailOf(err))
		}
		if uint64(length) > uint64(r.remaining()) {
			return malformed("attribute %s length %d exceeds remaining %d bytes", name, length, r.remaining())
		}
		body := &reader{buf: r.bytes(int(length))}
		if err := fn(name, body); err != nil {
			return err
		}
		if body.err != nil {
			return malformed("attribute %s: %s", name, detailOf(body.err))
		}
		if knownAttribute(name) && body.remaining() != 0 {
			return malformed("attribute %s has %d unexpected trailing bytes", name, body.remaining())
		}
	}
	return nil
}

func knownAttribute(name string) bool {
	switch name {
	case "ConstantValue", "InnerClasses", "NestHost":
		return true
	}
	return false
}

func constantMatchesType(cv ConstantValue, ft FieldType) bool {
	if ft.Kind == TypeKindObject {
		return cv.Kind == ConstantString && ft.IsString()
	}
	if ft.Kind != TypeKindBase {
		return false
	}
	switch ft.Base {
	case 'J':
		return cv.Kind == ConstantLong
	case 'F':
		return cv.Kind == ConstantFloat
	case 'D':
		return cv.Kind == ConstantDouble
	default:
		return cv.Kind == ConstantInt
	}
}
