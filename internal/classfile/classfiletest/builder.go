// Package classfiletest assembles class files in memory for tests.
package classfiletest

import (
	"encoding/binary"
	"math"
	"strings"
	"unicode/utf16"
)

// Access flags used by fixtures.
const (
	AccPublic    = 0x0001
	AccStatic    = 0x0008
	AccFinal     = 0x0010
	AccSuper     = 0x0020
	AccInterface = 0x0200
	AccAbstract  = 0x0400
)

// Builder assembles one class file. Names are qualified (dotted).
type Builder struct {
	name    string
	super   string
	flags   uint16
	major   uint16
	pool    [][]byte
	index   map[string]uint16
	fields  [][]byte
	methods [][]byte
	inner   [][4]uint16
}

// New starts a public class extending java.lang.Object.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		super: "java.lang.Object",
		flags: AccPublic | AccSuper,
		major: 52,
		pool:  [][]byte{nil},
		index: map[string]uint16{},
	}
}

// Version sets the class file major version.
func (b *Builder) Version(major uint16) *Builder {
	b.major = major
	return b
}

// Flags sets the class access flags.
func (b *Builder) Flags(flags uint16) *Builder {
	b.flags = flags
	return b
}

func (b *Builder) add(key string, entry []byte, slots int) uint16 {
	if idx, ok := b.index[key]; ok {
		return idx
	}
	idx := uint16(len(b.pool))
	b.pool = append(b.pool, entry)
	for i := 1; i < slots; i++ {
		b.pool = append(b.pool, nil)
	}
	b.index[key] = idx
	return idx
}

// Utf8 interns a CONSTANT_Utf8.
func (b *Builder) Utf8(s string) uint16 {
	enc := encodeModifiedUTF8(s)
	entry := append([]byte{1}, U2(uint16(len(enc)))...)
	return b.add("utf8:"+s, append(entry, enc...), 1)
}

// Class interns a CONSTANT_Class for a qualified name.
func (b *Builder) Class(name string) uint16 {
	idx := b.Utf8(strings.ReplaceAll(name, ".", "/"))
	return b.add("class:"+name, append([]byte{7}, U2(idx)...), 1)
}

// String interns a CONSTANT_String.
func (b *Builder) String(s string) uint16 {
	idx := b.Utf8(s)
	return b.add("string:"+s, append([]byte{8}, U2(idx)...), 1)
}

// Int interns a CONSTANT_Integer.
func (b *Builder) Int(v int32) uint16 {
	return b.add("int:"+string(U4(uint32(v))), append([]byte{3}, U4(uint32(v))...), 1)
}

// Float interns a CONSTANT_Float.
func (b *Builder) Float(v float32) uint16 {
	bits := U4(math.Float32bits(v))
	return b.add("float:"+string(bits), append([]byte{4}, bits...), 1)
}

// Long interns a CONSTANT_Long, which occupies two pool slots.
func (b *Builder) Long(v int64) uint16 {
	bits := binary.BigEndian.AppendUint64(nil, uint64(v))
	return b.add("long:"+string(bits), append([]byte{5}, bits...), 2)
}

// Double interns a CONSTANT_Double, which occupies two pool slots.
func (b *Builder) Double(v float64) uint16 {
	bits := binary.BigEndian.AppendUint64(nil, math.Float64bits(v))
	return b.add("double:"+string(bits), append([]byte{6}, bits...), 2)
}

// NameAndType interns a CONSTANT_NameAndType.
func (b *Builder) NameAndType(name, desc string) uint16 {
	n, d := b.Utf8(name), b.Utf8(desc)
	return b.add("nat:"+name+":"+desc, append(append([]byte{12}, U2(n)...), U2(d)...), 1)
}

// Dynamic interns a CONSTANT_Dynamic with the given bootstrap method index.
func (b *Builder) Dynamic(bootstrap uint16, name, desc string) uint16 {
	nat := b.NameAndType(name, desc)
	key := "dynamic:" + string(U2(bootstrap)) + name + ":" + desc
	return b.add(key, append(append([]byte{17}, U2(bootstrap)...), U2(nat)...), 1)
}

// Fieldref interns a CONSTANT_Fieldref.
func (b *Builder) Fieldref(owner, name, desc string) uint16 {
	return b.memberRef(9, owner, name, desc)
}

// Methodref interns a CONSTANT_Methodref.
func (b *Builder) Methodref(owner, name, desc string) uint16 {
	return b.memberRef(10, owner, name, desc)
}

func (b *Builder) memberRef(tag byte, owner, name, desc string) uint16 {
	c, nat := b.Class(owner), b.NameAndType(name, desc)
	key := "ref:" + string(rune(tag)) + owner + "." + name + ":" + desc
	return b.add(key, append(append([]byte{tag}, U2(c)...), U2(nat)...), 1)
}

// Field declares a field without attributes.
func (b *Builder) Field(flags uint16, name, desc string) *Builder {
	f := append(U2(flags), U2(b.Utf8(name))...)
	f = append(f, U2(b.Utf8(desc))...)
	b.fields = append(b.fields, append(f, U2(0)...))
	return b
}

// ConstantField declares a field carrying a ConstantValue attribute that
// points at pool entry constIdx.
func (b *Builder) ConstantField(flags uint16, name, desc string, constIdx uint16) *Builder {
	f := append(U2(flags), U2(b.Utf8(name))...)
	f = append(f, U2(b.Utf8(desc))...)
	f = append(f, U2(1)...)
	f = append(f, U2(b.Utf8("ConstantValue"))...)
	f = append(f, U4(2)...)
	f = append(f, U2(constIdx)...)
	b.fields = append(b.fields, f)
	return b
}

// Method declares a method with a Code attribute.
func (b *Builder) Method(flags uint16, name, desc string, code []byte) *Builder {
	m := append(U2(flags), U2(b.Utf8(name))...)
	m = append(m, U2(b.Utf8(desc))...)
	if code == nil {
		b.methods = append(b.methods, append(m, U2(0)...))
		return b
	}
	m = append(m, U2(1)...)
	m = append(m, U2(b.Utf8("Code"))...)
	m = append(m, U4(uint32(12+len(code)))...)
	m = append(m, U2(4)...) // max_stack
	m = append(m, U2(1)...) // max_locals
	m = append(m, U4(uint32(len(code)))...)
	m = append(m, code...)
	m = append(m, U2(0)...) // exception table
	m = append(m, U2(0)...) // attributes
	b.methods = append(b.methods, m)
	return b
}

// Constructor declares the default no-arg constructor.
func (b *Builder) Constructor() *Builder {
	ref := b.Methodref(b.super, "<init>", "()V")
	return b.Method(AccPublic, "<init>", "()V", Code([]byte{0x2a, 0xb7}, U2(ref), []byte{0xb1}))
}

// StaticInit declares a <clinit> with the given code.
func (b *Builder) StaticInit(code []byte) *Builder {
	return b.Method(AccStatic, "<clinit>", "()V", code)
}

// Inner records an InnerClasses entry.
func (b *Builder) Inner(inner, outer, simpleName string, flags uint16) *Builder {
	var outerIdx, nameIdx uint16
	if outer != "" {
		outerIdx = b.Class(outer)
	}
	if simpleName != "" {
		nameIdx = b.Utf8(simpleName)
	}
	b.inner = append(b.inner, [4]uint16{b.Class(inner), outerIdx, nameIdx, flags})
	return b
}

// Bytes serializes the class file.
func (b *Builder) Bytes() []byte {
	this := b.Class(b.name)
	var super uint16
	if b.super != "" {
		super = b.Class(b.super)
	}
	var attrs [][]byte
	if len(b.inner) > 0 {
		body := U2(uint16(len(b.inner)))
		for _, e := range b.inner {
			for _, v := range e {
				body = append(body, U2(v)...)
			}
		}
		attr := append(U2(b.Utf8("InnerClasses")), U4(uint32(len(body)))...)
		attrs = append(attrs, append(attr, body...))
	}

	out := U4(0xCAFEBABE)
	out = append(out, U2(0)...)
	out = append(out, U2(b.major)...)
	out = append(out, U2(uint16(len(b.pool)))...)
	for _, e := range b.pool {
		out = append(out, e...)
	}
	out = append(out, U2(b.flags)...)
	out = append(out, U2(this)...)
	out = append(out, U2(super)...)
	out = append(out, U2(0)...) // interfaces
	out = append(out, U2(uint16(len(b.fields)))...)
	for _, f := range b.fields {
		out = append(out, f...)
	}
	out = append(out, U2(uint16(len(b.methods)))...)
	for _, m := range b.methods {
		out = append(out, m...)
	}
	out = append(out, U2(uint16(len(attrs)))...)
	for _, a := range attrs {
		out = append(out, a...)
	}
	return out
}

// U2 encodes a big-endian u2.
func U2(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

// U4 encodes a big-endian u4.
func U4(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

// Code concatenates instruction fragments.
func Code(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func encodeModifiedUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u != 0 && u < 0x80:
			out = append(out, byte(u))
		case u < 0x800:
			out = append(out, 0xC0|byte(u>>6), 0x80|byte(u&0x3F))
		default:
			out = append(out, 0xE0|byte(u>>12), 0x80|byte((u>>6)&0x3F), 0x80|byte(u&0x3F))
		}
	}
	return out
}
