package classfile

import (
	"encoding/binary"
	"math"
	"unicode/utf16"
)

// Constant pool tags.
const (
	TagUtf8               uint8 = 1
	TagInteger            uint8 = 3
	TagFloat              uint8 = 4
	TagLong               uint8 = 5
	TagDouble             uint8 = 6
	TagClass              uint8 = 7
	TagString             uint8 = 8
	TagFieldref           uint8 = 9
	TagMethodref          uint8 = 10
	TagInterfaceMethodref uint8 = 11
	TagNameAndType        uint8 = 12
	TagMethodHandle       uint8 = 15
	TagMethodType         uint8 = 16
	TagDynamic            uint8 = 17
	TagInvokeDynamic      uint8 = 18
	TagModule             uint8 = 19
	TagPackage            uint8 = 20
)

// cpEntry is one constant pool slot. Index operands are kept raw and
// checked once the whole pool has been read.
type cpEntry struct {
	tag  uint8
	str  string
	bits uint64
	a, b uint16
}

type constantPool []cpEntry

func readConstantPool(r *reader) (constantPool, error) {
	count := r.u2()
	if r.err != nil {
		return nil, r.err
	}
	if count == 0 {
		return nil, malformed("constant pool count is zero")
	}
	cp := make(constantPool, count)
	for i := 1; i < int(count); i++ {
		tag := r.u1()
		e := cpEntry{tag: tag}
		switch tag {
		case TagUtf8:
			n := r.u2()
			raw := r.bytes(int(n))
			if r.err != nil {
				return nil, r.err
			}
			s, ok := decodeModifiedUTF8(raw)
			if !ok {
				return nil, malformed("constant pool #%d: invalid modified UTF-8", i)
			}
			e.str = s
		case TagInteger, TagFloat:
			e.bits = uint64(r.u4())
		case TagLong, TagDouble:
			e.bits = r.u8()
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			e.a = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			e.a = r.u2()
			e.b = r.u2()
		case TagMethodHandle:
			e.a = uint16(r.u1())
			e.b = r.u2()
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, malformed("constant pool #%d: unknown tag %d", i, tag)
		}
		if r.err != nil {
			return nil, r.err
		}
		cp[i] = e
		if tag == TagLong || tag == TagDouble {
			// 8-byte constants take two slots; the second is unusable.
			i++
			if i >= int(count) {
				return nil, malformed("constant pool #%d: 8-byte constant overflows pool", i-1)
			}
		}
	}
	if err := cp.validate(); err != nil {
		return nil, err
	}
	return cp, nil
}

// validate checks every cross reference inside the pool.
func (cp constantPool) validate() error {
	for i, e := range cp {
		var err error
		switch e.tag {
		case TagClass, TagModule, TagPackage:
			_, err = cp.utf8(e.a)
		case TagString, TagMethodType:
			_, err = cp.utf8(e.a)
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			if _, err = cp.entry(e.a, TagClass); err == nil {
				_, err = cp.entry(e.b, TagNameAndType)
			}
		case TagNameAndType:
			if _, err = cp.utf8(e.a); err == nil {
				_, err = cp.utf8(e.b)
			}
		case TagDynamic, TagInvokeDynamic:
			_, err = cp.entry(e.b, TagNameAndType)
		case TagMethodHandle:
			if e.a < 1 || e.a > 9 {
				return malformed("constant pool #%d: invalid method handle kind %d", i, e.a)
			}
			if int(e.b) == 0 || int(e.b) >= len(cp) || cp[e.b].tag == 0 {
				return malformed("constant pool #%d: invalid method handle reference #%d", i, e.b)
			}
		}
		if err != nil {
			return malformed("constant pool #%d: %s", i, detailOf(err))
		}
	}
	return nil
}

func (cp constantPool) entry(idx uint16, tag uint8) (cpEntry, error) {
	if idx == 0 || int(idx) >= len(cp) {
		return cpEntry{}, malformed("index #%d out of range", idx)
	}
	e := cp[idx]
	if e.tag != tag {
		return cpEntry{}, malformed("index #%d has tag %d, want %d", idx, e.tag, tag)
	}
	return e, nil
}

func (cp constantPool) utf8(idx uint16) (string, error) {
	e, err := cp.entry(idx, TagUtf8)
	if err != nil {
		return "", err
	}
	return e.str, nil
}

// className resolves a CONSTANT_Class entry to a qualified name.
func (cp constantPool) className(idx uint16) (string, error) {
	e, err := cp.entry(idx, TagClass)
	if err != nil {
		return "", err
	}
	name, err := cp.utf8(e.a)
	if err != nil {
		return "", err
	}
	return BinaryName(name), nil
}

// memberRef resolves a field or method reference.
func (cp constantPool) memberRef(idx uint16, tags ...uint8) (MemberRef, error) {
	if idx == 0 || int(idx) >= len(cp) {
		return MemberRef{}, malformed("index #%d out of range", idx)
	}
	e := cp[idx]
	ok := false
	for _, t := range tags {
		if e.tag == t {
			ok = true
			break
		}
	}
	if !ok {
		return MemberRef{}, malformed("index #%d has tag %d, want member reference", idx, e.tag)
	}
	owner, err := cp.className(e.a)
	if err != nil {
		return MemberRef{}, err
	}
	nat, err := cp.entry(e.b, TagNameAndType)
	if err != nil {
		return MemberRef{}, err
	}
	name, err := cp.utf8(nat.a)
	if err != nil {
		return MemberRef{}, err
	}
	desc, err := cp.utf8(nat.b)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{Owner: owner, Name: name, Descriptor: desc}, nil
}

// constant resolves a ConstantValue attribute target.
func (cp constantPool) constant(idx uint16) (ConstantValue, error) {
	if idx == 0 || int(idx) >= len(cp) {
		return ConstantValue{}, malformed("index #%d out of range", idx)
	}
	e := cp[idx]
	switch e.tag {
	case TagInteger:
		return ConstantValue{Kind: ConstantInt, Int: int64(int32(uint32(e.bits)))}, nil
	case TagLong:
		return ConstantValue{Kind: ConstantLong, Int: int64(e.bits)}, nil
	case TagFloat:
		return ConstantValue{Kind: ConstantFloat, Float: float64(math.Float32frombits(uint32(e.bits)))}, nil
	case TagDouble:
		return ConstantValue{Kind: ConstantDouble, Float: math.Float64frombits(e.bits)}, nil
	case TagString:
		s, err := cp.utf8(e.a)
		if err != nil {
			return ConstantValue{}, err
		}
		return ConstantValue{Kind: ConstantString, Str: s}, nil
	default:
		return ConstantValue{}, malformed("index #%d has tag %d, not a constant value", idx, e.tag)
	}
}

// loadable reports whether idx names an entry ldc/ldc_w/ldc2_w may push.
func (cp constantPool) loadable(idx uint16, wide bool) bool {
	if idx == 0 || int(idx) >= len(cp) {
		return false
	}
	switch cp[idx].tag {
	case TagLong, TagDouble:
		return wide
	case TagInteger, TagFloat, TagString, TagClass, TagMethodHandle, TagMethodType:
		return !wide
	case TagDynamic:
		return true
	default:
		return false
	}
}

// decodeModifiedUTF8 decodes the JVM's modified UTF-8 (two-byte NUL,
// surrogate pairs encoded as separate three-byte sequences).
func decodeModifiedUTF8(b []byte) (string, bool) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == 0:
			return "", false
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", false
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", false
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", false
		}
	}
	return string(utf16.Decode(units)), true
}

// reader is a sticky-error big-endian cursor.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = malformed("truncated at offset %d: need %d bytes, have %d", r.off, n, len(r.buf)-r.off)
		return false
	}
	return true
}

func (r *reader) u1() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) u2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) u8() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}
