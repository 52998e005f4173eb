package classfile_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/seitarof/classgate/internal/classfile"
	"github.com/seitarof/classgate/internal/classfile/classfiletest"
)

func TestParse_StaticFinalLiteral(t *testing.T) {
	desc, err := classfile.Parse(classfiletest.StaticFinalLiteral())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if desc.Name != classfiletest.StaticFinalLiteralName {
		t.Fatalf("Name = %s, want %s", desc.Name, classfiletest.StaticFinalLiteralName)
	}
	if desc.SuperName != "java.lang.Object" {
		t.Fatalf("SuperName = %s", desc.SuperName)
	}
	if desc.Initializer != nil {
		t.Fatalf("unexpected initializer: %#v", desc.Initializer)
	}

	got := map[string]any{}
	for _, f := range desc.Fields {
		if f.Constant != nil {
			got[f.Name] = f.Constant.Value()
		}
	}
	want := map[string]any{
		"ANSWER": int32(42),
		"BIG":    int64(1 << 40),
		"RATIO":  float32(0.5),
		"PI":     3.14159,
		"NAME":   "classgate",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("constants mismatch (-want +got):\n%s", diff)
	}

	inst := desc.Field("instanceState")
	if inst == nil {
		t.Fatal("instanceState field not found")
	}
	if inst.Flags.IsStatic() || inst.Constant != nil {
		t.Fatalf("instanceState should be a plain instance field: %#v", inst)
	}
	name := desc.Field("NAME")
	if name == nil || !name.Type.IsString() {
		t.Fatalf("NAME should be a String field, got %#v", name)
	}
}

func TestParse_InitializerOperations(t *testing.T) {
	desc, err := classfile.Parse(classfiletest.StaticInitBlock())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if desc.Initializer == nil {
		t.Fatal("initializer not found")
	}

	var mnemonics []string
	for _, op := range desc.Initializer.Operations {
		mnemonics = append(mnemonics, op.Mnemonic)
	}
	want := []string{"getstatic", "ldc", "invokevirtual", "return"}
	if diff := cmp.Diff(want, mnemonics); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}

	first := desc.Initializer.FirstEffect()
	if first == nil || first.Effect != classfile.EffectStaticLoad {
		t.Fatalf("FirstEffect() = %v, want static load", first)
	}
	if first.Ref == nil || first.Ref.Owner != "java.lang.System" || first.Ref.Name != "out" {
		t.Fatalf("unexpected ref: %v", first.Ref)
	}
	if desc.Initializer.IsTrivial(desc) {
		t.Fatal("initializer with a call should not be trivial")
	}
}

func TestParse_FoldedInitializerIsTrivial(t *testing.T) {
	desc, err := classfile.Parse(classfiletest.FoldedInitializer())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if desc.Initializer == nil {
		t.Fatal("initializer not found")
	}
	if !desc.Initializer.IsTrivial(desc) {
		t.Fatalf("constant re-store should be trivial: %v", desc.Initializer.Operations)
	}
}

func TestInitializerBody_IsTrivial(t *testing.T) {
	owner := &classfile.TypeDescriptor{
		Name: "a.B",
		Fields: []classfile.FieldDescriptor{
			{Name: "K", Descriptor: "I", Flags: classfile.AccStatic | classfile.AccFinal, Constant: &classfile.ConstantValue{Kind: classfile.ConstantInt, Int: 1}},
			{Name: "v", Descriptor: "I", Flags: classfile.AccStatic},
		},
	}
	store := func(name string) classfile.Operation {
		return classfile.Operation{Effect: classfile.EffectStaticStore, Ref: &classfile.MemberRef{Owner: "a.B", Name: name, Descriptor: "I"}}
	}
	pushInt := func(v int64) classfile.Operation {
		return classfile.Operation{Effect: classfile.EffectConstant, Value: &classfile.ConstantValue{Kind: classfile.ConstantInt, Int: v}}
	}
	push := pushInt(1)
	ret := classfile.Operation{Effect: classfile.EffectReturn}

	tests := []struct {
		name string
		ops  []classfile.Operation
		want bool
	}{
		{name: "nil body", ops: nil, want: true},
		{name: "return only", ops: []classfile.Operation{ret}, want: true},
		{name: "folded store", ops: []classfile.Operation{push, store("K"), ret}, want: true},
		{name: "store to field without constant", ops: []classfile.Operation{push, store("v"), ret}, want: false},
		{name: "store without push", ops: []classfile.Operation{store("K"), ret}, want: false},
		{name: "dangling push", ops: []classfile.Operation{push, ret}, want: false},
		{name: "invoke", ops: []classfile.Operation{{Effect: classfile.EffectInvoke}, ret}, want: false},
		{name: "store of a different literal", ops: []classfile.Operation{pushInt(3), store("K"), ret}, want: false},
		{name: "push without literal", ops: []classfile.Operation{{Effect: classfile.EffectConstant}, store("K"), ret}, want: false},
		{name: "long literal into int field", ops: []classfile.Operation{{Effect: classfile.EffectConstant, Value: &classfile.ConstantValue{Kind: classfile.ConstantLong, Int: 1}}, store("K"), ret}, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			body := &classfile.InitializerBody{Operations: tc.ops}
			if got := body.IsTrivial(owner); got != tc.want {
				t.Fatalf("IsTrivial() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParse_InitializerRestoresOnlyFoldedLiterals(t *testing.T) {
	const name = "x.Seven"
	build := func(push func(b *classfiletest.Builder) []byte) []byte {
		b := classfiletest.New(name)
		val := b.Int(7)
		ref := b.Fieldref(name, "SEVEN", "I")
		return b.ConstantField(classfiletest.AccStatic|classfiletest.AccFinal, "SEVEN", "I", val).
			StaticInit(classfiletest.Code(push(b), []byte{0xb3}, classfiletest.U2(ref), []byte{0xb1})).
			Bytes()
	}

	tests := []struct {
		name string
		push func(b *classfiletest.Builder) []byte
		want bool
	}{
		{name: "bipush same literal", push: func(*classfiletest.Builder) []byte { return []byte{0x10, 0x07} }, want: true},
		{name: "sipush same literal", push: func(*classfiletest.Builder) []byte { return []byte{0x11, 0x00, 0x07} }, want: true},
		{name: "ldc same literal", push: func(b *classfiletest.Builder) []byte { return []byte{0x12, byte(b.Int(7))} }, want: true},
		{name: "iconst different literal", push: func(*classfiletest.Builder) []byte { return []byte{0x06} }, want: false},
		{name: "ldc_w dynamic constant", push: func(b *classfiletest.Builder) []byte {
			return append([]byte{0x13}, classfiletest.U2(b.Dynamic(0, "seven", "I"))...)
		}, want: false},
		{name: "aconst_null", push: func(*classfiletest.Builder) []byte { return []byte{0x01} }, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			desc, err := classfile.Parse(build(tc.push))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := desc.Initializer.IsTrivial(desc); got != tc.want {
				t.Fatalf("IsTrivial() = %v, want %v: %v", got, tc.want, desc.Initializer.Operations)
			}
		})
	}
}

func TestParse_InitializerLiteralValues(t *testing.T) {
	code := []byte{0x02, 0x0a, 0x0d, 0x0e, 0x10, 0xfe, 0x11, 0x01, 0x00, 0xb1}
	desc, err := classfile.Parse(classfiletest.New("x.Literals").StaticInit(code).Bytes())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	var got []any
	for _, op := range desc.Initializer.Operations {
		if op.Value != nil {
			got = append(got, op.Value.Value())
		}
	}
	want := []any{int32(-1), int64(1), float32(2), float64(0), int32(-2), int32(256)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("pushed literals mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_InstanceFieldConstantValueIgnored(t *testing.T) {
	b := classfiletest.New("x.InstanceConstant")
	text := b.String("not an int")
	input := b.ConstantField(0, "count", "I", text).
		ConstantField(0, "twice", "J", b.Long(1)).
		Constructor().
		Bytes()

	desc, err := classfile.Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	for _, name := range []string{"count", "twice"} {
		f := desc.Field(name)
		if f == nil {
			t.Fatalf("field %s not found", name)
		}
		if f.Constant != nil {
			t.Fatalf("field %s: instance field kept constant %v", name, f.Constant)
		}
	}
}

func TestParse_NestedTypes(t *testing.T) {
	outer, err := classfile.Parse(classfiletest.NestedOuter())
	if err != nil {
		t.Fatalf("Parse(outer) error = %v", err)
	}
	if diff := cmp.Diff([]string{classfiletest.NestedInnerName}, outer.NestedTypes); diff != "" {
		t.Fatalf("NestedTypes mismatch (-want +got):\n%s", diff)
	}
	if outer.OuterName != "" {
		t.Fatalf("outer should not have an outer type, got %s", outer.OuterName)
	}

	inner, err := classfile.Parse(classfiletest.NestedInner())
	if err != nil {
		t.Fatalf("Parse(inner) error = %v", err)
	}
	if inner.OuterName != classfiletest.NestedOuterName {
		t.Fatalf("OuterName = %q, want %q", inner.OuterName, classfiletest.NestedOuterName)
	}
	if len(inner.NestedTypes) != 0 {
		t.Fatalf("inner should not list itself as nested: %v", inner.NestedTypes)
	}
}

func TestParse_Malformed(t *testing.T) {
	good := classfiletest.Plain()

	badIndex := classfiletest.New("x.Bad")
	badIndex.ConstantField(classfiletest.AccStatic|classfiletest.AccFinal, "K", "I", 999)

	badDesc := classfiletest.New("x.BadDesc").Field(classfiletest.AccStatic, "f", "Q")

	mismatched := classfiletest.New("x.Mismatch")
	mismatched.ConstantField(classfiletest.AccStatic|classfiletest.AccFinal, "K", "J", mismatched.Int(1))

	badOpcode := classfiletest.New("x.BadOp").StaticInit([]byte{0xfe})
	truncatedCode := classfiletest.New("x.Trunc").StaticInit([]byte{0xb3, 0x00})

	tests := []struct {
		name   string
		input  []byte
		detail string
	}{
		{name: "empty", input: nil, detail: "truncated"},
		{name: "bad magic", input: append([]byte{0xCA, 0xFE, 0xBA, 0xBF}, good[4:]...), detail: "bad magic"},
		{name: "bad version", input: append(append([]byte{}, good[:6]...), append([]byte{0x00, 0x10}, good[8:]...)...), detail: "version"},
		{name: "truncated", input: good[:len(good)-2], detail: "truncated"},
		{name: "trailing bytes", input: append(append([]byte{}, good...), 0x00), detail: "trailing"},
		{name: "constant index out of range", input: badIndex.Bytes(), detail: "out of range"},
		{name: "invalid field descriptor", input: badDesc.Bytes(), detail: "descriptor"},
		{name: "constant type mismatch", input: mismatched.Bytes(), detail: "does not fit"},
		{name: "invalid opcode", input: badOpcode.Bytes(), detail: "invalid opcode"},
		{name: "truncated instruction", input: truncatedCode.Bytes(), detail: "truncated putstatic"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := classfile.Parse(tc.input)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var me *classfile.MalformedDescriptorError
			if !errors.As(err, &me) {
				t.Fatalf("error type = %T, want *MalformedDescriptorError", err)
			}
			if !strings.Contains(me.Detail, tc.detail) {
				t.Fatalf("detail = %q, want substring %q", me.Detail, tc.detail)
			}
		})
	}
}

func TestParse_MalformedCarriesName(t *testing.T) {
	b := classfiletest.New("x.Named").Field(classfiletest.AccStatic, "f", "Lunterminated")
	_, err := classfile.Parse(b.Bytes())
	var me *classfile.MalformedDescriptorError
	if !errors.As(err, &me) {
		t.Fatalf("error = %v, want *MalformedDescriptorError", err)
	}
	if me.Name != "x.Named" {
		t.Fatalf("Name = %q, want x.Named", me.Name)
	}
}

func TestParse_SwitchInstructions(t *testing.T) {
	// iconst_0; tableswitch (pad 2) default=.. low=0 high=1 two targets; return
	table := classfiletest.Code(
		[]byte{0x03, 0xaa, 0x00, 0x00},
		classfiletest.U4(20), classfiletest.U4(0), classfiletest.U4(1),
		classfiletest.U4(20), classfiletest.U4(20),
		[]byte{0xb1},
	)
	desc, err := classfile.Parse(classfiletest.New("x.Switch").StaticInit(table).Bytes())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	ops := desc.Initializer.Operations
	if len(ops) != 3 || ops[1].Mnemonic != "tableswitch" || ops[2].Offset != 24 {
		t.Fatalf("unexpected operations: %v", ops)
	}

	// iconst_0; lookupswitch (pad 2) default npairs=1 one pair; return
	lookup := classfiletest.Code(
		[]byte{0x03, 0xab, 0x00, 0x00},
		classfiletest.U4(20), classfiletest.U4(1),
		classfiletest.U4(5), classfiletest.U4(20),
		[]byte{0xb1},
	)
	desc, err = classfile.Parse(classfiletest.New("x.Lookup").StaticInit(lookup).Bytes())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	ops = desc.Initializer.Operations
	if len(ops) != 3 || ops[1].Mnemonic != "lookupswitch" || ops[2].Offset != 20 {
		t.Fatalf("unexpected operations: %v", ops)
	}

	// wide iinc 1 1; return
	wide := []byte{0xc4, 0x84, 0x00, 0x01, 0x00, 0x01, 0xb1}
	desc, err = classfile.Parse(classfiletest.New("x.Wide").StaticInit(wide).Bytes())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(desc.Initializer.Operations) != 2 {
		t.Fatalf("unexpected operations: %v", desc.Initializer.Operations)
	}
}

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		desc    string
		want    string
		kind    classfile.TypeKind
		wantErr bool
	}{
		{desc: "I", want: "int", kind: classfile.TypeKindBase},
		{desc: "Ljava/lang/String;", want: "java.lang.String", kind: classfile.TypeKindObject},
		{desc: "[[J", want: "long[][]", kind: classfile.TypeKindArray},
		{desc: "[Lorg/x/Outer$Inner;", want: "org.x.Outer$Inner[]", kind: classfile.TypeKindArray},
		{desc: "", wantErr: true},
		{desc: "L;", wantErr: true},
		{desc: "II", wantErr: true},
		{desc: "V", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.desc, func(t *testing.T) {
			got, err := classfile.ParseFieldType(tc.desc)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseFieldType(%q) expected error", tc.desc)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFieldType(%q) error = %v", tc.desc, err)
			}
			if got.TypeName != tc.want || got.Kind != tc.kind {
				t.Fatalf("ParseFieldType(%q) = %s/%v, want %s/%v", tc.desc, got.TypeName, got.Kind, tc.want, tc.kind)
			}
		})
	}
}

func TestAccessFlags_String(t *testing.T) {
	got := (classfile.AccPublic | classfile.AccStatic | classfile.AccFinal).String()
	if got != "public static final" {
		t.Fatalf("String() = %q", got)
	}
}
