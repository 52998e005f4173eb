package classfiletest

// Qualified names of the canned fixtures.
const (
	StaticLiteralNonFinalName = "org.example.data.ContainsStaticLiteralNonFinal"
	StaticFinalNonLiteralName = "org.example.data.ContainsStaticFinalNonLiteral"
	StaticInitBlockName       = "org.example.data.StaticInitBlockClass"
	StaticFinalLiteralName    = "org.example.data.ContainsStaticFinalLiteral"
	FoldedInitializerName     = "org.example.data.FoldedInitializer"
	NestedOuterName           = "org.example.data.NestedContainsStaticNonFinalOrNonLiteral"
	NestedInnerName           = NestedOuterName + "$Nested"
	PlainName                 = "org.example.data.Plain"
)

// StaticLiteralNonFinal: static int counter = 5;
func StaticLiteralNonFinal() []byte {
	b := New(StaticLiteralNonFinalName)
	ref := b.Fieldref(StaticLiteralNonFinalName, "counter", "I")
	return b.Field(AccStatic, "counter", "I").
		Constructor().
		StaticInit(Code([]byte{0x08, 0xb3}, U2(ref), []byte{0xb1})).
		Bytes()
}

// StaticFinalNonLiteral: static final Object LOCK = new Object();
func StaticFinalNonLiteral() []byte {
	b := New(StaticFinalNonLiteralName)
	obj := b.Class("java.lang.Object")
	ctor := b.Methodref("java.lang.Object", "<init>", "()V")
	ref := b.Fieldref(StaticFinalNonLiteralName, "LOCK", "Ljava/lang/Object;")
	return b.Field(AccStatic|AccFinal, "LOCK", "Ljava/lang/Object;").
		Constructor().
		StaticInit(Code(
			[]byte{0xbb}, U2(obj),
			[]byte{0x59},
			[]byte{0xb7}, U2(ctor),
			[]byte{0xb3}, U2(ref),
			[]byte{0xb1},
		)).
		Bytes()
}

// StaticInitBlock: static { System.out.println("loaded"); }
func StaticInitBlock() []byte {
	b := New(StaticInitBlockName)
	out := b.Fieldref("java.lang.System", "out", "Ljava/io/PrintStream;")
	msg := b.String("loaded")
	printLn := b.Methodref("java.io.PrintStream", "println", "(Ljava/lang/String;)V")
	return b.Constructor().
		StaticInit(Code(
			[]byte{0xb2}, U2(out),
			[]byte{0x12, byte(msg)},
			[]byte{0xb6}, U2(printLn),
			[]byte{0xb1},
		)).
		Bytes()
}

// StaticFinalLiteral: static final literals of every constant kind, no initializer.
func StaticFinalLiteral() []byte {
	b := New(StaticFinalLiteralName)
	return b.ConstantField(AccPublic|AccStatic|AccFinal, "ANSWER", "I", b.Int(42)).
		ConstantField(AccStatic|AccFinal, "BIG", "J", b.Long(1<<40)).
		ConstantField(AccStatic|AccFinal, "RATIO", "F", b.Float(0.5)).
		ConstantField(AccStatic|AccFinal, "PI", "D", b.Double(3.14159)).
		ConstantField(AccStatic|AccFinal, "NAME", "Ljava/lang/String;", b.String("classgate")).
		Field(0, "instanceState", "I").
		Constructor().
		Bytes()
}

// FoldedInitializer declares a ConstantValue field and a <clinit> that only
// re-stores the same literal into it.
func FoldedInitializer() []byte {
	b := New(FoldedInitializerName)
	val := b.Int(7)
	ref := b.Fieldref(FoldedInitializerName, "SEVEN", "I")
	return b.ConstantField(AccStatic|AccFinal, "SEVEN", "I", val).
		Constructor().
		StaticInit(Code([]byte{0x00, 0x10, 0x07, 0xb3}, U2(ref), []byte{0xb1})).
		Bytes()
}

// NestedOuter is clean but declares NestedInner.
func NestedOuter() []byte {
	return New(NestedOuterName).
		Field(0, "value", "I").
		Constructor().
		Inner(NestedInnerName, NestedOuterName, "Nested", AccPublic|AccStatic).
		Bytes()
}

// NestedInner: public static class Nested { static String label = compute(); }
func NestedInner() []byte {
	b := New(NestedInnerName)
	compute := b.Methodref(NestedInnerName, "compute", "()Ljava/lang/String;")
	ref := b.Fieldref(NestedInnerName, "label", "Ljava/lang/String;")
	return b.Field(AccStatic, "label", "Ljava/lang/String;").
		Constructor().
		Method(AccStatic, "compute", "()Ljava/lang/String;", Code([]byte{0x01, 0xb0})).
		StaticInit(Code([]byte{0xb8}, U2(compute), []byte{0xb3}, U2(ref), []byte{0xb1})).
		Inner(NestedInnerName, NestedOuterName, "Nested", AccPublic|AccStatic).
		Bytes()
}

// Plain has only instance state.
func Plain() []byte {
	return New(PlainName).
		Field(AccPublic, "id", "J").
		Constructor().
		Bytes()
}

// All returns every canned fixture keyed by qualified name.
func All() map[string][]byte {
	return map[string][]byte{
		StaticLiteralNonFinalName: StaticLiteralNonFinal(),
		StaticFinalNonLiteralName: StaticFinalNonLiteral(),
		StaticInitBlockName:       StaticInitBlock(),
		StaticFinalLiteralName:    StaticFinalLiteral(),
		FoldedInitializerName:     FoldedInitializer(),
		NestedOuterName:           NestedOuter(),
		NestedInnerName:           NestedInner(),
		PlainName:                 Plain(),
	}
}
