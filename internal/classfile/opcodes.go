package classfile

import (
	"encoding/binary"
	"fmt"
)

// Opcodes referenced by the initializer classification.
const (
	OpNop             byte = 0x00
	OpAconstNull      byte = 0x01
	OpIconstM1        byte = 0x02
	OpIconst5         byte = 0x08
	OpLconst0         byte = 0x09
	OpLconst1         byte = 0x0a
	OpFconst0         byte = 0x0b
	OpFconst2         byte = 0x0d
	OpDconst0         byte = 0x0e
	OpDconst1         byte = 0x0f
	OpBipush          byte = 0x10
	OpSipush          byte = 0x11
	OpLdc             byte = 0x12
	OpLdcW            byte = 0x13
	OpLdc2W           byte = 0x14
	OpTableswitch     byte = 0xaa
	OpLookupswitch    byte = 0xab
	OpReturn          byte = 0xb1
	OpGetstatic       byte = 0xb2
	OpPutstatic       byte = 0xb3
	OpGetfield        byte = 0xb4
	OpPutfield        byte = 0xb5
	OpInvokevirtual   byte = 0xb6
	OpInvokespecial   byte = 0xb7
	OpInvokestatic    byte = 0xb8
	OpInvokeinterface byte = 0xb9
	OpInvokedynamic   byte = 0xba
	OpNew             byte = 0xbb
	OpNewarray        byte = 0xbc
	OpAnewarray       byte = 0xbd
	OpAthrow          byte = 0xbf
	OpMonitorenter    byte = 0xc2
	OpMonitorexit     byte = 0xc3
	OpWide            byte = 0xc4
	OpMultianewarray  byte = 0xc5
)

// Effect is the coarse side-effect category of one instruction.
type Effect int

const (
	EffectNone Effect = iota
	EffectReturn
	EffectConstant
	EffectStaticStore
	EffectStaticLoad
	EffectInvoke
	EffectAllocate
	EffectThrow
	EffectOther
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectReturn:
		return "return"
	case EffectConstant:
		return "constant"
	case EffectStaticStore:
		return "static-store"
	case EffectStaticLoad:
		return "static-load"
	case EffectInvoke:
		return "invoke"
	case EffectAllocate:
		return "allocate"
	case EffectThrow:
		return "throw"
	default:
		return "other"
	}
}

// Operation is one decoded class-initializer instruction.
type Operation struct {
	Offset   int
	Opcode   byte
	Mnemonic string
	Effect   Effect
	// Ref is set for field and method instructions.
	Ref *MemberRef
	// Value is the literal pushed by a constant instruction.
	Value *ConstantValue
}

func (o Operation) String() string {
	if o.Value != nil {
		return fmt.Sprintf("%d: %s %s", o.Offset, o.Mnemonic, o.Value)
	}
	if o.Ref != nil {
		return fmt.Sprintf("%d: %s %s", o.Offset, o.Mnemonic, o.Ref)
	}
	return fmt.Sprintf("%d: %s", o.Offset, o.Mnemonic)
}

// InitializerBody is the decoded <clinit> method.
type InitializerBody struct {
	Operations []Operation
}

// IsTrivial reports whether the body has no observable effect beyond what
// the compiler already folded: it may only do nothing, return, or store a
// pushed literal into a static field of owner whose ConstantValue is that
// same literal.
func (b *InitializerBody) IsTrivial(owner *TypeDescriptor) bool {
	if b == nil {
		return true
	}
	var pending *ConstantValue
	for _, op := range b.Operations {
		switch op.Effect {
		case EffectNone, EffectReturn:
			if pending != nil {
				return false
			}
		case EffectConstant:
			if pending != nil || op.Value == nil {
				return false
			}
			pending = op.Value
		case EffectStaticStore:
			if pending == nil || op.Ref == nil || op.Ref.Owner != owner.Name {
				return false
			}
			f := owner.Field(op.Ref.Name)
			if f == nil || f.Constant == nil || !f.Flags.IsStatic() || f.Descriptor != op.Ref.Descriptor {
				return false
			}
			if !f.Constant.Equal(*pending) {
				return false
			}
			pending = nil
		default:
			return false
		}
	}
	return pending == nil
}

// FirstEffect returns the first operation that makes the body non-trivial
// or nil. Used for diagnostics only.
func (b *InitializerBody) FirstEffect() *Operation {
	if b == nil {
		return nil
	}
	for i := range b.Operations {
		switch b.Operations[i].Effect {
		case EffectNone, EffectReturn, EffectConstant:
			continue
		}
		return &b.Operations[i]
	}
	return nil
}

var mnemonics = [...]string{
	"nop", "aconst_null", "iconst_m1", "iconst_0", "iconst_1", "iconst_2", "iconst_3", "iconst_4", "iconst_5",
	"lconst_0", "lconst_1", "fconst_0", "fconst_1", "fconst_2", "dconst_0", "dconst_1",
	"bipush", "sipush", "ldc", "ldc_w", "ldc2_w",
	"iload", "lload", "fload", "dload", "aload",
	"iload_0", "iload_1", "iload_2", "iload_3", "lload_0", "lload_1", "lload_2", "lload_3",
	"fload_0", "fload_1", "fload_2", "fload_3", "dload_0", "dload_1", "dload_2", "dload_3",
	"aload_0", "aload_1", "aload_2", "aload_3",
	"iaload", "laload", "faload", "daload", "aaload", "baload", "caload", "saload",
	"istore", "lstore", "fstore", "dstore", "astore",
	"istore_0", "istore_1", "istore_2", "istore_3", "lstore_0", "lstore_1", "lstore_2", "lstore_3",
	"fstore_0", "fstore_1", "fstore_2", "fstore_3", "dstore_0", "dstore_1", "dstore_2", "dstore_3",
	"astore_0", "astore_1", "astore_2", "astore_3",
	"iastore", "lastore", "fastore", "dastore", "aastore", "bastore", "castore", "sastore",
	"pop", "pop2", "dup", "dup_x1", "dup_x2", "dup2", "dup2_x1", "dup2_x2", "swap",
	"iadd", "ladd", "fadd", "dadd", "isub", "lsub", "fsub", "dsub",
	"imul", "lmul", "fmul", "dmul", "idiv", "ldiv", "fdiv", "ddiv",
	"irem", "lrem", "frem", "drem", "ineg", "lneg", "fneg", "dneg",
	"ishl", "lshl", "ishr", "lshr", "iushr", "lushr", "iand", "land", "ior", "lor", "ixor", "lxor",
	"iinc",
	"i2l", "i2f", "i2d", "l2i", "l2f", "l2d", "f2i", "f2l", "f2d", "d2i", "d2l", "d2f", "i2b", "i2c", "i2s",
	"lcmp", "fcmpl", "fcmpg", "dcmpl", "dcmpg",
	"ifeq", "ifne", "iflt", "ifge", "ifgt", "ifle",
	"if_icmpeq", "if_icmpne", "if_icmplt", "if_icmpge", "if_icmpgt", "if_icmple", "if_acmpeq", "if_acmpne",
	"goto", "jsr", "ret", "tableswitch", "lookupswitch",
	"ireturn", "lreturn", "freturn", "dreturn", "areturn", "return",
	"getstatic", "putstatic", "getfield", "putfield",
	"invokevirtual", "invokespecial", "invokestatic", "invokeinterface", "invokedynamic",
	"new", "newarray", "anewarray", "arraylength", "athrow", "checkcast", "instanceof",
	"monitorenter", "monitorexit", "wide", "multianewarray", "ifnull", "ifnonnull", "goto_w", "jsr_w",
}

// operandLength returns the fixed operand byte count for op, or -1 for
// variable-length and invalid opcodes.
func operandLength(op byte) int {
	switch {
	case op <= OpDconst1:
		return 0
	case op == OpBipush, op == OpLdc:
		return 1
	case op == OpSipush, op == OpLdcW, op == OpLdc2W:
		return 2
	case op >= 0x15 && op <= 0x19:
		return 1
	case op >= 0x1a && op <= 0x35:
		return 0
	case op >= 0x36 && op <= 0x3a:
		return 1
	case op >= 0x3b && op <= 0x83:
		return 0
	case op == 0x84:
		return 2
	case op >= 0x85 && op <= 0x98:
		return 0
	case op >= 0x99 && op <= 0xa8:
		return 2
	case op == 0xa9:
		return 1
	case op >= 0xac && op <= 0xb1:
		return 0
	case op >= OpGetstatic && op <= OpInvokestatic:
		return 2
	case op == OpInvokeinterface, op == OpInvokedynamic:
		return 4
	case op == OpNew, op == OpAnewarray, op == 0xc0, op == 0xc1:
		return 2
	case op == OpNewarray:
		return 1
	case op == 0xbe, op == OpAthrow, op == OpMonitorenter, op == OpMonitorexit:
		return 0
	case op == OpMultianewarray:
		return 3
	case op == 0xc6, op == 0xc7:
		return 2
	case op == 0xc8, op == 0xc9:
		return 4
	default:
		return -1
	}
}

func effectOf(op byte) Effect {
	switch {
	case op == OpNop:
		return EffectNone
	case op > OpAconstNull && op <= OpLdc2W:
		return EffectConstant
	case op == OpReturn:
		return EffectReturn
	case op == OpPutstatic:
		return EffectStaticStore
	case op == OpGetstatic:
		return EffectStaticLoad
	case op >= OpInvokevirtual && op <= OpInvokedynamic:
		return EffectInvoke
	case op == OpNew, op == OpNewarray, op == OpAnewarray, op == OpMultianewarray:
		return EffectAllocate
	case op == OpAthrow:
		return EffectThrow
	default:
		return EffectOther
	}
}

// decodeInstructions walks a Code array and resolves pool references.
func decodeInstructions(code []byte, cp constantPool) ([]Operation, error) {
	ops := make([]Operation, 0, len(code)/2)
	for pc := 0; pc < len(code); {
		op := code[pc]
		if int(op) >= len(mnemonics) {
			return nil, malformed("invalid opcode 0x%02x at offset %d", op, pc)
		}
		n := operandLength(op)
		switch op {
		case OpTableswitch, OpLookupswitch:
			var err error
			n, err = switchOperandLength(code, pc)
			if err != nil {
				return nil, err
			}
		case OpWide:
			if pc+1 >= len(code) {
				return nil, malformed("truncated wide instruction at offset %d", pc)
			}
			n = 3
			if code[pc+1] == 0x84 {
				n = 5
			}
		}
		if n < 0 {
			return nil, malformed("invalid opcode 0x%02x at offset %d", op, pc)
		}
		if pc+1+n > len(code) {
			return nil, malformed("truncated %s at offset %d", mnemonics[op], pc)
		}
		operands := code[pc+1 : pc+1+n]
		o := Operation{Offset: pc, Opcode: op, Mnemonic: mnemonics[op], Effect: effectOf(op)}

		switch op {
		case OpLdc, OpLdcW, OpLdc2W:
			idx := uint16(operands[0])
			if op != OpLdc {
				idx = binary.BigEndian.Uint16(operands)
			}
			if !cp.loadable(idx, op == OpLdc2W) {
				return nil, malformed("%s at offset %d: invalid constant #%d", o.Mnemonic, pc, idx)
			}
			// Class, MethodType, MethodHandle and Dynamic entries resolve
			// or bootstrap at run time.
			if cv, err := cp.constant(idx); err == nil {
				o.Value = &cv
			} else {
				o.Effect = EffectOther
			}
		case OpGetstatic, OpPutstatic, OpGetfield, OpPutfield:
			ref, err := cp.memberRef(binary.BigEndian.Uint16(operands), TagFieldref)
			if err != nil {
				return nil, malformed("%s at offset %d: %s", o.Mnemonic, pc, detailOf(err))
			}
			o.Ref = &ref
		case OpInvokevirtual, OpInvokespecial, OpInvokestatic, OpInvokeinterface:
			ref, err := cp.memberRef(binary.BigEndian.Uint16(operands), TagMethodref, TagInterfaceMethodref)
			if err != nil {
				return nil, malformed("%s at offset %d: %s", o.Mnemonic, pc, detailOf(err))
			}
			o.Ref = &ref
		case OpInvokedynamic:
			if _, err := cp.entry(binary.BigEndian.Uint16(operands), TagInvokeDynamic); err != nil {
				return nil, malformed("invokedynamic at offset %d: %s", pc, detailOf(err))
			}
		case OpNew, OpAnewarray, OpMultianewarray, 0xc0, 0xc1:
			if _, err := cp.className(binary.BigEndian.Uint16(operands)); err != nil {
				return nil, malformed("%s at offset %d: %s", o.Mnemonic, pc, detailOf(err))
			}
		}

		if o.Effect == EffectConstant && o.Value == nil {
			cv := pushedLiteral(op, operands)
			o.Value = &cv
		}

		ops = append(ops, o)
		pc += 1 + n
	}
	return ops, nil
}

// pushedLiteral returns the value pushed by the iconst, lconst, fconst,
// dconst, bipush and sipush families.
func pushedLiteral(op byte, operands []byte) ConstantValue {
	switch {
	case op >= OpIconstM1 && op <= OpIconst5:
		return ConstantValue{Kind: ConstantInt, Int: int64(op) - int64(OpIconstM1) - 1}
	case op == OpLconst0, op == OpLconst1:
		return ConstantValue{Kind: ConstantLong, Int: int64(op - OpLconst0)}
	case op >= OpFconst0 && op <= OpFconst2:
		return ConstantValue{Kind: ConstantFloat, Float: float64(op - OpFconst0)}
	case op == OpDconst0, op == OpDconst1:
		return ConstantValue{Kind: ConstantDouble, Float: float64(op - OpDconst0)}
	case op == OpBipush:
		return ConstantValue{Kind: ConstantInt, Int: int64(int8(operands[0]))}
	default:
		return ConstantValue{Kind: ConstantInt, Int: int64(int16(binary.BigEndian.Uint16(operands)))}
	}
}

// switchOperandLength computes the operand size of tableswitch and
// lookupswitch, whose operands are 4-byte aligned to the code start.
func switchOperandLength(code []byte, pc int) (int, error) {
	pad := (4 - (pc+1)%4) % 4
	base := pc + 1 + pad
	if base+12 > len(code) {
		return 0, malformed("truncated switch at offset %d", pc)
	}
	var n int
	if code[pc] == OpTableswitch {
		low := int32(binary.BigEndian.Uint32(code[base+4:]))
		high := int32(binary.BigEndian.Uint32(code[base+8:]))
		if low > high {
			return 0, malformed("tableswitch at offset %d: low %d > high %d", pc, low, high)
		}
		count := int64(high) - int64(low) + 1
		if count > int64(len(code)) {
			return 0, malformed("tableswitch at offset %d: %d targets exceed code length", pc, count)
		}
		n = pad + 12 + int(count)*4
	} else {
		npairs := int32(binary.BigEndian.Uint32(code[base+4:]))
		if npairs < 0 || int64(npairs) > int64(len(code)) {
			return 0, malformed("lookupswitch at offset %d: invalid pair count %d", pc, npairs)
		}
		n = pad + 8 + int(npairs)*8
	}
	return n, nil
}
