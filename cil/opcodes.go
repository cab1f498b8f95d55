package cil

import "fmt"

const opTableSize = 0x120

// opTable is indexed by Opcode. Entries with an empty Name are unassigned.
var opTable = [opTableSize]OpInfo{
	OpNop:     {"nop", OperandNone, FlowNext, 0, 0},
	OpBreak:   {"break", OperandNone, FlowBreak, 0, 0},
	OpLdarg0:  {"ldarg.0", OperandNone, FlowNext, 0, 1},
	OpLdarg1:  {"ldarg.1", OperandNone, FlowNext, 0, 1},
	OpLdarg2:  {"ldarg.2", OperandNone, FlowNext, 0, 1},
	OpLdarg3:  {"ldarg.3", OperandNone, FlowNext, 0, 1},
	OpLdloc0:  {"ldloc.0", OperandNone, FlowNext, 0, 1},
	OpLdloc1:  {"ldloc.1", OperandNone, FlowNext, 0, 1},
	OpLdloc2:  {"ldloc.2", OperandNone, FlowNext, 0, 1},
	OpLdloc3:  {"ldloc.3", OperandNone, FlowNext, 0, 1},
	OpStloc0:  {"stloc.0", OperandNone, FlowNext, 1, 0},
	OpStloc1:  {"stloc.1", OperandNone, FlowNext, 1, 0},
	OpStloc2:  {"stloc.2", OperandNone, FlowNext, 1, 0},
	OpStloc3:  {"stloc.3", OperandNone, FlowNext, 1, 0},
	OpLdargS:  {"ldarg.s", OperandShortArg, FlowNext, 0, 1},
	OpLdargaS: {"ldarga.s", OperandShortArg, FlowNext, 0, 1},
	OpStargS:  {"starg.s", OperandShortArg, FlowNext, 1, 0},
	OpLdlocS:  {"ldloc.s", OperandShortVar, FlowNext, 0, 1},
	OpLdlocaS: {"ldloca.s", OperandShortVar, FlowNext, 0, 1},
	OpStlocS:  {"stloc.s", OperandShortVar, FlowNext, 1, 0},
	OpLdnull:  {"ldnull", OperandNone, FlowNext, 0, 1},
	OpLdcI4M1: {"ldc.i4.m1", OperandNone, FlowNext, 0, 1},
	OpLdcI40:  {"ldc.i4.0", OperandNone, FlowNext, 0, 1},
	OpLdcI41:  {"ldc.i4.1", OperandNone, FlowNext, 0, 1},
	OpLdcI42:  {"ldc.i4.2", OperandNone, FlowNext, 0, 1},
	OpLdcI43:  {"ldc.i4.3", OperandNone, FlowNext, 0, 1},
	OpLdcI44:  {"ldc.i4.4", OperandNone, FlowNext, 0, 1},
	OpLdcI45:  {"ldc.i4.5", OperandNone, FlowNext, 0, 1},
	OpLdcI46:  {"ldc.i4.6", OperandNone, FlowNext, 0, 1},
	OpLdcI47:  {"ldc.i4.7", OperandNone, FlowNext, 0, 1},
	OpLdcI48:  {"ldc.i4.8", OperandNone, FlowNext, 0, 1},
	OpLdcI4S:  {"ldc.i4.s", OperandShortInt, FlowNext, 0, 1},
	OpLdcI4:   {"ldc.i4", OperandInt, FlowNext, 0, 1},
	OpLdcI8:   {"ldc.i8", OperandLong, FlowNext, 0, 1},
	OpLdcR4:   {"ldc.r4", OperandShortFloat, FlowNext, 0, 1},
	OpLdcR8:   {"ldc.r8", OperandFloat, FlowNext, 0, 1},
	OpDup:     {"dup", OperandNone, FlowNext, 1, 2},
	OpPop:     {"pop", OperandNone, FlowNext, 1, 0},
	OpJmp:     {"jmp", OperandMethod, FlowCall, 0, 0},
	OpCall:    {"call", OperandMethod, FlowCall, PopVar, PushVar},
	OpCalli:   {"calli", OperandSig, FlowCall, PopVar, PushVar},
	OpRet:     {"ret", OperandNone, FlowReturn, PopVar, 0},

	OpBrS:      {"br.s", OperandShortBranch, FlowBranch, 0, 0},
	OpBrfalseS: {"brfalse.s", OperandShortBranch, FlowCondBranch, 1, 0},
	OpBrtrueS:  {"brtrue.s", OperandShortBranch, FlowCondBranch, 1, 0},
	OpBeqS:     {"beq.s", OperandShortBranch, FlowCondBranch, 2, 0},
	OpBgeS:     {"bge.s", OperandShortBranch, FlowCondBranch, 2, 0},
	OpBgtS:     {"bgt.s", OperandShortBranch, FlowCondBranch, 2, 0},
	OpBleS:     {"ble.s", OperandShortBranch, FlowCondBranch, 2, 0},
	OpBltS:     {"blt.s", OperandShortBranch, FlowCondBranch, 2, 0},
	OpBneUnS:   {"bne.un.s", OperandShortBranch, FlowCondBranch, 2, 0},
	OpBgeUnS:   {"bge.un.s", OperandShortBranch, FlowCondBranch, 2, 0},
	OpBgtUnS:   {"bgt.un.s", OperandShortBranch, FlowCondBranch, 2, 0},
	OpBleUnS:   {"ble.un.s", OperandShortBranch, FlowCondBranch, 2, 0},
	OpBltUnS:   {"blt.un.s", OperandShortBranch, FlowCondBranch, 2, 0},
	OpBr:       {"br", OperandBranch, FlowBranch, 0, 0},
	OpBrfalse:  {"brfalse", OperandBranch, FlowCondBranch, 1, 0},
	OpBrtrue:   {"brtrue", OperandBranch, FlowCondBranch, 1, 0},
	OpBeq:      {"beq", OperandBranch, FlowCondBranch, 2, 0},
	OpBge:      {"bge", OperandBranch, FlowCondBranch, 2, 0},
	OpBgt:      {"bgt", OperandBranch, FlowCondBranch, 2, 0},
	OpBle:      {"ble", OperandBranch, FlowCondBranch, 2, 0},
	OpBlt:      {"blt", OperandBranch, FlowCondBranch, 2, 0},
	OpBneUn:    {"bne.un", OperandBranch, FlowCondBranch, 2, 0},
	OpBgeUn:    {"bge.un", OperandBranch, FlowCondBranch, 2, 0},
	OpBgtUn:    {"bgt.un", OperandBranch, FlowCondBranch, 2, 0},
	OpBleUn:    {"ble.un", OperandBranch, FlowCondBranch, 2, 0},
	OpBltUn:    {"blt.un", OperandBranch, FlowCondBranch, 2, 0},
	OpSwitch:   {"switch", OperandSwitch, FlowCondBranch, 1, 0},

	OpLdindI1:  {"ldind.i1", OperandNone, FlowNext, 1, 1},
	OpLdindU1:  {"ldind.u1", OperandNone, FlowNext, 1, 1},
	OpLdindI2:  {"ldind.i2", OperandNone, FlowNext, 1, 1},
	OpLdindU2:  {"ldind.u2", OperandNone, FlowNext, 1, 1},
	OpLdindI4:  {"ldind.i4", OperandNone, FlowNext, 1, 1},
	OpLdindU4:  {"ldind.u4", OperandNone, FlowNext, 1, 1},
	OpLdindI8:  {"ldind.i8", OperandNone, FlowNext, 1, 1},
	OpLdindI:   {"ldind.i", OperandNone, FlowNext, 1, 1},
	OpLdindR4:  {"ldind.r4", OperandNone, FlowNext, 1, 1},
	OpLdindR8:  {"ldind.r8", OperandNone, FlowNext, 1, 1},
	OpLdindRef: {"ldind.ref", OperandNone, FlowNext, 1, 1},
	OpStindRef: {"stind.ref", OperandNone, FlowNext, 2, 0},
	OpStindI1:  {"stind.i1", OperandNone, FlowNext, 2, 0},
	OpStindI2:  {"stind.i2", OperandNone, FlowNext, 2, 0},
	OpStindI4:  {"stind.i4", OperandNone, FlowNext, 2, 0},
	OpStindI8:  {"stind.i8", OperandNone, FlowNext, 2, 0},
	OpStindR4:  {"stind.r4", OperandNone, FlowNext, 2, 0},
	OpStindR8:  {"stind.r8", OperandNone, FlowNext, 2, 0},

	OpAdd:   {"add", OperandNone, FlowNext, 2, 1},
	OpSub:   {"sub", OperandNone, FlowNext, 2, 1},
	OpMul:   {"mul", OperandNone, FlowNext, 2, 1},
	OpDiv:   {"div", OperandNone, FlowNext, 2, 1},
	OpDivUn: {"div.un", OperandNone, FlowNext, 2, 1},
	OpRem:   {"rem", OperandNone, FlowNext, 2, 1},
	OpRemUn: {"rem.un", OperandNone, FlowNext, 2, 1},
	OpAnd:   {"and", OperandNone, FlowNext, 2, 1},
	OpOr:    {"or", OperandNone, FlowNext, 2, 1},
	OpXor:   {"xor", OperandNone, FlowNext, 2, 1},
	OpShl:   {"shl", OperandNone, FlowNext, 2, 1},
	OpShr:   {"shr", OperandNone, FlowNext, 2, 1},
	OpShrUn: {"shr.un", OperandNone, FlowNext, 2, 1},
	OpNeg:   {"neg", OperandNone, FlowNext, 1, 1},
	OpNot:   {"not", OperandNone, FlowNext, 1, 1},

	OpConvI1: {"conv.i1", OperandNone, FlowNext, 1, 1},
	OpConvI2: {"conv.i2", OperandNone, FlowNext, 1, 1},
	OpConvI4: {"conv.i4", OperandNone, FlowNext, 1, 1},
	OpConvI8: {"conv.i8", OperandNone, FlowNext, 1, 1},
	OpConvR4: {"conv.r4", OperandNone, FlowNext, 1, 1},
	OpConvR8: {"conv.r8", OperandNone, FlowNext, 1, 1},
	OpConvU4: {"conv.u4", OperandNone, FlowNext, 1, 1},
	OpConvU8: {"conv.u8", OperandNone, FlowNext, 1, 1},

	OpCallvirt:  {"callvirt", OperandMethod, FlowCall, PopVar, PushVar},
	OpCpobj:     {"cpobj", OperandType, FlowNext, 2, 0},
	OpLdobj:     {"ldobj", OperandType, FlowNext, 1, 1},
	OpLdstr:     {"ldstr", OperandString, FlowNext, 0, 1},
	OpNewobj:    {"newobj", OperandMethod, FlowCall, PopVar, 1},
	OpCastclass: {"castclass", OperandType, FlowNext, 1, 1},
	OpIsinst:    {"isinst", OperandType, FlowNext, 1, 1},
	OpConvRUn:   {"conv.r.un", OperandNone, FlowNext, 1, 1},
	OpUnbox:     {"unbox", OperandType, FlowNext, 1, 1},
	OpThrow:     {"throw", OperandNone, FlowThrow, 1, 0},
	OpLdfld:     {"ldfld", OperandField, FlowNext, 1, 1},
	OpLdflda:    {"ldflda", OperandField, FlowNext, 1, 1},
	OpStfld:     {"stfld", OperandField, FlowNext, 2, 0},
	OpLdsfld:    {"ldsfld", OperandField, FlowNext, 0, 1},
	OpLdsflda:   {"ldsflda", OperandField, FlowNext, 0, 1},
	OpStsfld:    {"stsfld", OperandField, FlowNext, 1, 0},
	OpStobj:     {"stobj", OperandType, FlowNext, 2, 0},

	OpConvOvfI1Un: {"conv.ovf.i1.un", OperandNone, FlowNext, 1, 1},
	OpConvOvfI2Un: {"conv.ovf.i2.un", OperandNone, FlowNext, 1, 1},
	OpConvOvfI4Un: {"conv.ovf.i4.un", OperandNone, FlowNext, 1, 1},
	OpConvOvfI8Un: {"conv.ovf.i8.un", OperandNone, FlowNext, 1, 1},
	OpConvOvfU1Un: {"conv.ovf.u1.un", OperandNone, FlowNext, 1, 1},
	OpConvOvfU2Un: {"conv.ovf.u2.un", OperandNone, FlowNext, 1, 1},
	OpConvOvfU4Un: {"conv.ovf.u4.un", OperandNone, FlowNext, 1, 1},
	OpConvOvfU8Un: {"conv.ovf.u8.un", OperandNone, FlowNext, 1, 1},
	OpConvOvfIUn:  {"conv.ovf.i.un", OperandNone, FlowNext, 1, 1},
	OpConvOvfUUn:  {"conv.ovf.u.un", OperandNone, FlowNext, 1, 1},

	OpBox:       {"box", OperandType, FlowNext, 1, 1},
	OpNewarr:    {"newarr", OperandType, FlowNext, 1, 1},
	OpLdlen:     {"ldlen", OperandNone, FlowNext, 1, 1},
	OpLdelema:   {"ldelema", OperandType, FlowNext, 2, 1},
	OpLdelemI1:  {"ldelem.i1", OperandNone, FlowNext, 2, 1},
	OpLdelemU1:  {"ldelem.u1", OperandNone, FlowNext, 2, 1},
	OpLdelemI2:  {"ldelem.i2", OperandNone, FlowNext, 2, 1},
	OpLdelemU2:  {"ldelem.u2", OperandNone, FlowNext, 2, 1},
	OpLdelemI4:  {"ldelem.i4", OperandNone, FlowNext, 2, 1},
	OpLdelemU4:  {"ldelem.u4", OperandNone, FlowNext, 2, 1},
	OpLdelemI8:  {"ldelem.i8", OperandNone, FlowNext, 2, 1},
	OpLdelemI:   {"ldelem.i", OperandNone, FlowNext, 2, 1},
	OpLdelemR4:  {"ldelem.r4", OperandNone, FlowNext, 2, 1},
	OpLdelemR8:  {"ldelem.r8", OperandNone, FlowNext, 2, 1},
	OpLdelemRef: {"ldelem.ref", OperandNone, FlowNext, 2, 1},
	OpStelemI:   {"stelem.i", OperandNone, FlowNext, 3, 0},
	OpStelemI1:  {"stelem.i1", OperandNone, FlowNext, 3, 0},
	OpStelemI2:  {"stelem.i2", OperandNone, FlowNext, 3, 0},
	OpStelemI4:  {"stelem.i4", OperandNone, FlowNext, 3, 0},
	OpStelemI8:  {"stelem.i8", OperandNone, FlowNext, 3, 0},
	OpStelemR4:  {"stelem.r4", OperandNone, FlowNext, 3, 0},
	OpStelemR8:  {"stelem.r8", OperandNone, FlowNext, 3, 0},
	OpStelemRef: {"stelem.ref", OperandNone, FlowNext, 3, 0},
	OpLdelem:    {"ldelem", OperandType, FlowNext, 2, 1},
	OpStelem:    {"stelem", OperandType, FlowNext, 3, 0},
	OpUnboxAny:  {"unbox.any", OperandType, FlowNext, 1, 1},

	OpConvOvfI1: {"conv.ovf.i1", OperandNone, FlowNext, 1, 1},
	OpConvOvfU1: {"conv.ovf.u1", OperandNone, FlowNext, 1, 1},
	OpConvOvfI2: {"conv.ovf.i2", OperandNone, FlowNext, 1, 1},
	OpConvOvfU2: {"conv.ovf.u2", OperandNone, FlowNext, 1, 1},
	OpConvOvfI4: {"conv.ovf.i4", OperandNone, FlowNext, 1, 1},
	OpConvOvfU4: {"conv.ovf.u4", OperandNone, FlowNext, 1, 1},
	OpConvOvfI8: {"conv.ovf.i8", OperandNone, FlowNext, 1, 1},
	OpConvOvfU8: {"conv.ovf.u8", OperandNone, FlowNext, 1, 1},

	OpRefanyval:  {"refanyval", OperandType, FlowNext, 1, 1},
	OpCkfinite:   {"ckfinite", OperandNone, FlowNext, 1, 1},
	OpMkrefany:   {"mkrefany", OperandType, FlowNext, 1, 1},
	OpLdtoken:    {"ldtoken", OperandTok, FlowNext, 0, 1},
	OpConvU2:     {"conv.u2", OperandNone, FlowNext, 1, 1},
	OpConvU1:     {"conv.u1", OperandNone, FlowNext, 1, 1},
	OpConvI:      {"conv.i", OperandNone, FlowNext, 1, 1},
	OpConvOvfI:   {"conv.ovf.i", OperandNone, FlowNext, 1, 1},
	OpConvOvfU:   {"conv.ovf.u", OperandNone, FlowNext, 1, 1},
	OpAddOvf:     {"add.ovf", OperandNone, FlowNext, 2, 1},
	OpAddOvfUn:   {"add.ovf.un", OperandNone, FlowNext, 2, 1},
	OpMulOvf:     {"mul.ovf", OperandNone, FlowNext, 2, 1},
	OpMulOvfUn:   {"mul.ovf.un", OperandNone, FlowNext, 2, 1},
	OpSubOvf:     {"sub.ovf", OperandNone, FlowNext, 2, 1},
	OpSubOvfUn:   {"sub.ovf.un", OperandNone, FlowNext, 2, 1},
	OpEndfinally: {"endfinally", OperandNone, FlowReturn, 0, 0},
	OpLeave:      {"leave", OperandBranch, FlowBranch, PopAll, 0},
	OpLeaveS:     {"leave.s", OperandShortBranch, FlowBranch, PopAll, 0},
	OpStindI:     {"stind.i", OperandNone, FlowNext, 2, 0},
	OpConvU:      {"conv.u", OperandNone, FlowNext, 1, 1},

	OpArglist:     {"arglist", OperandNone, FlowNext, 0, 1},
	OpCeq:         {"ceq", OperandNone, FlowNext, 2, 1},
	OpCgt:         {"cgt", OperandNone, FlowNext, 2, 1},
	OpCgtUn:       {"cgt.un", OperandNone, FlowNext, 2, 1},
	OpClt:         {"clt", OperandNone, FlowNext, 2, 1},
	OpCltUn:       {"clt.un", OperandNone, FlowNext, 2, 1},
	OpLdftn:       {"ldftn", OperandMethod, FlowNext, 0, 1},
	OpLdvirtftn:   {"ldvirtftn", OperandMethod, FlowNext, 1, 1},
	OpLdarg:       {"ldarg", OperandArg, FlowNext, 0, 1},
	OpLdarga:      {"ldarga", OperandArg, FlowNext, 0, 1},
	OpStarg:       {"starg", OperandArg, FlowNext, 1, 0},
	OpLdloc:       {"ldloc", OperandVar, FlowNext, 0, 1},
	OpLdloca:      {"ldloca", OperandVar, FlowNext, 0, 1},
	OpStloc:       {"stloc", OperandVar, FlowNext, 1, 0},
	OpLocalloc:    {"localloc", OperandNone, FlowNext, 1, 1},
	OpEndfilter:   {"endfilter", OperandNone, FlowReturn, 1, 0},
	OpUnaligned:   {"unaligned.", OperandShortInt, FlowMeta, 0, 0},
	OpVolatile:    {"volatile.", OperandNone, FlowMeta, 0, 0},
	OpTail:        {"tail.", OperandNone, FlowMeta, 0, 0},
	OpInitobj:     {"initobj", OperandType, FlowNext, 1, 0},
	OpConstrained: {"constrained.", OperandType, FlowMeta, 0, 0},
	OpCpblk:       {"cpblk", OperandNone, FlowNext, 3, 0},
	OpInitblk:     {"initblk", OperandNone, FlowNext, 3, 0},
	OpNo:          {"no.", OperandShortInt, FlowMeta, 0, 0},
	OpRethrow:     {"rethrow", OperandNone, FlowThrow, 0, 0},
	OpSizeof:      {"sizeof", OperandType, FlowNext, 0, 1},
	OpRefanytype:  {"refanytype", OperandNone, FlowNext, 1, 1},
	OpReadonly:    {"readonly.", OperandNone, FlowMeta, 0, 0},
}

// Lookup returns the table entry for op and whether op is assigned.
func Lookup(op Opcode) (OpInfo, bool) {
	if int(op) >= opTableSize {
		return OpInfo{}, false
	}
	info := opTable[op]
	return info, info.Name != ""
}

// Info returns the table entry for op. Unassigned opcodes yield a zero OpInfo.
func (op Opcode) Info() OpInfo {
	info, _ := Lookup(op)
	return info
}

// IsTwoByte reports whether op is encoded with the 0xFE lead byte.
func (op Opcode) IsTwoByte() bool {
	return op >= 0x100
}

// Size returns the encoded width of the opcode itself.
func (op Opcode) Size() int {
	if op.IsTwoByte() {
		return 2
	}
	return 1
}

func (op Opcode) String() string {
	if info, ok := Lookup(op); ok {
		return info.Name
	}
	if op.IsTwoByte() {
		return fmt.Sprintf("0xfe%02x", byte(op))
	}
	return fmt.Sprintf("0x%02x", uint16(op))
}

// OperandSize returns the encoded operand width for a kind. Switch operands are
// variable; the fixed 4-byte count prefix is returned and callers add 4 per target.
func (k OperandKind) Size() int {
	switch k {
	case OperandNone:
		return 0
	case OperandShortInt, OperandShortBranch, OperandShortVar, OperandShortArg:
		return 1
	case OperandVar, OperandArg:
		return 2
	case OperandLong, OperandFloat:
		return 8
	default:
		return 4
	}
}

// IsBranch reports whether the kind encodes a relative branch offset.
func (k OperandKind) IsBranch() bool {
	return k == OperandShortBranch || k == OperandBranch || k == OperandSwitch
}

// IsToken reports whether the kind is a metadata token.
func (k OperandKind) IsToken() bool {
	switch k {
	case OperandString, OperandMethod, OperandField, OperandType, OperandTok, OperandSig:
		return true
	}
	return false
}

// ShortBranchOf maps a long branch opcode to its 1-byte-offset form.
func ShortBranchOf(op Opcode) (Opcode, bool) {
	switch {
	case op >= OpBr && op <= OpBltUn:
		return op - (OpBr - OpBrS), true
	case op == OpLeave:
		return OpLeaveS, true
	}
	return op, false
}

// LongBranchOf maps a short branch opcode to its 4-byte-offset form.
func LongBranchOf(op Opcode) (Opcode, bool) {
	switch {
	case op >= OpBrS && op <= OpBltUnS:
		return op + (OpBr - OpBrS), true
	case op == OpLeaveS:
		return OpLeave, true
	}
	return op, false
}
