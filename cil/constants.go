package cil

// Opcode identifies an instruction. One-byte opcodes use their wire value; two-byte
// opcodes (lead byte 0xFE) are stored as 0x100 | second byte so the per-opcode
// table stays a dense array.
type Opcode uint16

// PrefixTwoByte is the lead byte selecting the secondary opcode table.
const PrefixTwoByte byte = 0xFE

// One-byte opcodes.
const (
	OpNop       Opcode = 0x00
	OpBreak     Opcode = 0x01
	OpLdarg0    Opcode = 0x02
	OpLdarg1    Opcode = 0x03
	OpLdarg2    Opcode = 0x04
	OpLdarg3    Opcode = 0x05
	OpLdloc0    Opcode = 0x06
	OpLdloc1    Opcode = 0x07
	OpLdloc2    Opcode = 0x08
	OpLdloc3    Opcode = 0x09
	OpStloc0    Opcode = 0x0A
	OpStloc1    Opcode = 0x0B
	OpStloc2    Opcode = 0x0C
	OpStloc3    Opcode = 0x0D
	OpLdargS    Opcode = 0x0E
	OpLdargaS   Opcode = 0x0F
	OpStargS    Opcode = 0x10
	OpLdlocS    Opcode = 0x11
	OpLdlocaS   Opcode = 0x12
	OpStlocS    Opcode = 0x13
	OpLdnull    Opcode = 0x14
	OpLdcI4M1   Opcode = 0x15
	OpLdcI40    Opcode = 0x16
	OpLdcI41    Opcode = 0x17
	OpLdcI42    Opcode = 0x18
	OpLdcI43    Opcode = 0x19
	OpLdcI44    Opcode = 0x1A
	OpLdcI45    Opcode = 0x1B
	OpLdcI46    Opcode = 0x1C
	OpLdcI47    Opcode = 0x1D
	OpLdcI48    Opcode = 0x1E
	OpLdcI4S    Opcode = 0x1F
	OpLdcI4     Opcode = 0x20
	OpLdcI8     Opcode = 0x21
	OpLdcR4     Opcode = 0x22
	OpLdcR8     Opcode = 0x23
	OpDup       Opcode = 0x25
	OpPop       Opcode = 0x26
	OpJmp       Opcode = 0x27
	OpCall      Opcode = 0x28
	OpCalli     Opcode = 0x29
	OpRet       Opcode = 0x2A
	OpBrS       Opcode = 0x2B
	OpBrfalseS  Opcode = 0x2C
	OpBrtrueS   Opcode = 0x2D
	OpBeqS      Opcode = 0x2E
	OpBgeS      Opcode = 0x2F
	OpBgtS      Opcode = 0x30
	OpBleS      Opcode = 0x31
	OpBltS      Opcode = 0x32
	OpBneUnS    Opcode = 0x33
	OpBgeUnS    Opcode = 0x34
	OpBgtUnS    Opcode = 0x35
	OpBleUnS    Opcode = 0x36
	OpBltUnS    Opcode = 0x37
	OpBr        Opcode = 0x38
	OpBrfalse   Opcode = 0x39
	OpBrtrue    Opcode = 0x3A
	OpBeq       Opcode = 0x3B
	OpBge       Opcode = 0x3C
	OpBgt       Opcode = 0x3D
	OpBle       Opcode = 0x3E
	OpBlt       Opcode = 0x3F
	OpBneUn     Opcode = 0x40
	OpBgeUn     Opcode = 0x41
	OpBgtUn     Opcode = 0x42
	OpBleUn     Opcode = 0x43
	OpBltUn     Opcode = 0x44
	OpSwitch    Opcode = 0x45
	OpLdindI1   Opcode = 0x46
	OpLdindU1   Opcode = 0x47
	OpLdindI2   Opcode = 0x48
	OpLdindU2   Opcode = 0x49
	OpLdindI4   Opcode = 0x4A
	OpLdindU4   Opcode = 0x4B
	OpLdindI8   Opcode = 0x4C
	OpLdindI    Opcode = 0x4D
	OpLdindR4   Opcode = 0x4E
	OpLdindR8   Opcode = 0x4F
	OpLdindRef  Opcode = 0x50
	OpStindRef  Opcode = 0x51
	OpStindI1   Opcode = 0x52
	OpStindI2   Opcode = 0x53
	OpStindI4   Opcode = 0x54
	OpStindI8   Opcode = 0x55
	OpStindR4   Opcode = 0x56
	OpStindR8   Opcode = 0x57
	OpAdd       Opcode = 0x58
	OpSub       Opcode = 0x59
	OpMul       Opcode = 0x5A
	OpDiv       Opcode = 0x5B
	OpDivUn     Opcode = 0x5C
	OpRem       Opcode = 0x5D
	OpRemUn     Opcode = 0x5E
	OpAnd       Opcode = 0x5F
	OpOr        Opcode = 0x60
	OpXor       Opcode = 0x61
	OpShl       Opcode = 0x62
	OpShr       Opcode = 0x63
	OpShrUn     Opcode = 0x64
	OpNeg       Opcode = 0x65
	OpNot       Opcode = 0x66
	OpConvI1    Opcode = 0x67
	OpConvI2    Opcode = 0x68
	OpConvI4    Opcode = 0x69
	OpConvI8    Opcode = 0x6A
	OpConvR4    Opcode = 0x6B
	OpConvR8    Opcode = 0x6C
	OpConvU4    Opcode = 0x6D
	OpConvU8    Opcode = 0x6E
	OpCallvirt  Opcode = 0x6F
	OpCpobj     Opcode = 0x70
	OpLdobj     Opcode = 0x71
	OpLdstr     Opcode = 0x72
	OpNewobj    Opcode = 0x73
	OpCastclass Opcode = 0x74
	OpIsinst    Opcode = 0x75
	OpConvRUn   Opcode = 0x76
	OpUnbox     Opcode = 0x79
	OpThrow     Opcode = 0x7A
	OpLdfld     Opcode = 0x7B
	OpLdflda    Opcode = 0x7C
	OpStfld     Opcode = 0x7D
	OpLdsfld    Opcode = 0x7E
	OpLdsflda   Opcode = 0x7F
	OpStsfld    Opcode = 0x80
	OpStobj     Opcode = 0x81

	OpConvOvfI1Un Opcode = 0x82
	OpConvOvfI2Un Opcode = 0x83
	OpConvOvfI4Un Opcode = 0x84
	OpConvOvfI8Un Opcode = 0x85
	OpConvOvfU1Un Opcode = 0x86
	OpConvOvfU2Un Opcode = 0x87
	OpConvOvfU4Un Opcode = 0x88
	OpConvOvfU8Un Opcode = 0x89
	OpConvOvfIUn  Opcode = 0x8A
	OpConvOvfUUn  Opcode = 0x8B

	OpBox       Opcode = 0x8C
	OpNewarr    Opcode = 0x8D
	OpLdlen     Opcode = 0x8E
	OpLdelema   Opcode = 0x8F
	OpLdelemI1  Opcode = 0x90
	OpLdelemU1  Opcode = 0x91
	OpLdelemI2  Opcode = 0x92
	OpLdelemU2  Opcode = 0x93
	OpLdelemI4  Opcode = 0x94
	OpLdelemU4  Opcode = 0x95
	OpLdelemI8  Opcode = 0x96
	OpLdelemI   Opcode = 0x97
	OpLdelemR4  Opcode = 0x98
	OpLdelemR8  Opcode = 0x99
	OpLdelemRef Opcode = 0x9A
	OpStelemI   Opcode = 0x9B
	OpStelemI1  Opcode = 0x9C
	OpStelemI2  Opcode = 0x9D
	OpStelemI4  Opcode = 0x9E
	OpStelemI8  Opcode = 0x9F
	OpStelemR4  Opcode = 0xA0
	OpStelemR8  Opcode = 0xA1
	OpStelemRef Opcode = 0xA2
	OpLdelem    Opcode = 0xA3
	OpStelem    Opcode = 0xA4
	OpUnboxAny  Opcode = 0xA5

	OpConvOvfI1 Opcode = 0xB3
	OpConvOvfU1 Opcode = 0xB4
	OpConvOvfI2 Opcode = 0xB5
	OpConvOvfU2 Opcode = 0xB6
	OpConvOvfI4 Opcode = 0xB7
	OpConvOvfU4 Opcode = 0xB8
	OpConvOvfI8 Opcode = 0xB9
	OpConvOvfU8 Opcode = 0xBA

	OpRefanyval  Opcode = 0xC2
	OpCkfinite   Opcode = 0xC3
	OpMkrefany   Opcode = 0xC6
	OpLdtoken    Opcode = 0xD0
	OpConvU2     Opcode = 0xD1
	OpConvU1     Opcode = 0xD2
	OpConvI      Opcode = 0xD3
	OpConvOvfI   Opcode = 0xD4
	OpConvOvfU   Opcode = 0xD5
	OpAddOvf     Opcode = 0xD6
	OpAddOvfUn   Opcode = 0xD7
	OpMulOvf     Opcode = 0xD8
	OpMulOvfUn   Opcode = 0xD9
	OpSubOvf     Opcode = 0xDA
	OpSubOvfUn   Opcode = 0xDB
	OpEndfinally Opcode = 0xDC
	OpLeave      Opcode = 0xDD
	OpLeaveS     Opcode = 0xDE
	OpStindI     Opcode = 0xDF
	OpConvU      Opcode = 0xE0
)

// Two-byte opcodes (0xFE xx).
const (
	OpArglist     Opcode = 0x100
	OpCeq         Opcode = 0x101
	OpCgt         Opcode = 0x102
	OpCgtUn       Opcode = 0x103
	OpClt         Opcode = 0x104
	OpCltUn       Opcode = 0x105
	OpLdftn       Opcode = 0x106
	OpLdvirtftn   Opcode = 0x107
	OpLdarg       Opcode = 0x109
	OpLdarga      Opcode = 0x10A
	OpStarg       Opcode = 0x10B
	OpLdloc       Opcode = 0x10C
	OpLdloca      Opcode = 0x10D
	OpStloc       Opcode = 0x10E
	OpLocalloc    Opcode = 0x10F
	OpEndfilter   Opcode = 0x111
	OpUnaligned   Opcode = 0x112
	OpVolatile    Opcode = 0x113
	OpTail        Opcode = 0x114
	OpInitobj     Opcode = 0x115
	OpConstrained Opcode = 0x116
	OpCpblk       Opcode = 0x117
	OpInitblk     Opcode = 0x118
	OpNo          Opcode = 0x119
	OpRethrow     Opcode = 0x11A
	OpSizeof      Opcode = 0x11C
	OpRefanytype  Opcode = 0x11D
	OpReadonly    Opcode = 0x11E
)

// OperandKind is the encoding class of an instruction's inline operand.
type OperandKind uint8

const (
	OperandNone        OperandKind = iota
	OperandShortInt                // 1 byte: ldc.i4.s (signed), unaligned./no. (unsigned)
	OperandInt                     // 4 bytes
	OperandLong                    // 8 bytes
	OperandShortFloat              // 4 bytes float32
	OperandFloat                   // 8 bytes float64
	OperandString                  // 4 byte user-string token
	OperandMethod                  // 4 byte method token
	OperandField                   // 4 byte field token
	OperandType                    // 4 byte type token
	OperandTok                     // 4 byte type/field/method token (ldtoken)
	OperandSig                     // 4 byte stand-alone signature token (calli)
	OperandShortBranch             // 1 byte relative offset
	OperandBranch                  // 4 byte relative offset
	OperandSwitch                  // int32 count + N int32 relative offsets
	OperandShortVar                // 1 byte local index
	OperandVar                     // 2 byte local index
	OperandShortArg                // 1 byte argument index
	OperandArg                     // 2 byte argument index
)

// FlowControl describes how an instruction affects control flow.
type FlowControl uint8

const (
	FlowNext FlowControl = iota
	FlowBranch
	FlowCondBranch
	FlowReturn
	FlowThrow
	FlowCall
	FlowBreak
	FlowMeta
)

// Stack behaviour markers for OpInfo.Pops and OpInfo.Pushes.
const (
	PopVar  int8 = -1 // call family and ret: depends on the signature
	PopAll  int8 = -2 // leave: empties the evaluation stack
	PushVar int8 = -1 // call family: depends on the return type
)

// OpInfo is the fixed per-opcode table entry.
type OpInfo struct {
	Name    string
	Operand OperandKind
	Flow    FlowControl
	Pops    int8
	Pushes  int8
}

// Exception handling section flags.
const (
	SectEHTable   byte = 0x01
	SectOptIL     byte = 0x02
	SectFatFormat byte = 0x40
	SectMoreSects byte = 0x80
)

// Method header flags.
const (
	HeaderTiny       byte   = 0x02
	HeaderFat        byte   = 0x03
	HeaderFormatMask byte   = 0x03
	FatMoreSects     uint16 = 0x08
	FatInitLocals    uint16 = 0x10
	FatHeaderDwords  uint16 = 3
)

// Encoded sizes of the header and exception clause forms.
const (
	FatHeaderSize    = 12
	SmallClauseSize  = 12
	FatClauseSize    = 24
	SectionHeaderLen = 4
)
