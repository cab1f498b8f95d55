package cil

import (
	"fmt"
	"strings"
)

// Instruction is one decoded CIL instruction. Branch operands refer to other
// instructions of the same body by pointer; Offset is reassigned whenever the
// sequence it belongs to is edited.
type Instruction struct {
	Operand any
	Offset  int
	Opcode  Opcode
}

// IntImm holds an int8 or int32 immediate (ldc.i4.s, ldc.i4, unaligned., no.).
type IntImm struct {
	Value int32
}

// LongImm holds the ldc.i8 immediate.
type LongImm struct {
	Value int64
}

// Float32Imm holds the ldc.r4 immediate.
type Float32Imm struct {
	Value float32
}

// Float64Imm holds the ldc.r8 immediate.
type Float64Imm struct {
	Value float64
}

// TokenImm holds a metadata or user-string token.
type TokenImm struct {
	Token Token
}

// BranchImm holds a branch target. A nil Target is the end of the method.
type BranchImm struct {
	Target *Instruction
}

// SwitchImm holds the jump table of a switch instruction.
type SwitchImm struct {
	Targets []*Instruction
}

// VarImm holds a local variable index.
type VarImm struct {
	Index uint16
}

// ArgImm holds a parameter index. Index 0 is `this` for instance methods.
type ArgImm struct {
	Index uint16
}

// rawBranch and rawSwitch carry absolute target offsets between decoding and
// ResolveBranches.
type rawBranch struct {
	Offset int
}

type rawSwitch struct {
	Offsets []int
}

// New creates an instruction with the given operand.
func New(op Opcode, operand any) *Instruction {
	return &Instruction{Opcode: op, Operand: operand}
}

// Size returns the encoded width of the instruction in bytes.
func (i *Instruction) Size() int {
	info := i.Opcode.Info()
	size := i.Opcode.Size() + info.Operand.Size()
	if info.Operand == OperandSwitch {
		switch imm := i.Operand.(type) {
		case SwitchImm:
			size += 4 * len(imm.Targets)
		case rawSwitch:
			size += 4 * len(imm.Offsets)
		}
	}
	return size
}

// End returns the offset one past the instruction.
func (i *Instruction) End() int {
	return i.Offset + i.Size()
}

// Token returns the token operand, if any.
func (i *Instruction) Token() (Token, bool) {
	imm, ok := i.Operand.(TokenImm)
	return imm.Token, ok
}

// Target returns the branch target of a single-target branch.
func (i *Instruction) Target() (*Instruction, bool) {
	imm, ok := i.Operand.(BranchImm)
	return imm.Target, ok
}

// Targets returns every instruction the operand refers to. A nil element is
// the end-of-method sentinel.
func (i *Instruction) Targets() []*Instruction {
	switch imm := i.Operand.(type) {
	case BranchImm:
		return []*Instruction{imm.Target}
	case SwitchImm:
		return imm.Targets
	}
	return nil
}

// IsCall reports whether the instruction belongs to the call family.
func (i *Instruction) IsCall() bool {
	switch i.Opcode {
	case OpCall, OpCallvirt, OpCalli, OpNewobj:
		return true
	}
	return false
}

func (i *Instruction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "IL_%04x: %s", i.Offset, i.Opcode)
	if op := formatOperand(i.Operand); op != "" {
		b.WriteByte(' ')
		b.WriteString(op)
	}
	return b.String()
}

func formatOperand(operand any) string {
	switch imm := operand.(type) {
	case nil:
		return ""
	case IntImm:
		return fmt.Sprintf("%d", imm.Value)
	case LongImm:
		return fmt.Sprintf("%d", imm.Value)
	case Float32Imm:
		return fmt.Sprintf("%g", imm.Value)
	case Float64Imm:
		return fmt.Sprintf("%g", imm.Value)
	case TokenImm:
		return imm.Token.String()
	case BranchImm:
		return label(imm.Target)
	case SwitchImm:
		labels := make([]string, len(imm.Targets))
		for i, t := range imm.Targets {
			labels[i] = label(t)
		}
		return "(" + strings.Join(labels, ", ") + ")"
	case VarImm:
		return fmt.Sprintf("V_%d", imm.Index)
	case ArgImm:
		return fmt.Sprintf("A_%d", imm.Index)
	case rawBranch:
		return fmt.Sprintf("IL_%04x", imm.Offset)
	default:
		return fmt.Sprintf("%v", imm)
	}
}

func label(target *Instruction) string {
	if target == nil {
		return "IL_end"
	}
	return fmt.Sprintf("IL_%04x", target.Offset)
}

// Instructions is an ordered instruction sequence. Offsets are kept strictly
// increasing by every editing method.
type Instructions []*Instruction

// UpdateOffsets assigns offsets from 0 in order and returns the total size.
func (l Instructions) UpdateOffsets() int {
	cursor := 0
	for _, ins := range l {
		ins.Offset = cursor
		cursor += ins.Size()
	}
	return cursor
}

// IndexOf returns the position of ins, or -1.
func (l Instructions) IndexOf(ins *Instruction) int {
	if ins == nil {
		return -1
	}
	for i, x := range l {
		if x == ins {
			return i
		}
	}
	return -1
}

// Contains reports whether ins is part of the sequence.
func (l Instructions) Contains(ins *Instruction) bool {
	return l.IndexOf(ins) >= 0
}

// Next returns the instruction following ins, or nil at the end.
func (l Instructions) Next(ins *Instruction) *Instruction {
	i := l.IndexOf(ins)
	if i < 0 || i+1 >= len(l) {
		return nil
	}
	return l[i+1]
}

// Prev returns the instruction preceding ins, or nil at the start.
func (l Instructions) Prev(ins *Instruction) *Instruction {
	i := l.IndexOf(ins)
	if i <= 0 {
		return nil
	}
	return l[i-1]
}

// First returns the first instruction, or nil when empty.
func (l Instructions) First() *Instruction {
	if len(l) == 0 {
		return nil
	}
	return l[0]
}

// Last returns the last instruction, or nil when empty.
func (l Instructions) Last() *Instruction {
	if len(l) == 0 {
		return nil
	}
	return l[len(l)-1]
}

// Append adds instructions at the end.
func (l *Instructions) Append(ins ...*Instruction) {
	cursor := 0
	if last := l.Last(); last != nil {
		cursor = last.End()
	}
	for _, x := range ins {
		x.Offset = cursor
		cursor += x.Size()
	}
	*l = append(*l, ins...)
}

// InsertAt inserts instructions before position i.
func (l *Instructions) InsertAt(i int, ins ...*Instruction) {
	s := *l
	out := make(Instructions, 0, len(s)+len(ins))
	out = append(out, s[:i]...)
	out = append(out, ins...)
	out = append(out, s[i:]...)
	*l = out
	out.UpdateOffsets()
}

// InsertBefore inserts instructions before at. It reports false when at is
// not part of the sequence.
func (l *Instructions) InsertBefore(at *Instruction, ins ...*Instruction) bool {
	i := l.IndexOf(at)
	if i < 0 {
		return false
	}
	l.InsertAt(i, ins...)
	return true
}

// InsertAfter inserts instructions after at. A nil at inserts at the start.
func (l *Instructions) InsertAfter(at *Instruction, ins ...*Instruction) bool {
	if at == nil {
		l.InsertAt(0, ins...)
		return true
	}
	i := l.IndexOf(at)
	if i < 0 {
		return false
	}
	l.InsertAt(i+1, ins...)
	return true
}

// Remove deletes ins and relinks its neighbours. Branches that targeted ins
// are left dangling and are reported when the body is assembled.
func (l *Instructions) Remove(ins *Instruction) bool {
	i := l.IndexOf(ins)
	if i < 0 {
		return false
	}
	s := *l
	*l = append(s[:i], s[i+1:]...)
	l.UpdateOffsets()
	return true
}

// At returns the instruction starting exactly at offset. Instructions must be
// ordered by offset.
func (l Instructions) At(offset int) (*Instruction, bool) {
	lo, hi := 0, len(l)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if l[mid].Offset < offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(l) && l[lo].Offset == offset {
		return l[lo], true
	}
	return nil, false
}
