package cil

import "math"

// Label is a forward-referenceable branch target created by a Builder.
type Label struct {
	target *Instruction
}

// Builder emits an instruction sequence. Short forms are chosen for
// arguments, locals and integer constants whenever the value fits.
type Builder struct {
	pending []*Label
	fixups  []fixup
	list    Instructions
}

type fixup struct {
	ins    *Instruction
	labels []*Label
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Len returns the number of instructions emitted so far.
func (b *Builder) Len() int {
	return len(b.list)
}

// Add appends prebuilt instructions.
func (b *Builder) Add(ins ...*Instruction) {
	for _, x := range ins {
		b.bind(x)
		b.list.Append(x)
	}
}

// Emit appends an instruction without operand.
func (b *Builder) Emit(op Opcode) *Instruction {
	return b.emit(op, nil)
}

// EmitToken appends an instruction with a token operand.
func (b *Builder) EmitToken(op Opcode, tok Token) *Instruction {
	return b.emit(op, TokenImm{Token: tok})
}

// EmitBranch appends a branch to l.
func (b *Builder) EmitBranch(op Opcode, l *Label) *Instruction {
	ins := b.emit(op, BranchImm{})
	b.fixups = append(b.fixups, fixup{ins: ins, labels: []*Label{l}})
	return ins
}

// EmitSwitch appends a switch over the given labels.
func (b *Builder) EmitSwitch(labels ...*Label) *Instruction {
	ins := b.emit(OpSwitch, SwitchImm{Targets: make([]*Instruction, len(labels))})
	b.fixups = append(b.fixups, fixup{ins: ins, labels: labels})
	return ins
}

// NewLabel creates an unmarked label.
func (b *Builder) NewLabel() *Label {
	return &Label{}
}

// Mark binds l to the next emitted instruction. A label still pending when
// Instructions is called refers to the end of the method.
func (b *Builder) Mark(l *Label) {
	b.pending = append(b.pending, l)
}

// Target returns the instruction l is bound to, or nil for the end of the
// method or an unmarked label.
func (l *Label) Target() *Instruction {
	return l.target
}

// LdcI4 loads an int32 constant using the shortest encoding.
func (b *Builder) LdcI4(v int32) *Instruction {
	switch {
	case v == -1:
		return b.Emit(OpLdcI4M1)
	case v >= 0 && v <= 8:
		return b.Emit(OpLdcI40 + Opcode(v))
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return b.emit(OpLdcI4S, IntImm{Value: v})
	default:
		return b.emit(OpLdcI4, IntImm{Value: v})
	}
}

// Ldarg loads argument i.
func (b *Builder) Ldarg(i int) *Instruction {
	switch {
	case i <= 3:
		return b.Emit(OpLdarg0 + Opcode(i))
	case i <= math.MaxUint8:
		return b.emit(OpLdargS, ArgImm{Index: uint16(i)})
	default:
		return b.emit(OpLdarg, ArgImm{Index: uint16(i)})
	}
}

// Ldloc loads local i.
func (b *Builder) Ldloc(i int) *Instruction {
	switch {
	case i <= 3:
		return b.Emit(OpLdloc0 + Opcode(i))
	case i <= math.MaxUint8:
		return b.emit(OpLdlocS, VarImm{Index: uint16(i)})
	default:
		return b.emit(OpLdloc, VarImm{Index: uint16(i)})
	}
}

// Ldloca loads the address of local i.
func (b *Builder) Ldloca(i int) *Instruction {
	if i <= math.MaxUint8 {
		return b.emit(OpLdlocaS, VarImm{Index: uint16(i)})
	}
	return b.emit(OpLdloca, VarImm{Index: uint16(i)})
}

// Stloc stores into local i.
func (b *Builder) Stloc(i int) *Instruction {
	switch {
	case i <= 3:
		return b.Emit(OpStloc0 + Opcode(i))
	case i <= math.MaxUint8:
		return b.emit(OpStlocS, VarImm{Index: uint16(i)})
	default:
		return b.emit(OpStloc, VarImm{Index: uint16(i)})
	}
}

// Instructions resolves labels and returns the emitted sequence.
func (b *Builder) Instructions() Instructions {
	for _, l := range b.pending {
		l.target = nil
	}
	b.pending = nil

	for _, f := range b.fixups {
		switch imm := f.ins.Operand.(type) {
		case BranchImm:
			f.ins.Operand = BranchImm{Target: f.labels[0].target}
		case SwitchImm:
			for i, l := range f.labels {
				imm.Targets[i] = l.target
			}
		}
	}
	b.fixups = nil
	return b.list
}

func (b *Builder) emit(op Opcode, operand any) *Instruction {
	ins := &Instruction{Opcode: op, Operand: operand}
	b.bind(ins)
	b.list.Append(ins)
	return ins
}

func (b *Builder) bind(ins *Instruction) {
	for _, l := range b.pending {
		l.target = ins
	}
	b.pending = b.pending[:0]
}
