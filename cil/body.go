package cil

import "fmt"

// HandlerKind is the clause kind of an exception handler.
type HandlerKind uint16

const (
	HandlerCatch   HandlerKind = 0x0
	HandlerFilter  HandlerKind = 0x1
	HandlerFinally HandlerKind = 0x2
	HandlerFault   HandlerKind = 0x4
)

func (k HandlerKind) String() string {
	switch k {
	case HandlerCatch:
		return "catch"
	case HandlerFilter:
		return "filter"
	case HandlerFinally:
		return "finally"
	case HandlerFault:
		return "fault"
	default:
		return fmt.Sprintf("HandlerKind(%d)", uint16(k))
	}
}

// PushesException reports whether the runtime pushes the exception object on
// entry to the handler.
func (k HandlerKind) PushesException() bool {
	return k == HandlerCatch || k == HandlerFilter
}

// ExceptionHandler describes one protected region and its handler. End
// boundaries are exclusive; a nil end is the end of the method.
type ExceptionHandler struct {
	TryStart     *Instruction
	TryEnd       *Instruction
	HandlerStart *Instruction
	HandlerEnd   *Instruction
	FilterStart  *Instruction
	CatchType    Token
	Kind         HandlerKind
}

// Variable is a local variable slot.
type Variable struct {
	Type  Token
	Index int
}

// MethodBody is the editable form of a method body.
type MethodBody struct {
	Instructions  Instructions
	Variables     []Variable
	Handlers      []*ExceptionHandler
	Owner         Token
	LocalVarToken Token
	MaxStack      int
	CodeSize      int
	InitLocals    bool
}

// NewBody returns an empty body owned by the given method.
func NewBody(owner Token) *MethodBody {
	return &MethodBody{Owner: owner, MaxStack: DefaultMaxStack}
}

// DefaultMaxStack is the evaluation stack depth implied by a tiny header.
const DefaultMaxStack = 8

// AddVariable appends a local of the given type and returns its index.
func (b *MethodBody) AddVariable(typ Token) int {
	idx := len(b.Variables)
	b.Variables = append(b.Variables, Variable{Index: idx, Type: typ})
	return idx
}

// HasLocals reports whether the body declares local variables.
func (b *MethodBody) HasLocals() bool {
	return len(b.Variables) > 0 || !b.LocalVarToken.IsNil()
}

// Clone returns a deep copy of the body. Branch operands and handler
// boundaries of the copy refer to the copy's own instructions.
func (b *MethodBody) Clone() *MethodBody {
	out := &MethodBody{
		Owner:         b.Owner,
		LocalVarToken: b.LocalVarToken,
		MaxStack:      b.MaxStack,
		CodeSize:      b.CodeSize,
		InitLocals:    b.InitLocals,
		Variables:     append([]Variable(nil), b.Variables...),
	}

	remap := make(map[*Instruction]*Instruction, len(b.Instructions))
	out.Instructions = make(Instructions, len(b.Instructions))
	for i, ins := range b.Instructions {
		c := *ins
		out.Instructions[i] = &c
		remap[ins] = &c
	}

	// Targets outside the body are kept as-is so the assembler reports them.
	mapped := func(ins *Instruction) *Instruction {
		if ins == nil {
			return nil
		}
		if c, ok := remap[ins]; ok {
			return c
		}
		return ins
	}

	for _, ins := range out.Instructions {
		switch imm := ins.Operand.(type) {
		case BranchImm:
			ins.Operand = BranchImm{Target: mapped(imm.Target)}
		case SwitchImm:
			targets := make([]*Instruction, len(imm.Targets))
			for i, t := range imm.Targets {
				targets[i] = mapped(t)
			}
			ins.Operand = SwitchImm{Targets: targets}
		}
	}

	out.Handlers = make([]*ExceptionHandler, len(b.Handlers))
	for i, h := range b.Handlers {
		out.Handlers[i] = &ExceptionHandler{
			Kind:         h.Kind,
			CatchType:    h.CatchType,
			TryStart:     mapped(h.TryStart),
			TryEnd:       mapped(h.TryEnd),
			HandlerStart: mapped(h.HandlerStart),
			HandlerEnd:   mapped(h.HandlerEnd),
			FilterStart:  mapped(h.FilterStart),
		}
	}
	return out
}
