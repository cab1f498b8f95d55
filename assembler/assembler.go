package assembler

import (
	"github.com/wippyai/cilweave/cil"
	"github.com/wippyai/cilweave/errors"
	"github.com/wippyai/cilweave/internal/binary"
)

// Stats summarizes an assembled body.
type Stats struct {
	Header      HeaderForm
	CodeSize    int
	MaxStack    int
	Handlers    int
	FatHandlers bool
	Size        int
}

// Result is an assembled method body.
type Result struct {
	Bytes []byte
	Stats Stats
}

// ComputeOffsets assigns instruction offsets in order, stores the total in
// body.CodeSize and returns it.
func ComputeOffsets(body *cil.MethodBody) int {
	body.CodeSize = body.Instructions.UpdateOffsets()
	return body.CodeSize
}

// Assemble lays out body and encodes it: offsets, max stack, header form,
// code and exception handling section. body.CodeSize and body.MaxStack are
// updated in place.
func Assemble(body *cil.MethodBody, sigs SignatureResolver) (*Result, error) {
	ComputeOffsets(body)

	if err := checkReferences(body); err != nil {
		return nil, err
	}

	maxStack, err := ComputeMaxStack(body, sigs)
	if err != nil {
		return nil, err
	}
	body.MaxStack = maxStack

	form := SelectHeader(body)
	if form == HeaderTiny {
		// the tiny header implies a max stack of 8
		body.MaxStack = cil.DefaultMaxStack
	}

	w := binary.NewWriter()
	writeHeader(w, body, form)
	if err := cil.EncodeInstructionsTo(w, body.Instructions, body.CodeSize); err != nil {
		return nil, err
	}

	fatEH := false
	if len(body.Handlers) > 0 {
		w.Align(4)
		if fatEH, err = EncodeHandlers(w, body.Handlers, body.CodeSize); err != nil {
			return nil, err
		}
	}

	return &Result{
		Bytes: w.Bytes(),
		Stats: Stats{
			Header:      form,
			CodeSize:    body.CodeSize,
			MaxStack:    maxStack,
			Handlers:    len(body.Handlers),
			FatHandlers: fatEH,
			Size:        w.Len(),
		},
	}, nil
}

// checkReferences verifies that every branch target and handler boundary is
// either the end of the method or an instruction of this body.
func checkReferences(body *cil.MethodBody) error {
	member := make(map[*cil.Instruction]struct{}, len(body.Instructions))
	for _, ins := range body.Instructions {
		member[ins] = struct{}{}
	}
	known := func(ins *cil.Instruction) bool {
		if ins == nil {
			return true
		}
		_, ok := member[ins]
		return ok
	}

	for _, ins := range body.Instructions {
		for _, t := range ins.Targets() {
			if !known(t) {
				return errors.New(errors.PhaseLayout, errors.KindUnresolvedTarget).
					Offset(ins.Offset).
					Detail("%s targets an instruction that is not part of the body", ins.Opcode).Build()
			}
		}
	}

	for i, h := range body.Handlers {
		for _, b := range []*cil.Instruction{h.TryStart, h.TryEnd, h.HandlerStart, h.HandlerEnd, h.FilterStart} {
			if !known(b) {
				return errors.Layout("handler #%d (%s) boundary is not part of the body", i, h.Kind)
			}
		}
	}
	return nil
}
