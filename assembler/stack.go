package assembler

import (
	"github.com/wippyai/cilweave/cil"
	"github.com/wippyai/cilweave/errors"
)

// MethodSig is the part of a method signature the stack simulation needs.
type MethodSig struct {
	HasThis     bool
	Params      int
	ReturnsVoid bool
}

// SignatureResolver resolves method tokens (MethodDef, MemberRef, MethodSpec)
// and stand-alone call site signatures (calli) to their stack shape.
type SignatureResolver interface {
	MethodSignature(tok cil.Token) (MethodSig, bool)
}

// SignatureMap is a SignatureResolver backed by a map.
type SignatureMap map[cil.Token]MethodSig

func (m SignatureMap) MethodSignature(tok cil.Token) (MethodSig, bool) {
	sig, ok := m[tok]
	return sig, ok
}

// stackEffect returns how many slots ins pops and pushes.
func stackEffect(ins *cil.Instruction, owner MethodSig, sigs SignatureResolver) (pops, pushes int, err error) {
	info := ins.Opcode.Info()
	pops, pushes = int(info.Pops), int(info.Pushes)

	switch ins.Opcode {
	case cil.OpRet:
		if owner.ReturnsVoid {
			return 0, 0, nil
		}
		return 1, 0, nil

	case cil.OpCall, cil.OpCallvirt, cil.OpCalli, cil.OpNewobj:
		tok, _ := ins.Token()
		sig, ok := sigs.MethodSignature(tok)
		if !ok {
			return 0, 0, errors.New(errors.PhaseLayout, errors.KindNotFound).
				Offset(ins.Offset).Value(tok).
				Detail("no signature for %s operand %s", ins.Opcode, tok).Build()
		}
		pops = sig.Params
		if sig.HasThis && ins.Opcode != cil.OpNewobj {
			pops++
		}
		if ins.Opcode == cil.OpCalli {
			pops++
		}
		switch {
		case ins.Opcode == cil.OpNewobj:
			pushes = 1
		case sig.ReturnsVoid:
			pushes = 0
		default:
			pushes = 1
		}
		return pops, pushes, nil
	}

	return pops, pushes, nil
}

// ComputeMaxStack simulates the evaluation stack over the body and returns
// the largest depth reached on any path. Incoming depths are seeded with 0 at
// entry and 1 at catch and filter handler entries. Instructions after an
// unconditional transfer that nothing branches to are unreachable and are
// not simulated. The walk is repeated until the recorded incoming depths are
// stable so backward branches to a deeper stack are accounted for.
func ComputeMaxStack(body *cil.MethodBody, sigs SignatureResolver) (int, error) {
	instrs := body.Instructions
	if len(instrs) == 0 {
		return 0, nil
	}

	owner, ok := sigs.MethodSignature(body.Owner)
	if !ok {
		return 0, errors.New(errors.PhaseLayout, errors.KindNotFound).
			Value(body.Owner).
			Detail("no signature for owning method %s", body.Owner).Build()
	}

	index := make(map[*cil.Instruction]int, len(instrs))
	for i, ins := range instrs {
		index[ins] = i
	}

	incoming := make([]int, len(instrs))
	for i := range incoming {
		incoming[i] = -1
	}
	arrive := func(target *cil.Instruction, depth int) bool {
		if target == nil {
			return false
		}
		i, ok := index[target]
		if !ok || incoming[i] >= depth {
			return false
		}
		incoming[i] = depth
		return true
	}

	arrive(instrs[0], 0)
	for _, h := range body.Handlers {
		entry := 0
		if h.Kind.PushesException() {
			entry = 1
		}
		arrive(h.TryStart, 0)
		arrive(h.HandlerStart, entry)
		if h.FilterStart != nil {
			arrive(h.FilterStart, 1)
		}
	}

	maxDepth := 0
	for pass := 0; pass <= len(instrs); pass++ {
		changed := false
		depth := 0
		live := true
		for i, ins := range instrs {
			if incoming[i] >= 0 {
				live = true
				if incoming[i] > depth {
					depth = incoming[i]
				}
			}
			if !live {
				continue
			}

			pops, pushes, err := stackEffect(ins, owner, sigs)
			if err != nil {
				return 0, err
			}
			if pops == int(cil.PopAll) {
				pops = depth
			}
			if pops > depth {
				return 0, errors.New(errors.PhaseLayout, errors.KindInvalidData).
					Offset(ins.Offset).
					Detail("%s pops %d with stack depth %d", ins.Opcode, pops, depth).Build()
			}
			depth += pushes - pops
			if depth > maxDepth {
				maxDepth = depth
			}

			for _, t := range ins.Targets() {
				if arrive(t, depth) && index[t] <= i {
					changed = true
				}
			}

			switch ins.Opcode.Info().Flow {
			case cil.FlowBranch, cil.FlowReturn, cil.FlowThrow:
				depth, live = 0, false
			}
			if ins.Opcode == cil.OpJmp {
				depth, live = 0, false
			}
		}
		if !changed {
			break
		}
	}
	return maxDepth, nil
}
