package cil

import (
	"math"

	"github.com/wippyai/cilweave/errors"
	"github.com/wippyai/cilweave/internal/binary"
)

// EncodeInstructions encodes instructions whose offsets are already
// assigned. Branch displacements are derived from the target offsets; a nil
// target encodes as codeSize.
func EncodeInstructions(instrs Instructions, codeSize int) ([]byte, error) {
	w := binary.NewWriter()
	if err := EncodeInstructionsTo(w, instrs, codeSize); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// EncodeInstructionsTo is EncodeInstructions writing into w.
func EncodeInstructionsTo(w *binary.Writer, instrs Instructions, codeSize int) error {
	for _, ins := range instrs {
		if err := encodeInstruction(w, ins, codeSize); err != nil {
			return err
		}
	}
	return nil
}

func encodeInstruction(w *binary.Writer, ins *Instruction, codeSize int) error {
	info, ok := Lookup(ins.Opcode)
	if !ok {
		return errors.New(errors.PhaseLayout, errors.KindUnsupported).
			Offset(ins.Offset).Value(uint16(ins.Opcode)).
			Detail("unknown opcode 0x%02x", uint16(ins.Opcode)).Build()
	}

	if ins.Opcode.IsTwoByte() {
		w.Byte(PrefixTwoByte)
	}
	w.Byte(byte(ins.Opcode))

	mismatch := func() error {
		return errors.New(errors.PhaseLayout, errors.KindInvalidData).
			Offset(ins.Offset).Value(ins.Operand).
			Detail("%s: operand %T does not match operand kind %d", ins.Opcode, ins.Operand, info.Operand).Build()
	}

	targetOffset := func(t *Instruction) int {
		if t == nil {
			return codeSize
		}
		return t.Offset
	}

	switch info.Operand {
	case OperandNone:
		if ins.Operand != nil {
			return mismatch()
		}

	case OperandShortInt:
		imm, ok := ins.Operand.(IntImm)
		if !ok {
			return mismatch()
		}
		w.Byte(byte(imm.Value))

	case OperandInt:
		imm, ok := ins.Operand.(IntImm)
		if !ok {
			return mismatch()
		}
		w.WriteI32(imm.Value)

	case OperandLong:
		imm, ok := ins.Operand.(LongImm)
		if !ok {
			return mismatch()
		}
		w.WriteU64(uint64(imm.Value))

	case OperandShortFloat:
		imm, ok := ins.Operand.(Float32Imm)
		if !ok {
			return mismatch()
		}
		w.WriteF32(imm.Value)

	case OperandFloat:
		imm, ok := ins.Operand.(Float64Imm)
		if !ok {
			return mismatch()
		}
		w.WriteF64(imm.Value)

	case OperandString, OperandMethod, OperandField, OperandType, OperandTok, OperandSig:
		imm, ok := ins.Operand.(TokenImm)
		if !ok {
			return mismatch()
		}
		w.WriteU32(uint32(imm.Token))

	case OperandShortBranch:
		imm, ok := ins.Operand.(BranchImm)
		if !ok {
			return mismatch()
		}
		rel := targetOffset(imm.Target) - ins.End()
		if rel < math.MinInt8 || rel > math.MaxInt8 {
			return errors.New(errors.PhaseLayout, errors.KindOutOfBounds).
				Offset(ins.Offset).Value(rel).
				Detail("%s displacement %d does not fit in 8 bits", ins.Opcode, rel).Build()
		}
		w.Byte(byte(int8(rel)))

	case OperandBranch:
		imm, ok := ins.Operand.(BranchImm)
		if !ok {
			return mismatch()
		}
		w.WriteI32(int32(targetOffset(imm.Target) - ins.End()))

	case OperandSwitch:
		imm, ok := ins.Operand.(SwitchImm)
		if !ok {
			return mismatch()
		}
		w.WriteU32(uint32(len(imm.Targets)))
		end := ins.End()
		for _, t := range imm.Targets {
			w.WriteI32(int32(targetOffset(t) - end))
		}

	case OperandShortVar:
		imm, ok := ins.Operand.(VarImm)
		if !ok || imm.Index > math.MaxUint8 {
			return mismatch()
		}
		w.Byte(byte(imm.Index))

	case OperandVar:
		imm, ok := ins.Operand.(VarImm)
		if !ok {
			return mismatch()
		}
		w.WriteU16(imm.Index)

	case OperandShortArg:
		imm, ok := ins.Operand.(ArgImm)
		if !ok || imm.Index > math.MaxUint8 {
			return mismatch()
		}
		w.Byte(byte(imm.Index))

	case OperandArg:
		imm, ok := ins.Operand.(ArgImm)
		if !ok {
			return mismatch()
		}
		w.WriteU16(imm.Index)

	default:
		return mismatch()
	}
	return nil
}
