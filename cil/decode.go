package cil

import (
	"github.com/wippyai/cilweave/errors"
	"github.com/wippyai/cilweave/internal/binary"
)

// DecodeBody decodes a method body starting at data[0] and returns it with
// the number of bytes consumed, including any exception handling sections.
// data must start on a 4-byte boundary of the image for section alignment
// to be computed correctly.
func DecodeBody(data []byte) (*MethodBody, int, error) {
	r := binary.NewReader(data)
	body := &MethodBody{}

	first, err := r.ReadByte()
	if err != nil {
		return nil, 0, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Detail("empty method body").Cause(err).Build()
	}

	moreSects := false
	switch first & HeaderFormatMask {
	case HeaderTiny:
		body.CodeSize = int(first >> 2)
		body.MaxStack = DefaultMaxStack

	case HeaderFat:
		if err := r.Reset(0); err != nil {
			return nil, 0, err
		}
		flags, err := r.ReadU16()
		if err != nil {
			return nil, 0, truncated(r, "fat header", err)
		}
		if size := flags >> 12; size != FatHeaderDwords {
			return nil, 0, errors.Format(0, "fat header size %d dwords, want %d", size, FatHeaderDwords)
		}
		maxStack, err := r.ReadU16()
		if err != nil {
			return nil, 0, truncated(r, "fat header", err)
		}
		codeSize, err := r.ReadU32()
		if err != nil {
			return nil, 0, truncated(r, "fat header", err)
		}
		localTok, err := r.ReadU32()
		if err != nil {
			return nil, 0, truncated(r, "fat header", err)
		}
		body.MaxStack = int(maxStack)
		body.CodeSize = int(codeSize)
		body.LocalVarToken = Token(localTok)
		body.InitLocals = flags&FatInitLocals != 0
		moreSects = flags&FatMoreSects != 0

	default:
		return nil, 0, errors.Format(0, "invalid method header byte 0x%02x", first)
	}

	if body.CodeSize > r.Len() {
		return nil, 0, errors.Format(r.Position(), "code size %d exceeds remaining %d bytes", body.CodeSize, r.Len())
	}
	code, err := r.ReadBytes(body.CodeSize)
	if err != nil {
		return nil, 0, truncated(r, "code", err)
	}

	body.Instructions, err = DecodeInstructions(code)
	if err != nil {
		return nil, 0, err
	}

	if moreSects {
		handlers, err := decodeSections(r, body.Instructions, body.CodeSize)
		if err != nil {
			return nil, 0, err
		}
		body.Handlers = handlers
	}

	return body, r.Position(), nil
}

// DecodeInstructions decodes a code stream and resolves its branch targets.
func DecodeInstructions(code []byte) (Instructions, error) {
	instrs, err := decodeStream(code)
	if err != nil {
		return nil, err
	}
	if err := ResolveBranches(instrs, len(code)); err != nil {
		return nil, err
	}
	return instrs, nil
}

// decodeStream decodes instructions leaving branch operands as absolute
// offsets.
func decodeStream(code []byte) (Instructions, error) {
	r := binary.NewReader(code)
	// roughly 3 bytes per instruction on average
	instrs := make(Instructions, 0, len(code)/3+1)

	for r.Len() > 0 {
		start := r.Position()
		b, _ := r.ReadByte()

		op := Opcode(b)
		if b == PrefixTwoByte {
			second, err := r.ReadByte()
			if err != nil {
				return nil, truncated(r, "opcode", err)
			}
			op = Opcode(0x100 | uint16(second))
		}

		info, ok := Lookup(op)
		if !ok {
			return nil, errors.UnknownOpcode(start, uint16(op))
		}

		ins := &Instruction{Opcode: op, Offset: start}
		operand, err := readOperand(r, op, info.Operand)
		if err != nil {
			return nil, err
		}
		ins.Operand = operand
		instrs = append(instrs, ins)
	}
	return instrs, nil
}

func readOperand(r *binary.Reader, op Opcode, kind OperandKind) (any, error) {
	var (
		operand any
		err     error
	)

	switch kind {
	case OperandNone:
		return nil, nil

	case OperandShortInt:
		var b byte
		b, err = r.ReadByte()
		if op == OpLdcI4S {
			operand = IntImm{Value: int32(int8(b))}
		} else {
			operand = IntImm{Value: int32(b)}
		}

	case OperandInt:
		var v int32
		v, err = r.ReadI32()
		operand = IntImm{Value: v}

	case OperandLong:
		var v int64
		v, err = r.ReadI64()
		operand = LongImm{Value: v}

	case OperandShortFloat:
		var v float32
		v, err = r.ReadF32()
		operand = Float32Imm{Value: v}

	case OperandFloat:
		var v float64
		v, err = r.ReadF64()
		operand = Float64Imm{Value: v}

	case OperandString, OperandMethod, OperandField, OperandType, OperandTok, OperandSig:
		var v uint32
		v, err = r.ReadU32()
		operand = TokenImm{Token: Token(v)}

	case OperandShortBranch:
		var v int8
		v, err = r.ReadI8()
		operand = rawBranch{Offset: r.Position() + int(v)}

	case OperandBranch:
		var v int32
		v, err = r.ReadI32()
		operand = rawBranch{Offset: r.Position() + int(v)}

	case OperandSwitch:
		var count uint32
		count, err = r.ReadU32()
		if err != nil {
			break
		}
		if int64(count)*4 > int64(r.Len()) {
			return nil, errors.Format(r.Position(), "switch table of %d entries exceeds code", count)
		}
		rel := make([]int32, count)
		for i := range rel {
			if rel[i], err = r.ReadI32(); err != nil {
				break
			}
		}
		// offsets are relative to the end of the whole instruction
		end := r.Position()
		offsets := make([]int, count)
		for i, v := range rel {
			offsets[i] = end + int(v)
		}
		operand = rawSwitch{Offsets: offsets}

	case OperandShortVar:
		var b byte
		b, err = r.ReadByte()
		operand = VarImm{Index: uint16(b)}

	case OperandVar:
		var v uint16
		v, err = r.ReadU16()
		operand = VarImm{Index: v}

	case OperandShortArg:
		var b byte
		b, err = r.ReadByte()
		operand = ArgImm{Index: uint16(b)}

	case OperandArg:
		var v uint16
		v, err = r.ReadU16()
		operand = ArgImm{Index: v}

	default:
		return nil, errors.Format(r.Position(), "unhandled operand kind %d for %s", kind, op)
	}

	if err != nil {
		return nil, truncated(r, op.String()+" operand", err)
	}
	return operand, nil
}

// ResolveBranches replaces absolute branch offsets with references to the
// target instructions. An offset equal to codeSize resolves to the nil
// end-of-method target; any other offset that does not start an instruction
// is a format error.
func ResolveBranches(instrs Instructions, codeSize int) error {
	for _, ins := range instrs {
		switch imm := ins.Operand.(type) {
		case rawBranch:
			target, err := resolveOffset(instrs, codeSize, imm.Offset, ins.Offset)
			if err != nil {
				return err
			}
			ins.Operand = BranchImm{Target: target}

		case rawSwitch:
			targets := make([]*Instruction, len(imm.Offsets))
			for i, off := range imm.Offsets {
				target, err := resolveOffset(instrs, codeSize, off, ins.Offset)
				if err != nil {
					return err
				}
				targets[i] = target
			}
			ins.Operand = SwitchImm{Targets: targets}
		}
	}
	return nil
}

func resolveOffset(instrs Instructions, codeSize, offset, at int) (*Instruction, error) {
	if offset == codeSize {
		return nil, nil
	}
	if target, ok := instrs.At(offset); ok {
		return target, nil
	}
	return nil, errors.New(errors.PhaseDecode, errors.KindUnresolvedTarget).
		Offset(at).Value(offset).
		Detail("target IL_%04x is not an instruction boundary", offset).Build()
}

func decodeSections(r *binary.Reader, instrs Instructions, codeSize int) ([]*ExceptionHandler, error) {
	var handlers []*ExceptionHandler

	for {
		if err := r.Align(4); err != nil {
			return nil, truncated(r, "section alignment", err)
		}
		sectionStart := r.Position()

		kind, err := r.ReadByte()
		if err != nil {
			return nil, truncated(r, "section header", err)
		}

		fat := kind&SectFatFormat != 0
		var dataSize int
		if fat {
			v, err := r.ReadU24()
			if err != nil {
				return nil, truncated(r, "section header", err)
			}
			dataSize = int(v)
		} else {
			v, err := r.ReadByte()
			if err != nil {
				return nil, truncated(r, "section header", err)
			}
			if _, err := r.ReadU16(); err != nil {
				return nil, truncated(r, "section header", err)
			}
			dataSize = int(v)
		}

		if dataSize < SectionHeaderLen {
			return nil, errors.Format(sectionStart, "section data size %d", dataSize)
		}

		if kind&SectEHTable == 0 {
			// non-EH sections are skipped
			if _, err := r.ReadBytes(dataSize - SectionHeaderLen); err != nil {
				return nil, truncated(r, "section", err)
			}
		} else {
			clauseSize := SmallClauseSize
			if fat {
				clauseSize = FatClauseSize
			}
			n := (dataSize - SectionHeaderLen) / clauseSize
			for i := 0; i < n; i++ {
				h, err := decodeClause(r, fat, instrs, codeSize)
				if err != nil {
					return nil, err
				}
				handlers = append(handlers, h)
			}
			// tolerate trailing padding inside the declared size
			if rest := dataSize - SectionHeaderLen - n*clauseSize; rest > 0 {
				if _, err := r.ReadBytes(rest); err != nil {
					return nil, truncated(r, "section", err)
				}
			}
		}

		if kind&SectMoreSects == 0 {
			return handlers, nil
		}
	}
}

func decodeClause(r *binary.Reader, fat bool, instrs Instructions, codeSize int) (*ExceptionHandler, error) {
	var flags, tryOff, tryLen, hOff, hLen, extra uint32
	at := r.Position()

	if fat {
		fields := []*uint32{&flags, &tryOff, &tryLen, &hOff, &hLen, &extra}
		for _, f := range fields {
			v, err := r.ReadU32()
			if err != nil {
				return nil, truncated(r, "exception clause", err)
			}
			*f = v
		}
	} else {
		buf, err := r.ReadBytes(SmallClauseSize)
		if err != nil {
			return nil, truncated(r, "exception clause", err)
		}
		flags = uint32(buf[0]) | uint32(buf[1])<<8
		tryOff = uint32(buf[2]) | uint32(buf[3])<<8
		tryLen = uint32(buf[4])
		hOff = uint32(buf[5]) | uint32(buf[6])<<8
		hLen = uint32(buf[7])
		extra = uint32(buf[8]) | uint32(buf[9])<<8 | uint32(buf[10])<<16 | uint32(buf[11])<<24
	}

	h := &ExceptionHandler{Kind: HandlerKind(flags)}
	switch h.Kind {
	case HandlerCatch, HandlerFilter, HandlerFinally, HandlerFault:
	default:
		return nil, errors.Format(at, "unknown exception clause flags 0x%x", flags)
	}

	var err error
	resolve := func(off uint32) *Instruction {
		if err != nil {
			return nil
		}
		var ins *Instruction
		ins, err = resolveOffset(instrs, codeSize, int(off), at)
		return ins
	}

	h.TryStart = resolve(tryOff)
	h.TryEnd = resolve(tryOff + tryLen)
	h.HandlerStart = resolve(hOff)
	h.HandlerEnd = resolve(hOff + hLen)
	switch h.Kind {
	case HandlerCatch:
		h.CatchType = Token(extra)
	case HandlerFilter:
		h.FilterStart = resolve(extra)
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func truncated(r *binary.Reader, section string, err error) error {
	return errors.New(errors.PhaseDecode, errors.KindInvalidData).
		Offset(r.Position()).
		Detail("truncated %s", section).
		Cause(r.WrapError(section, err)).Build()
}
