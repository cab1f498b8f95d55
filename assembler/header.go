package assembler

import (
	"math"

	"github.com/wippyai/cilweave/cil"
	"github.com/wippyai/cilweave/errors"
	"github.com/wippyai/cilweave/internal/binary"
)

// HeaderForm is the method header encoding.
type HeaderForm uint8

const (
	HeaderTiny HeaderForm = iota
	HeaderFat
)

func (f HeaderForm) String() string {
	if f == HeaderTiny {
		return "tiny"
	}
	return "fat"
}

const (
	// tinyMaxCodeSize is exclusive; the tiny header has six bits of size.
	tinyMaxCodeSize = 64
	// smallMaxClauses keeps the section data size within its 8-bit field.
	smallMaxClauses = 20
)

// SelectHeader returns the tiny form when the body has fewer than 64 bytes of
// code, no locals, no exception handlers, InitLocals unset and a max stack of
// at most 8. Everything else needs the fat form.
func SelectHeader(body *cil.MethodBody) HeaderForm {
	if body.CodeSize < tinyMaxCodeSize &&
		!body.HasLocals() &&
		len(body.Handlers) == 0 &&
		!body.InitLocals &&
		body.MaxStack <= cil.DefaultMaxStack {
		return HeaderTiny
	}
	return HeaderFat
}

func writeHeader(w *binary.Writer, body *cil.MethodBody, form HeaderForm) {
	if form == HeaderTiny {
		w.Byte(byte(body.CodeSize<<2) | cil.HeaderTiny)
		return
	}
	flags := uint16(cil.HeaderFat) | cil.FatHeaderDwords<<12
	if body.InitLocals {
		flags |= cil.FatInitLocals
	}
	if len(body.Handlers) > 0 {
		flags |= cil.FatMoreSects
	}
	w.WriteU16(flags)
	w.WriteU16(uint16(body.MaxStack))
	w.WriteU32(uint32(body.CodeSize))
	w.WriteU32(uint32(body.LocalVarToken))
}

// clause is a handler with numeric boundaries.
type clause struct {
	kind      cil.HandlerKind
	tryOff    int
	tryLen    int
	handlerOf int
	handlerLn int
	extra     uint32
}

func (c clause) fitsSmall() bool {
	return c.tryOff <= math.MaxUint16 && c.tryLen <= math.MaxUint8 &&
		c.handlerOf <= math.MaxUint16 && c.handlerLn <= math.MaxUint8 &&
		(c.kind != cil.HandlerFilter || c.extra <= math.MaxUint16)
}

func offsetOf(ins *cil.Instruction, codeSize int) int {
	if ins == nil {
		return codeSize
	}
	return ins.Offset
}

func toClauses(handlers []*cil.ExceptionHandler, codeSize int) ([]clause, error) {
	out := make([]clause, len(handlers))
	for i, h := range handlers {
		if h.TryStart == nil || h.HandlerStart == nil {
			return nil, errors.Layout("handler #%d: region start cannot be the end of the method", i)
		}
		tryStart, tryEnd := h.TryStart.Offset, offsetOf(h.TryEnd, codeSize)
		hStart, hEnd := h.HandlerStart.Offset, offsetOf(h.HandlerEnd, codeSize)
		if tryEnd <= tryStart || hEnd <= hStart {
			return nil, errors.Layout("handler #%d: empty or inverted region try [%d,%d) handler [%d,%d)",
				i, tryStart, tryEnd, hStart, hEnd)
		}

		c := clause{
			kind:      h.Kind,
			tryOff:    tryStart,
			tryLen:    tryEnd - tryStart,
			handlerOf: hStart,
			handlerLn: hEnd - hStart,
		}
		switch h.Kind {
		case cil.HandlerCatch:
			c.extra = uint32(h.CatchType)
		case cil.HandlerFilter:
			if h.FilterStart == nil {
				return nil, errors.Layout("handler #%d: filter clause without filter block", i)
			}
			c.extra = uint32(h.FilterStart.Offset)
		}
		out[i] = c
	}
	return out, nil
}

// UseSmallSection reports whether handlers can be encoded with 12-byte
// clauses: fewer than 21 entries, starts within 16 bits, lengths within 8.
func UseSmallSection(handlers []*cil.ExceptionHandler, codeSize int) (bool, error) {
	clauses, err := toClauses(handlers, codeSize)
	if err != nil {
		return false, err
	}
	return useSmall(clauses), nil
}

func useSmall(clauses []clause) bool {
	if len(clauses) > smallMaxClauses {
		return false
	}
	for _, c := range clauses {
		if !c.fitsSmall() {
			return false
		}
	}
	return true
}

// EncodeHandlers writes the exception handling section for handlers, whose
// instructions must have their offsets assigned. It reports whether the fat
// form was used.
func EncodeHandlers(w *binary.Writer, handlers []*cil.ExceptionHandler, codeSize int) (bool, error) {
	clauses, err := toClauses(handlers, codeSize)
	if err != nil {
		return false, err
	}

	if useSmall(clauses) {
		w.Byte(cil.SectEHTable)
		w.Byte(byte(cil.SectionHeaderLen + len(clauses)*cil.SmallClauseSize))
		w.WriteU16(0)
		for _, c := range clauses {
			w.WriteU16(uint16(c.kind))
			w.WriteU16(uint16(c.tryOff))
			w.Byte(byte(c.tryLen))
			w.WriteU16(uint16(c.handlerOf))
			w.Byte(byte(c.handlerLn))
			w.WriteU32(c.extra)
		}
		return false, nil
	}

	w.Byte(cil.SectEHTable | cil.SectFatFormat)
	w.WriteU24(uint32(cil.SectionHeaderLen + len(clauses)*cil.FatClauseSize))
	for _, c := range clauses {
		w.WriteU32(uint32(c.kind))
		w.WriteU32(uint32(c.tryOff))
		w.WriteU32(uint32(c.tryLen))
		w.WriteU32(uint32(c.handlerOf))
		w.WriteU32(uint32(c.handlerLn))
		w.WriteU32(c.extra)
	}
	return true, nil
}
