package assembler_test

import (
	"errors"
	"testing"

	"github.com/wippyai/cilweave/assembler"
	"github.com/wippyai/cilweave/cil"
	cilerrors "github.com/wippyai/cilweave/errors"
)

var (
	owner     = cil.NewToken(cil.TableMethodDef, 1)
	ctorRef   = cil.NewToken(cil.TableMemberRef, 1)
	voidVirt  = cil.NewToken(cil.TableMemberRef, 2)
	staticFn  = cil.NewToken(cil.TableMemberRef, 3)
	indirect  = cil.NewToken(cil.TableStandAloneSig, 1)
	catchType = cil.NewToken(cil.TableTypeRef, 1)
)

func sigs(ownerSig assembler.MethodSig) assembler.SignatureMap {
	return assembler.SignatureMap{
		owner:    ownerSig,
		ctorRef:  {HasThis: true, Params: 2, ReturnsVoid: true},
		voidVirt: {HasThis: true, Params: 1, ReturnsVoid: true},
		staticFn: {Params: 3},
		indirect: {Params: 1},
	}
}

func bodyOf(instrs cil.Instructions) *cil.MethodBody {
	body := cil.NewBody(owner)
	body.Instructions = instrs
	return body
}

func TestTinyHeader(t *testing.T) {
	b := cil.NewBuilder()
	b.Ldarg(0)
	b.Emit(cil.OpRet)
	body := bodyOf(b.Instructions())

	res, err := assembler.Assemble(body, sigs(assembler.MethodSig{Params: 1}))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Stats.Header != assembler.HeaderTiny {
		t.Fatalf("header = %s, want tiny", res.Stats.Header)
	}
	want := []byte{2<<2 | cil.HeaderTiny, 0x02, 0x2A}
	if string(res.Bytes) != string(want) {
		t.Errorf("bytes = % x, want % x", res.Bytes, want)
	}
	if body.MaxStack != cil.DefaultMaxStack || res.Stats.MaxStack != 1 {
		t.Errorf("body.MaxStack=%d stats.MaxStack=%d", body.MaxStack, res.Stats.MaxStack)
	}
}

func TestHeaderSelection(t *testing.T) {
	nops := func(n int) cil.Instructions {
		b := cil.NewBuilder()
		for i := 0; i < n; i++ {
			b.Emit(cil.OpNop)
		}
		b.Emit(cil.OpRet)
		return b.Instructions()
	}

	tests := []struct {
		name  string
		body  func() *cil.MethodBody
		want  assembler.HeaderForm
		stack int
	}{
		{
			name: "63 bytes of code",
			body: func() *cil.MethodBody { return bodyOf(nops(62)) },
			want: assembler.HeaderTiny,
		},
		{
			name: "64 bytes of code",
			body: func() *cil.MethodBody { return bodyOf(nops(63)) },
			want: assembler.HeaderFat,
		},
		{
			name: "locals",
			body: func() *cil.MethodBody {
				body := bodyOf(nops(0))
				body.AddVariable(catchType)
				return body
			},
			want: assembler.HeaderFat,
		},
		{
			name: "init locals",
			body: func() *cil.MethodBody {
				body := bodyOf(nops(0))
				body.InitLocals = true
				return body
			},
			want: assembler.HeaderFat,
		},
		{
			name: "max stack 9",
			body: func() *cil.MethodBody {
				b := cil.NewBuilder()
				for i := 0; i < 9; i++ {
					b.LdcI4(int32(i))
				}
				for i := 0; i < 9; i++ {
					b.Emit(cil.OpPop)
				}
				b.Emit(cil.OpRet)
				return bodyOf(b.Instructions())
			},
			want:  assembler.HeaderFat,
			stack: 9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body()
			res, err := assembler.Assemble(body, sigs(assembler.MethodSig{ReturnsVoid: true}))
			if err != nil {
				t.Fatalf("Assemble: %v", err)
			}
			if res.Stats.Header != tt.want {
				t.Errorf("header = %s, want %s", res.Stats.Header, tt.want)
			}
			if tt.stack != 0 && res.Stats.MaxStack != tt.stack {
				t.Errorf("max stack = %d, want %d", res.Stats.MaxStack, tt.stack)
			}

			decoded, n, err := cil.DecodeBody(res.Bytes)
			if err != nil {
				t.Fatalf("decode assembled body: %v", err)
			}
			if n != len(res.Bytes) || decoded.CodeSize != body.CodeSize {
				t.Errorf("decoded %d/%d bytes, code size %d/%d", n, len(res.Bytes), decoded.CodeSize, body.CodeSize)
			}
			if decoded.InitLocals != body.InitLocals {
				t.Errorf("InitLocals not preserved")
			}
		})
	}
}

func TestCallFamilyStackEffects(t *testing.T) {
	b := cil.NewBuilder()
	b.LdcI4(1)
	b.LdcI4(2)
	// newobj pops its arguments only and pushes the object
	b.EmitToken(cil.OpNewobj, ctorRef)
	b.LdcI4(3)
	b.LdcI4(4)
	b.LdcI4(5)
	// this plus one argument
	b.EmitToken(cil.OpCallvirt, voidVirt)
	b.LdcI4(6)
	b.EmitToken(cil.OpCall, staticFn)
	// one argument plus the function pointer
	b.EmitToken(cil.OpLdftn, staticFn)
	b.EmitToken(cil.OpCalli, indirect)
	b.Emit(cil.OpRet)
	body := bodyOf(b.Instructions())
	assembler.ComputeOffsets(body)

	got, err := assembler.ComputeMaxStack(body, sigs(assembler.MethodSig{}))
	if err != nil {
		t.Fatalf("ComputeMaxStack: %v", err)
	}
	if got != 4 {
		t.Errorf("max stack = %d, want 4", got)
	}
}

func TestReturnPopsValue(t *testing.T) {
	b := cil.NewBuilder()
	b.Emit(cil.OpRet)
	body := bodyOf(b.Instructions())

	_, err := assembler.Assemble(body, sigs(assembler.MethodSig{}))
	want := cilerrors.New(cilerrors.PhaseLayout, cilerrors.KindInvalidData).Build()
	if !errors.Is(err, want) {
		t.Errorf("ret without a value on a non-void method: got %v", err)
	}
}

func TestMissingSignature(t *testing.T) {
	b := cil.NewBuilder()
	b.EmitToken(cil.OpCall, cil.NewToken(cil.TableMemberRef, 99))
	b.Emit(cil.OpRet)

	_, err := assembler.Assemble(bodyOf(b.Instructions()), sigs(assembler.MethodSig{ReturnsVoid: true}))
	want := cilerrors.New(cilerrors.PhaseLayout, cilerrors.KindNotFound).Build()
	if !errors.Is(err, want) {
		t.Errorf("got %v, want not-found layout error", err)
	}
}

// guardedBlocks builds n consecutive try/catch blocks whose try regions span
// tryLen bytes, all leaving to a shared ret.
func guardedBlocks(n, tryLen int) *cil.MethodBody {
	b := cil.NewBuilder()
	end := b.NewLabel()

	var tryStarts, handlerStarts []*cil.Instruction
	for i := 0; i < n; i++ {
		tryStarts = append(tryStarts, b.Emit(cil.OpNop))
		for j := 0; j < tryLen-6; j++ {
			b.Emit(cil.OpNop)
		}
		b.EmitBranch(cil.OpLeave, end)
		handlerStarts = append(handlerStarts, b.Emit(cil.OpPop))
		b.EmitBranch(cil.OpLeave, end)
	}
	b.Mark(end)
	ret := b.Emit(cil.OpRet)

	body := bodyOf(b.Instructions())
	for i := 0; i < n; i++ {
		handlerEnd := ret
		if i+1 < n {
			handlerEnd = tryStarts[i+1]
		}
		body.Handlers = append(body.Handlers, &cil.ExceptionHandler{
			Kind:         cil.HandlerCatch,
			CatchType:    catchType,
			TryStart:     tryStarts[i],
			TryEnd:       handlerStarts[i],
			HandlerStart: handlerStarts[i],
			HandlerEnd:   handlerEnd,
		})
	}
	return body
}

func TestHandlerTableForm(t *testing.T) {
	tests := []struct {
		name     string
		handlers int
		tryLen   int
		wantFat  bool
	}{
		{"20 handlers", 20, 6, false},
		{"21 handlers", 21, 6, true},
		{"255-byte try", 1, 255, false},
		{"256-byte try", 1, 256, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := guardedBlocks(tt.handlers, tt.tryLen)
			res, err := assembler.Assemble(body, sigs(assembler.MethodSig{ReturnsVoid: true}))
			if err != nil {
				t.Fatalf("Assemble: %v", err)
			}
			if res.Stats.FatHandlers != tt.wantFat {
				t.Errorf("fat handlers = %v, want %v", res.Stats.FatHandlers, tt.wantFat)
			}
			if res.Stats.Header != assembler.HeaderFat {
				t.Errorf("bodies with handlers need a fat header")
			}
			if got := body.Handlers[0].TryEnd.Offset - body.Handlers[0].TryStart.Offset; got != tt.tryLen {
				t.Fatalf("try length = %d, want %d", got, tt.tryLen)
			}

			decoded, n, err := cil.DecodeBody(res.Bytes)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if n != len(res.Bytes) {
				t.Errorf("decoded %d of %d bytes", n, len(res.Bytes))
			}
			if len(decoded.Handlers) != tt.handlers {
				t.Fatalf("decoded %d handlers, want %d", len(decoded.Handlers), tt.handlers)
			}
			for i, h := range decoded.Handlers {
				orig := body.Handlers[i]
				if h.TryStart.Offset != orig.TryStart.Offset ||
					h.HandlerStart.Offset != orig.HandlerStart.Offset ||
					h.CatchType != catchType {
					t.Errorf("handler %d decoded as %+v", i, h)
				}
			}
		})
	}
}

func TestUseSmallSection(t *testing.T) {
	body := guardedBlocks(21, 6)
	assembler.ComputeOffsets(body)
	small, err := assembler.UseSmallSection(body.Handlers[:20], body.CodeSize)
	if err != nil || !small {
		t.Errorf("20 handlers: small=%v err=%v", small, err)
	}
	small, err = assembler.UseSmallSection(body.Handlers, body.CodeSize)
	if err != nil || small {
		t.Errorf("21 handlers: small=%v err=%v", small, err)
	}
}

func TestHandlerEntryDepth(t *testing.T) {
	body := guardedBlocks(1, 6)
	assembler.ComputeOffsets(body)

	got, err := assembler.ComputeMaxStack(body, sigs(assembler.MethodSig{ReturnsVoid: true}))
	if err != nil {
		t.Fatalf("ComputeMaxStack: %v", err)
	}
	// the only push in the body is the exception object at the catch entry
	if got != 1 {
		t.Errorf("max stack = %d, want 1", got)
	}

	body.Handlers[0].Kind = cil.HandlerFinally
	if _, err := assembler.ComputeMaxStack(body, sigs(assembler.MethodSig{ReturnsVoid: true})); err == nil {
		t.Error("pop in a finally block has nothing to pop and should fail")
	}
}

func TestBackwardBranchDepth(t *testing.T) {
	// the loop head is reached by fall-through and by the back edge
	b := cil.NewBuilder()
	head := b.NewLabel()
	b.LdcI4(1)
	b.LdcI4(2)
	b.Mark(head)
	b.Emit(cil.OpPop)
	b.LdcI4(0)
	b.LdcI4(0)
	b.EmitBranch(cil.OpBrtrueS, head)
	b.Emit(cil.OpPop)
	b.Emit(cil.OpRet)
	body := bodyOf(b.Instructions())
	assembler.ComputeOffsets(body)

	got, err := assembler.ComputeMaxStack(body, sigs(assembler.MethodSig{ReturnsVoid: true}))
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("max stack = %d, want 3", got)
	}
}

func TestUnreachableAfterThrowResets(t *testing.T) {
	b := cil.NewBuilder()
	skip := b.NewLabel()
	b.Ldarg(0)
	b.EmitBranch(cil.OpBrfalseS, skip)
	b.Emit(cil.OpLdnull)
	b.Emit(cil.OpThrow)
	b.Mark(skip)
	b.Emit(cil.OpRet)
	body := bodyOf(b.Instructions())
	assembler.ComputeOffsets(body)

	got, err := assembler.ComputeMaxStack(body, sigs(assembler.MethodSig{Params: 1, ReturnsVoid: true}))
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("max stack = %d, want 1", got)
	}
}

func TestUnreachableCodeIsSkipped(t *testing.T) {
	b := cil.NewBuilder()
	b.Emit(cil.OpLdnull)
	b.Emit(cil.OpThrow)
	// dead tail left behind by some compilers; simulated at depth 0 it
	// would underflow
	b.Emit(cil.OpPop)
	b.Emit(cil.OpRet)
	body := bodyOf(b.Instructions())

	res, err := assembler.Assemble(body, sigs(assembler.MethodSig{}))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Stats.MaxStack != 1 {
		t.Errorf("max stack = %d, want 1", res.Stats.MaxStack)
	}
}

func TestUnreachableCodeReachedByBranch(t *testing.T) {
	b := cil.NewBuilder()
	target := b.NewLabel()
	b.LdcI4(1)
	b.EmitBranch(cil.OpBrS, target)
	b.Emit(cil.OpNop)
	b.Mark(target)
	b.Emit(cil.OpPop)
	b.Emit(cil.OpRet)
	body := bodyOf(b.Instructions())
	assembler.ComputeOffsets(body)

	got, err := assembler.ComputeMaxStack(body, sigs(assembler.MethodSig{ReturnsVoid: true}))
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("max stack = %d, want 1", got)
	}
}

func TestStackUnderflow(t *testing.T) {
	body := bodyOf(cil.Instructions{
		cil.New(cil.OpPop, nil),
		cil.New(cil.OpRet, nil),
	})
	assembler.ComputeOffsets(body)

	_, err := assembler.ComputeMaxStack(body, sigs(assembler.MethodSig{ReturnsVoid: true}))
	want := cilerrors.New(cilerrors.PhaseLayout, cilerrors.KindInvalidData).Build()
	if !errors.Is(err, want) {
		t.Errorf("got %v, want layout error", err)
	}
}

func TestLayoutErrors(t *testing.T) {
	stray := cil.New(cil.OpNop, nil)

	t.Run("branch outside body", func(t *testing.T) {
		body := bodyOf(cil.Instructions{
			cil.New(cil.OpBr, cil.BranchImm{Target: stray}),
			cil.New(cil.OpRet, nil),
		})
		_, err := assembler.Assemble(body, sigs(assembler.MethodSig{ReturnsVoid: true}))
		want := cilerrors.New(cilerrors.PhaseLayout, cilerrors.KindUnresolvedTarget).Build()
		if !errors.Is(err, want) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("handler outside body", func(t *testing.T) {
		body := guardedBlocks(1, 6)
		body.Handlers[0].HandlerEnd = stray
		_, err := assembler.Assemble(body, sigs(assembler.MethodSig{ReturnsVoid: true}))
		want := cilerrors.New(cilerrors.PhaseLayout, cilerrors.KindUnresolvedTarget).Build()
		if !errors.Is(err, want) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("inverted region", func(t *testing.T) {
		body := guardedBlocks(1, 6)
		h := body.Handlers[0]
		h.TryStart, h.TryEnd = h.TryEnd, h.TryStart
		_, err := assembler.Assemble(body, sigs(assembler.MethodSig{ReturnsVoid: true}))
		if err == nil {
			t.Error("expected error for inverted try region")
		}
	})
}

func TestEndSentinelResolvesToCodeSize(t *testing.T) {
	b := cil.NewBuilder()
	tryStart := b.Emit(cil.OpNop)
	b.Emit(cil.OpNop)
	handler := b.Emit(cil.OpEndfinally)
	body := bodyOf(b.Instructions())
	body.Handlers = []*cil.ExceptionHandler{{
		Kind:         cil.HandlerFinally,
		TryStart:     tryStart,
		TryEnd:       handler,
		HandlerStart: handler,
		HandlerEnd:   nil,
	}}

	res, err := assembler.Assemble(body, sigs(assembler.MethodSig{ReturnsVoid: true}))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	decoded, _, err := cil.DecodeBody(res.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	if h := decoded.Handlers[0]; h.HandlerEnd != nil {
		t.Errorf("handler end = %v, want end of method", h.HandlerEnd)
	}
}
