package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:       PhaseWeave,
				Kind:        KindHookMissing,
				Member:      "Shop.Cart::Add",
				Interceptor: "Audit.LogAttribute",
				Offset:      0x1a,
				Detail:      "no Before",
			},
			contains: []string{"[weave]", "hook_missing", "Shop.Cart::Add", "Audit.LogAttribute", "IL_001a", "no Before"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[decode]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseIO,
				Kind:   KindIO,
				Detail: "rename",
				Cause:  errors.New("permission denied"),
			},
			contains: []string{"[io]", "io", "rename", "caused by", "permission denied"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_NoOffsetWhenZero(t *testing.T) {
	err := Layout("branch target missing")
	if strings.Contains(err.Error(), "IL_") {
		t.Errorf("unexpected offset in %q", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseIO,
		Kind:  KindIO,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidData,
		Detail: "truncated header",
	}

	if !err.Is(&Error{Phase: PhaseDecode, Kind: KindInvalidData}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseLayout, Kind: KindInvalidData}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindUnsupported}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseDecode, Kind: KindInvalidData}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseWeave, KindInvalidData).
		Member("A::M").
		Interceptor("I").
		Offset(8).
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "call", "nop").
		Build()

	if err.Phase != PhaseWeave {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseWeave)
	}
	if err.Kind != KindInvalidData {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidData)
	}
	if err.Member != "A::M" || err.Interceptor != "I" {
		t.Errorf("Member=%q Interceptor=%q", err.Member, err.Interceptor)
	}
	if err.Offset != 8 {
		t.Errorf("Offset = %d, want 8", err.Offset)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected call, got nop" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("Format", func(t *testing.T) {
		err := Format(4, "bad header 0x%02x", 0x07)
		if err.Phase != PhaseDecode || err.Kind != KindInvalidData {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if err.Detail != "bad header 0x07" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("UnknownOpcode", func(t *testing.T) {
		err := UnknownOpcode(2, 0xa6)
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
		if !strings.Contains(err.Detail, "0xa6") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("Layout", func(t *testing.T) {
		err := Layout("target of %s not in body", "br")
		if err.Phase != PhaseLayout || err.Kind != KindUnresolvedTarget {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("HookMissing", func(t *testing.T) {
		err := HookMissing("T::M", "Log", "Before")
		if err.Kind != KindHookMissing {
			t.Errorf("Kind = %v", err.Kind)
		}
		if err.Member != "T::M" || err.Interceptor != "Log" {
			t.Errorf("Member=%q Interceptor=%q", err.Member, err.Interceptor)
		}
	})

	t.Run("IO", func(t *testing.T) {
		cause := errors.New("disk full")
		err := IO("write temp file", cause)
		if !errors.Is(err, cause) {
			t.Error("IO should wrap cause")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseWeave, "method", "Run")
		if !strings.Contains(err.Detail, `"Run"`) {
			t.Errorf("Detail = %q", err.Detail)
		}
	})
}
