// Package errors provides structured error types for the weaver.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the member being rewritten, the interceptor involved, the IL
// offset and the cause chain.
//
// The phases map onto the failure taxonomy of a weave run:
//
//	PhaseDecode  malformed header, opcode or operand (format error)
//	PhaseLayout  unresolvable branch or handler boundary (layout error)
//	PhaseWeave   required hook absent across the inheritance chain
//	PhaseIO      image read, write or replace failure
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseWeave, errors.KindHookMissing).
//		Member("Shop.Cart::Add").
//		Interceptor("Audit.LogAttribute").
//		Detail("hook %q not found", "Before").
//		Build()
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
