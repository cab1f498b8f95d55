// Package cil decodes and encodes CLI (ECMA-335) method bodies.
//
// A body is decoded into an ordered sequence of Instructions whose branch
// operands and exception handler boundaries refer to other instructions by
// pointer, so that instructions can be inserted and removed without manual
// offset bookkeeping. Offsets are recomputed on every structural edit and
// branch displacements are re-derived when the sequence is encoded.
//
// # Decoding
//
//	body, n, err := cil.DecodeBody(data)
//	if err != nil {
//	    return err
//	}
//	fmt.Print(cil.Disassemble(body))
//
// Both header forms are supported: the one-byte tiny header (code size below
// 64, no locals, no exception handlers, max stack 8) and the twelve-byte fat
// header followed by a chain of small or fat exception handling sections.
//
// # End of method
//
// A branch or handler boundary whose offset equals the code size has no
// instruction to refer to. It is represented by a nil target and encodes back
// to the code size.
//
// # Building
//
// Builder emits new sequences, choosing the short forms of ldarg, ldloc,
// stloc and ldc.i4 and resolving forward Labels when Instructions is called.
// Laying out a complete body (max stack, header form, handler table) is done
// by the assembler package.
package cil
