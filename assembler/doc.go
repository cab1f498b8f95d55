// Package assembler lays out an edited cil.MethodBody and encodes it.
//
// Assemble runs two passes over the instruction sequence. The first assigns
// offsets and the code size. The second simulates the evaluation stack to
// find the max stack: call-family instructions consult a SignatureResolver
// for their argument count and return type, every other opcode uses the
// fixed table in package cil. Catch and filter handlers start with the
// exception object on the stack.
//
// The tiny header is chosen only for bodies under 64 bytes with no locals,
// no handlers, InitLocals unset and a max stack of at most 8. Exception
// handlers use the small section form while there are at most 20 clauses
// whose starts fit in 16 bits and lengths in 8 bits, and the fat form
// otherwise.
package assembler
