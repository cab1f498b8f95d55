// Package metadata models the parts of a module the weaver reads and edits:
// types, methods and properties, the interceptor records attached to them,
// and the reference rows (TypeRef, MemberRef, StandAloneSig, MethodSpec)
// method bodies point at through tokens.
//
// Module implements assembler.SignatureResolver so a body's call sites can be
// stack-simulated against the module that owns it.
//
// Hooks are looked up by name along the interceptor type's base chain:
//
//	before := interceptor.Type.ResolveHook(metadata.HookBefore)
//	if before == nil {
//	    // the interceptor cannot be woven
//	}
package metadata
