// Package weaver rewrites members so that their interceptors run around
// them.
//
// A woven method keeps its token and signature. Its original body moves to
// a generated private sibling (the clone) and is replaced by a wrapper that
// builds an invocation context, runs every interceptor's Before hook in
// ascending Order, calls the clone inside one catch region per interceptor
// and runs the After hooks in descending Order before returning the value
// stored in the context.
//
// Constructors are not cloned: the Before hooks are inlined after the
// chained base or this constructor call.
//
// Session weaves a whole module and commits only when every member
// succeeds:
//
//	results, err := weaver.NewSession(module, weaver.Options{}).Run()
//	if err != nil {
//	    return err // module unchanged
//	}
package weaver
