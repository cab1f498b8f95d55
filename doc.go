// Package cilweave rewrites ECMA-335 method bodies so that interceptor
// hooks run around the original code.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	cilweave/
//	├── cil/             Method body model, binary decoder and encoder
//	├── assembler/       Offset layout, max stack, headers and EH tables
//	├── metadata/        Types, members, references and interceptor records
//	├── selector/        Applicable interceptors per member, in weave order
//	├── weaver/          Clone and wrapper generation, weaving sessions
//	├── image/           CBOR module image persistence and reference loading
//	├── config/          cilweave.toml project configuration
//	├── errors/          Structured error types for debugging
//	└── cmd/cilweave/    Command line front end
//
// # Quick Start
//
// Weave every member that carries an interceptor:
//
//	m, err := image.Load("app.cwm")
//	if err != nil {
//		return err
//	}
//	if _, err := weaver.NewSession(m, weaver.Options{}).Run(); err != nil {
//		return err
//	}
//	return image.Replace("app.cwm", m)
//
// # Wrapper Layout
//
// A woven method keeps its name and signature. Its original body moves to a
// private clone and the method itself becomes a wrapper that builds an
// invocation context, calls each interceptor's Before hook in ascending
// Order, calls the clone inside nested try regions and finally runs the
// After hooks in reverse order. Each interceptor's Exception hook is
// reached through its own catch handler.
//
// Constructors are not cloned: the context and Before calls are inlined
// right after the chained base constructor call.
package cilweave
