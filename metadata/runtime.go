package metadata

import "github.com/wippyai/cilweave/cil"

// Scopes and names of the types woven code depends on.
const (
	CoreLibrary      = "mscorlib"
	RuntimeLibrary   = "Cilweave.Runtime"
	RuntimeNamespace = "Cilweave.Runtime"
	ContextTypeName  = "InvocationContext"
)

// RuntimeRefs holds the references a woven wrapper body calls into: the
// invocation context and the reflection entry point that turns a method
// handle into a MethodBase.
type RuntimeRefs struct {
	Object              cil.Token
	Exception           cil.Token
	MethodBase          cil.Token
	RuntimeMethodHandle cil.Token
	Context             cil.Token

	GetMethodFromHandle cil.Token
	ContextCtor         cil.Token
	SetReturnValue      cil.Token
	GetReturnValue      cil.Token
	SetException        cil.Token
}

// Runtime returns the module's runtime references, adding the TypeRef and
// MemberRef rows on first use.
func (m *Module) Runtime() *RuntimeRefs {
	if m.runtime != nil {
		return m.runtime
	}

	r := &RuntimeRefs{
		Object:              m.AddTypeRef(CoreLibrary, "System", "Object", false),
		Exception:           m.AddTypeRef(CoreLibrary, "System", "Exception", false),
		MethodBase:          m.AddTypeRef(CoreLibrary, "System.Reflection", "MethodBase", false),
		RuntimeMethodHandle: m.AddTypeRef(CoreLibrary, "System", "RuntimeMethodHandle", true),
		Context:             m.AddTypeRef(RuntimeLibrary, RuntimeNamespace, ContextTypeName, false),
	}

	objectArray := TypeSig{Kind: ElemSZArray, Type: r.Object}
	void := Sig(ElemVoid)

	r.GetMethodFromHandle = m.AddMemberRef(r.MethodBase, "GetMethodFromHandle",
		NewSignature(false, ClassSig(r.MethodBase), ValueSig(r.RuntimeMethodHandle)))
	r.ContextCtor = m.AddMemberRef(r.Context, CtorName,
		NewSignature(true, void, Sig(ElemObject), objectArray))
	r.SetReturnValue = m.AddMemberRef(r.Context, "set_ReturnValue",
		NewSignature(true, void, Sig(ElemObject)))
	r.GetReturnValue = m.AddMemberRef(r.Context, "get_ReturnValue",
		NewSignature(true, Sig(ElemObject)))
	r.SetException = m.AddMemberRef(r.Context, "set_Exception",
		NewSignature(true, void, ClassSig(r.Exception)))

	m.runtime = r
	return r
}
