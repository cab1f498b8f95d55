package weaver

import (
	"github.com/wippyai/cilweave/cil"
	"github.com/wippyai/cilweave/errors"
	"github.com/wippyai/cilweave/metadata"
)

// buildCtor inlines the context creation and the Before hooks into a copy
// of the constructor body, right after the chained base or this
// constructor call. Without such a call the hooks run at entry.
func (w *Weaver) buildCtor(md *metadata.MethodDef, hs []*hooks) (*cil.MethodBody, error) {
	body := md.Body.Clone()
	if !body.LocalVarToken.IsNil() && len(body.Variables) == 0 {
		return nil, errors.New(errors.PhaseWeave, errors.KindUnsupported).
			Member(md.FullName()).
			Detail("local signature %s is not loaded", body.LocalVarToken).Build()
	}

	rt := w.module.Runtime()
	ctx := body.AddVariable(rt.Context)
	locals := make([]int, len(hs))
	for k, h := range hs {
		locals[k] = body.AddVariable(h.typ)
	}

	b := cil.NewBuilder()
	if err := w.emitContext(b, md, ctx); err != nil {
		return nil, err
	}
	emitBefore(b, hs, locals, ctx)

	at := w.chainedCtorCall(md, body)
	body.Instructions.InsertAfter(at, b.Instructions()...)
	body.InitLocals = true
	body.LocalVarToken = w.module.AddLocalSignature(variableTypes(body))
	return body, nil
}

// chainedCtorCall returns the call that invokes the base or another own
// constructor on this, or nil when the body has none.
func (w *Weaver) chainedCtorCall(md *metadata.MethodDef, body *cil.MethodBody) *cil.Instruction {
	owner := md.DeclaringType
	for _, ins := range body.Instructions {
		if ins.Opcode != cil.OpCall {
			continue
		}
		tok, _ := ins.Token()
		if w.isChainedCtor(owner, tok) {
			return ins
		}
	}
	return nil
}

func (w *Weaver) isChainedCtor(owner *metadata.TypeDef, tok cil.Token) bool {
	row, ok := w.module.Lookup(tok)
	if !ok {
		return false
	}
	switch v := row.(type) {
	case *metadata.MethodDef:
		return v.Name == metadata.CtorName &&
			(v.DeclaringType == owner || (owner.BaseType != nil && v.DeclaringType == owner.BaseType))
	case *metadata.MemberRef:
		if v.Name != metadata.CtorName {
			return false
		}
		if !owner.BaseRef.IsNil() && v.Parent == owner.BaseRef {
			return true
		}
		if owner.BaseType == nil {
			return false
		}
		parent, ok := w.module.Lookup(v.Parent)
		if !ok {
			return false
		}
		switch p := parent.(type) {
		case *metadata.TypeRef:
			return p.FullName() == owner.BaseType.FullName()
		case *metadata.TypeDef:
			return p == owner.BaseType
		}
	}
	return false
}
