package weaver

import (
	"github.com/wippyai/cilweave/cil"
	"github.com/wippyai/cilweave/metadata"
)

// WeaveFixed wraps md with a single interceptor type without consulting
// attribute records. The wrapper calls Before and delegates to the clone;
// there is no try region and no After or Exception stage. Constructors get
// the same inlined form as Weave.
func (w *Weaver) WeaveFixed(md *metadata.MethodDef, typ *metadata.TypeDef) (*Result, error) {
	if err := checkWeavable(md); err != nil {
		return nil, err
	}
	list := []metadata.Interceptor{{Type: typ, AppliesTo: md.Kind().AppliesTo()}}
	hs, err := w.resolveHooks(md, list)
	if err != nil {
		return nil, err
	}

	res := &Result{Member: md, Interceptors: list}
	if md.Kind() == metadata.KindCtor {
		res.Body, err = w.buildCtor(md, hs)
	} else {
		res.Clone, err = w.newClone(md)
		if err == nil {
			res.Body, err = w.buildDelegate(md, res.Clone, hs[0])
		}
	}
	if err != nil {
		return nil, wrap(md, err)
	}
	if err := w.assemble(res); err != nil {
		return nil, wrap(md, err)
	}
	w.logWoven(res)
	return res, nil
}

func (w *Weaver) buildDelegate(md, clone *metadata.MethodDef, h *hooks) (*cil.MethodBody, error) {
	rt := w.module.Runtime()
	body := cil.NewBody(md.Token)
	body.InitLocals = true
	ctx := body.AddVariable(rt.Context)
	local := body.AddVariable(h.typ)

	b := cil.NewBuilder()
	if err := w.emitContext(b, md, ctx); err != nil {
		return nil, err
	}
	emitBefore(b, []*hooks{h}, []int{local}, ctx)
	emitArgs(b, md)
	b.EmitToken(cil.OpCall, clone.Token)
	b.Emit(cil.OpRet)

	body.Instructions = b.Instructions()
	body.LocalVarToken = w.module.AddLocalSignature(variableTypes(body))
	return body, nil
}
