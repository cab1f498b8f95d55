package weaver

import (
	"github.com/wippyai/cilweave/cil"
	"github.com/wippyai/cilweave/errors"
	"github.com/wippyai/cilweave/metadata"
)

// emitContext creates the invocation context of md and stores it in local
// ctx. By-reference parameters are recorded as null.
func (w *Weaver) emitContext(b *cil.Builder, md *metadata.MethodDef, ctx int) error {
	rt := w.module.Runtime()
	sig := md.Signature

	b.EmitToken(cil.OpLdtoken, md.Token)
	b.EmitToken(cil.OpCall, rt.GetMethodFromHandle)

	b.LdcI4(int32(len(sig.Params)))
	b.EmitToken(cil.OpNewarr, rt.Object)
	first := sig.ArgCount() - len(sig.Params)
	for i, p := range sig.Params {
		b.Emit(cil.OpDup)
		b.LdcI4(int32(i))
		if p.ByRef {
			b.Emit(cil.OpLdnull)
		} else {
			b.Ldarg(first + i)
			if err := w.emitBox(b, md, p); err != nil {
				return err
			}
		}
		b.Emit(cil.OpStelemRef)
	}

	b.EmitToken(cil.OpNewobj, rt.ContextCtor)
	b.Stloc(ctx)
	return nil
}

// emitBefore instantiates each interceptor into its local and calls the
// Before hooks in list order.
func emitBefore(b *cil.Builder, hs []*hooks, locals []int, ctx int) {
	for k, h := range hs {
		b.EmitToken(cil.OpNewobj, h.ctor)
		b.Stloc(locals[k])
	}
	for k, h := range hs {
		emitHook(b, locals[k], ctx, h.before)
	}
}

func emitHook(b *cil.Builder, local, ctx int, hook cil.Token) {
	b.Ldloc(local)
	b.Ldloc(ctx)
	b.EmitToken(cil.OpCallvirt, hook)
}

// emitArgs loads every argument of md including this.
func emitArgs(b *cil.Builder, md *metadata.MethodDef) {
	for i := 0; i < md.Signature.ArgCount(); i++ {
		b.Ldarg(i)
	}
}

func (w *Weaver) emitBox(b *cil.Builder, md *metadata.MethodDef, t metadata.TypeSig) error {
	if !t.NeedsBox() {
		return nil
	}
	tok, err := w.typeToken(md, t)
	if err != nil {
		return err
	}
	b.EmitToken(cil.OpBox, tok)
	return nil
}

// emitUnbox converts the object on the stack to t. Value types go through
// local dflt: a null ReturnValue, left by a swallowed exception, yields
// default(T) instead of failing in unbox.any.
func (w *Weaver) emitUnbox(b *cil.Builder, md *metadata.MethodDef, t metadata.TypeSig, dflt int) error {
	if t.Kind == metadata.ElemObject {
		return nil
	}
	tok, err := w.typeToken(md, t)
	if err != nil {
		return err
	}
	if !t.NeedsBox() {
		b.EmitToken(cil.OpCastclass, tok)
		return nil
	}

	unbox, done := b.NewLabel(), b.NewLabel()
	b.Emit(cil.OpDup)
	b.EmitBranch(cil.OpBrtrueS, unbox)
	b.Emit(cil.OpPop)
	b.Ldloca(dflt)
	b.EmitToken(cil.OpInitobj, tok)
	b.Ldloc(dflt)
	b.EmitBranch(cil.OpBrS, done)
	b.Mark(unbox)
	b.EmitToken(cil.OpUnboxAny, tok)
	b.Mark(done)
	return nil
}

func (w *Weaver) typeToken(md *metadata.MethodDef, t metadata.TypeSig) (cil.Token, error) {
	tok := w.module.TypeToken(t)
	if tok.IsNil() {
		return 0, errors.New(errors.PhaseWeave, errors.KindUnsupported).
			Member(md.FullName()).
			Detail("no type token for %s", t).Build()
	}
	return tok, nil
}

func variableTypes(body *cil.MethodBody) []cil.Token {
	out := make([]cil.Token, len(body.Variables))
	for i, v := range body.Variables {
		out[i] = v.Type
	}
	return out
}
