package weaver

import (
	"go.uber.org/zap"

	"github.com/wippyai/cilweave/assembler"
	"github.com/wippyai/cilweave/cil"
	"github.com/wippyai/cilweave/errors"
	"github.com/wippyai/cilweave/metadata"
	"github.com/wippyai/cilweave/selector"
)

// Weaver synthesizes interceptor wrappers for the members of one module.
// A Weaver is not safe for concurrent use.
type Weaver struct {
	module *metadata.Module
	opts   Options
}

// New creates a weaver for m.
func New(m *metadata.Module, opts Options) *Weaver {
	return &Weaver{module: m, opts: opts}
}

// Result is a woven member that has not been committed yet. The module's
// types and bodies are unchanged until Commit is called; only reference rows
// the new bodies need may have been added.
type Result struct {
	Member       *metadata.MethodDef
	Clone        *metadata.MethodDef
	Body         *cil.MethodBody
	Encoded      *assembler.Result
	CloneBytes   []byte
	Interceptors []metadata.Interceptor
}

// Commit replaces the member's body with the wrapper and attaches the clone
// to the declaring type.
func (r *Result) Commit() {
	r.Member.Body = r.Body
	r.Member.RawBody = r.Encoded.Bytes
	if r.Clone != nil {
		r.Clone.RawBody = r.CloneBytes
		r.Member.DeclaringType.AddMethod(r.Clone)
	}
}

// Weave builds the wrapper of md for the given interceptors. It returns nil
// when list is empty. Constructors get Before hooks inlined after the
// chained constructor call instead of a wrapper.
func (w *Weaver) Weave(md *metadata.MethodDef, list []metadata.Interceptor) (*Result, error) {
	if len(list) == 0 {
		return nil, nil
	}
	if err := checkWeavable(md); err != nil {
		return nil, err
	}

	ordered := selector.BeforeOrder(list)
	hs, err := w.resolveHooks(md, ordered)
	if err != nil {
		return nil, err
	}

	res := &Result{Member: md, Interceptors: ordered}
	if md.Kind() == metadata.KindCtor {
		res.Body, err = w.buildCtor(md, hs)
	} else {
		res.Clone, err = w.newClone(md)
		if err == nil {
			res.Body, err = w.buildWrapper(md, res.Clone, hs)
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

func checkWeavable(md *metadata.MethodDef) error {
	switch {
	case md.Body == nil:
		return errors.New(errors.PhaseWeave, errors.KindUnsupported).
			Member(md.FullName()).Detail("member has no body").Build()
	case md.Kind() == metadata.KindStaticCtor:
		return errors.New(errors.PhaseWeave, errors.KindUnsupported).
			Member(md.FullName()).Detail("static constructors cannot be woven").Build()
	case md.Signature.Return.ByRef:
		return errors.New(errors.PhaseWeave, errors.KindUnsupported).
			Member(md.FullName()).Detail("by-reference return values are not supported").Build()
	}
	return nil
}

// newClone copies md's current body into a generated private sibling.
func (w *Weaver) newClone(md *metadata.MethodDef) (*metadata.MethodDef, error) {
	name := CloneName(md, w.opts.cloneSuffix())
	if md.DeclaringType.Method(name) != nil {
		return nil, errors.New(errors.PhaseWeave, errors.KindUnsupported).
			Member(md.FullName()).Detail("member is already woven as %s", name).Build()
	}
	clone := w.module.NewClonedMemberSlot(md, name)
	clone.Body = md.Body.Clone()
	clone.Body.Owner = clone.Token
	return clone, nil
}

// buildWrapper synthesizes the replacement body of md:
//
//	ctx = new InvocationContext(method, args)
//	ic_k = new I_k(); ic_k.Before(ctx)            ascending Order
//	try {                                          one region per interceptor
//	    ctx.ReturnValue = clone(args)
//	} catch (Exception e) {                        innermost first
//	    ctx.Exception = e; ic_k.Exception(ctx)
//	}
//	ic_k.After(ctx)                                descending Order
//	return ctx.ReturnValue ?? default(T)
//
// The try regions share their start; region k ends where its handler
// starts and its handler ends where the handler of region k-1 starts.
func (w *Weaver) buildWrapper(md, clone *metadata.MethodDef, hs []*hooks) (*cil.MethodBody, error) {
	rt := w.module.Runtime()
	ret := md.Signature.Return

	body := cil.NewBody(md.Token)
	body.InitLocals = true
	ctx := body.AddVariable(rt.Context)
	ex := body.AddVariable(rt.Exception)
	locals := make([]int, len(hs))
	for k, h := range hs {
		locals[k] = body.AddVariable(h.typ)
	}
	dflt := -1
	if !ret.IsVoid() && ret.NeedsBox() {
		tok, err := w.typeToken(md, ret)
		if err != nil {
			return nil, err
		}
		dflt = body.AddVariable(tok)
	}

	b := cil.NewBuilder()
	if err := w.emitContext(b, md, ctx); err != nil {
		return nil, err
	}
	emitBefore(b, hs, locals, ctx)

	n := len(hs)
	tryStart := b.NewLabel()
	end := b.NewLabel()
	handlerStart := make([]*cil.Label, n)

	b.Mark(tryStart)
	if !ret.IsVoid() {
		b.Ldloc(ctx)
	}
	emitArgs(b, md)
	b.EmitToken(cil.OpCall, clone.Token)
	if !ret.IsVoid() {
		if err := w.emitBox(b, md, ret); err != nil {
			return nil, err
		}
		b.EmitToken(cil.OpCallvirt, rt.SetReturnValue)
	}
	b.EmitBranch(cil.OpLeave, end)

	for k := n - 1; k >= 0; k-- {
		handlerStart[k] = b.NewLabel()
		b.Mark(handlerStart[k])
		b.Stloc(ex)
		b.Ldloc(ctx)
		b.Ldloc(ex)
		b.EmitToken(cil.OpCallvirt, rt.SetException)
		if !hs[k].exception.IsNil() {
			emitHook(b, locals[k], ctx, hs[k].exception)
		}
		if w.opts.RethrowAfterExceptionHook {
			b.Emit(cil.OpRethrow)
		} else {
			b.EmitBranch(cil.OpLeave, end)
		}
	}

	b.Mark(end)
	for k := n - 1; k >= 0; k-- {
		if !hs[k].after.IsNil() {
			emitHook(b, locals[k], ctx, hs[k].after)
		}
	}
	if !ret.IsVoid() {
		b.Ldloc(ctx)
		b.EmitToken(cil.OpCallvirt, rt.GetReturnValue)
		if err := w.emitUnbox(b, md, ret, dflt); err != nil {
			return nil, err
		}
	}
	b.Emit(cil.OpRet)

	body.Instructions = b.Instructions()
	for k := n - 1; k >= 0; k-- {
		handlerEnd := end.Target()
		if k > 0 {
			handlerEnd = handlerStart[k-1].Target()
		}
		body.Handlers = append(body.Handlers, &cil.ExceptionHandler{
			Kind:         cil.HandlerCatch,
			CatchType:    rt.Exception,
			TryStart:     tryStart.Target(),
			TryEnd:       handlerStart[k].Target(),
			HandlerStart: handlerStart[k].Target(),
			HandlerEnd:   handlerEnd,
		})
	}
	body.LocalVarToken = w.module.AddLocalSignature(variableTypes(body))
	return body, nil
}

// assemble lays out the wrapper and the clone. An unchanged clone reuses
// the original encoded body.
func (w *Weaver) assemble(res *Result) error {
	sigs := pending{base: w.module, extra: make(assembler.SignatureMap)}
	if res.Clone != nil {
		sigs.extra[res.Clone.Token] = metadata.StackShape(res.Clone.Signature)
		if raw := res.Member.RawBody; raw != nil {
			res.CloneBytes = raw
		} else {
			out, err := assembler.Assemble(res.Clone.Body, sigs)
			if err != nil {
				return err
			}
			res.CloneBytes = out.Bytes
		}
	}

	out, err := assembler.Assemble(res.Body, sigs)
	if err != nil {
		return err
	}
	res.Encoded = out
	return nil
}

// pending resolves the signatures of members that exist only in uncommitted
// results.
type pending struct {
	base  assembler.SignatureResolver
	extra assembler.SignatureMap
}

func (p pending) MethodSignature(tok cil.Token) (assembler.MethodSig, bool) {
	if sig, ok := p.extra[tok]; ok {
		return sig, true
	}
	return p.base.MethodSignature(tok)
}

func (w *Weaver) logWoven(res *Result) {
	fields := []zap.Field{
		zap.String("member", res.Member.FullName()),
		zap.Int("interceptors", len(res.Interceptors)),
		zap.Int("code_size", res.Encoded.Stats.CodeSize),
		zap.Int("max_stack", res.Encoded.Stats.MaxStack),
		zap.Stringer("header", res.Encoded.Stats.Header),
	}
	if res.Clone != nil {
		fields = append(fields, zap.String("clone", res.Clone.Name))
	}
	Logger().Debug("woven member", fields...)
}

// wrap attaches the member name to errors that do not carry one.
func wrap(md *metadata.MethodDef, err error) error {
	if e, ok := err.(*errors.Error); ok {
		if e.Member == "" {
			e.Member = md.FullName()
		}
		return e
	}
	return errors.Weave(md.FullName(), err)
}
