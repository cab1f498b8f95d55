package weaver

import (
	"github.com/wippyai/cilweave/cil"
	"github.com/wippyai/cilweave/errors"
	"github.com/wippyai/cilweave/metadata"
)

// hooks is an interceptor with its members imported into the woven module.
// After and Exception are nil tokens when the type does not supply them.
type hooks struct {
	interceptor metadata.Interceptor
	typ         cil.Token
	ctor        cil.Token
	before      cil.Token
	after       cil.Token
	exception   cil.Token
}

type resolved struct {
	ctor, before, after, exception *metadata.MethodDef
}

// resolveHooks checks that every interceptor can be instantiated and
// supplies Before, then imports the hooks. Nothing is imported when any
// interceptor fails the check.
func (w *Weaver) resolveHooks(md *metadata.MethodDef, list []metadata.Interceptor) ([]*hooks, error) {
	member := md.FullName()
	found := make([]resolved, len(list))
	for i, ic := range list {
		if ic.Type == nil {
			return nil, errors.HookMissing(member, ic.Name(), metadata.HookBefore)
		}
		r := resolved{
			ctor:      ic.Type.Ctor(),
			before:    ic.Type.ResolveHook(metadata.HookBefore),
			after:     ic.Type.ResolveHook(metadata.HookAfter),
			exception: ic.Type.ResolveHook(metadata.HookException),
		}
		if r.before == nil {
			return nil, errors.HookMissing(member, ic.Name(), metadata.HookBefore)
		}
		if r.ctor == nil {
			return nil, errors.New(errors.PhaseWeave, errors.KindNotFound).
				Member(member).
				Interceptor(ic.Name()).
				Detail("no parameterless constructor").Build()
		}
		found[i] = r
	}

	out := make([]*hooks, len(list))
	for i, r := range found {
		h := &hooks{
			interceptor: list[i],
			typ:         w.module.ImportType(list[i].Type),
			ctor:        w.module.ImportMethod(r.ctor),
			before:      w.module.ImportMethod(r.before),
		}
		if r.after != nil {
			h.after = w.module.ImportMethod(r.after)
		}
		if r.exception != nil {
			h.exception = w.module.ImportMethod(r.exception)
		}
		out[i] = h
	}
	return out, nil
}
