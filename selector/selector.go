package selector

import (
	"slices"

	"github.com/wippyai/cilweave/metadata"
)

// Scope is where an interceptor record was found relative to the member.
type Scope uint8

const (
	ScopeMember Scope = iota
	ScopeProperty
	ScopeType
)

func (s Scope) String() string {
	switch s {
	case ScopeMember:
		return "member"
	case ScopeProperty:
		return "property"
	case ScopeType:
		return "type"
	}
	return "unknown"
}

// Candidate is an applicable interceptor together with the scope it was
// declared at.
type Candidate struct {
	metadata.Interceptor
	Scope Scope
}

// Plan is the ordered interceptor list of one member.
type Plan struct {
	Member       *metadata.MethodDef
	Interceptors []metadata.Interceptor
}

// Candidates returns the interceptors that apply to md with their scopes,
// sorted by ascending Order. When the same interceptor type is reachable from
// several scopes the closest one wins.
func Candidates(md *metadata.MethodDef) []Candidate {
	if md == nil || md.Generated {
		return nil
	}
	kind := md.Kind()
	if kind == metadata.KindStaticCtor {
		return nil
	}

	var out []Candidate
	seen := make(map[*metadata.TypeDef]bool)
	collect := func(p metadata.AttributeProvider, scope Scope) {
		for _, ic := range p.DeclaredInterceptors() {
			if !applies(ic.AppliesTo, kind, scope) || seen[ic.Type] {
				continue
			}
			seen[ic.Type] = true
			out = append(out, Candidate{Interceptor: ic, Scope: scope})
		}
	}

	collect(md, ScopeMember)
	if md.Property != nil {
		collect(md.Property, ScopeProperty)
	}
	if md.DeclaringType != nil {
		collect(md.DeclaringType, ScopeType)
	}

	slices.SortStableFunc(out, func(a, b Candidate) int {
		return cmpOrder(a.Interceptor, b.Interceptor)
	})
	return out
}

// Select returns the interceptors that apply to md in ascending Order. The
// result is empty for generated members and static constructors.
func Select(md *metadata.MethodDef) []metadata.Interceptor {
	cands := Candidates(md)
	if len(cands) == 0 {
		return nil
	}
	out := make([]metadata.Interceptor, len(cands))
	for i, c := range cands {
		out[i] = c.Interceptor
	}
	return out
}

// Module returns a plan for every member of m that has at least one
// applicable interceptor, in declaration order.
func Module(m *metadata.Module) []Plan {
	var plans []Plan
	for _, md := range m.Methods() {
		if list := Select(md); len(list) > 0 {
			plans = append(plans, Plan{Member: md, Interceptors: list})
		}
	}
	return plans
}

// BeforeOrder returns the interceptors in the order their Before hooks run.
func BeforeOrder(list []metadata.Interceptor) []metadata.Interceptor {
	out := slices.Clone(list)
	slices.SortStableFunc(out, cmpOrder)
	return out
}

// AfterOrder returns the interceptors in the order their After and Exception
// hooks run, innermost region first.
func AfterOrder(list []metadata.Interceptor) []metadata.Interceptor {
	out := BeforeOrder(list)
	slices.Reverse(out)
	return out
}

func cmpOrder(a, b metadata.Interceptor) int {
	switch {
	case a.Order < b.Order:
		return -1
	case a.Order > b.Order:
		return 1
	}
	return 0
}

// applies reports whether a record declared at scope targets a member of
// the given kind. Undefined applies to whatever the record is attached to,
// which at type scope means plain methods only.
func applies(mask metadata.AppliesTo, kind metadata.MemberKind, scope Scope) bool {
	if mask == metadata.AppliesUndefined {
		switch scope {
		case ScopeMember, ScopeProperty:
			return true
		default:
			return kind == metadata.KindMethod
		}
	}
	bit := kind.AppliesTo()
	return bit != metadata.AppliesUndefined && mask.Has(bit)
}
