package metadata

import (
	"github.com/wippyai/cilweave/cil"
)

// MethodAttributes are the ECMA-335 method flags the weaver inspects.
type MethodAttributes uint16

const (
	MethodPrivate       MethodAttributes = 0x0001
	MethodAssembly      MethodAttributes = 0x0003
	MethodFamily        MethodAttributes = 0x0004
	MethodPublic        MethodAttributes = 0x0006
	MethodAccessMask    MethodAttributes = 0x0007
	MethodStatic        MethodAttributes = 0x0010
	MethodFinal         MethodAttributes = 0x0020
	MethodVirtual       MethodAttributes = 0x0040
	MethodHideBySig     MethodAttributes = 0x0080
	MethodNewSlot       MethodAttributes = 0x0100
	MethodAbstract      MethodAttributes = 0x0400
	MethodSpecialName   MethodAttributes = 0x0800
	MethodRTSpecialName MethodAttributes = 0x1000
)

// Reserved member names.
const (
	CtorName       = ".ctor"
	StaticCtorName = ".cctor"
)

// MemberKind is the natural kind of a method for interceptor selection.
type MemberKind uint8

const (
	KindMethod MemberKind = iota
	KindCtor
	KindStaticCtor
	KindGetter
	KindSetter
)

func (k MemberKind) String() string {
	switch k {
	case KindCtor:
		return "ctor"
	case KindStaticCtor:
		return "cctor"
	case KindGetter:
		return "get"
	case KindSetter:
		return "set"
	default:
		return "method"
	}
}

// AppliesTo returns the AppliesTo bit matching the kind. Static
// constructors have none.
func (k MemberKind) AppliesTo() AppliesTo {
	switch k {
	case KindMethod:
		return AppliesMethod
	case KindCtor:
		return AppliesCtor
	case KindGetter:
		return AppliesGet
	case KindSetter:
		return AppliesSet
	}
	return AppliesUndefined
}

// TypeDef is a type defined in a module.
type TypeDef struct {
	Module       *Module
	BaseType     *TypeDef
	Namespace    string
	Name         string
	Methods      []*MethodDef
	Properties   []*PropertyDef
	Interceptors []Interceptor
	Token        cil.Token
	// BaseRef is the base type token when the base is not resolvable to a
	// TypeDef, such as System.Object.
	BaseRef   cil.Token
	ValueType bool
}

// FullName returns Namespace.Name.
func (t *TypeDef) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// DeclaredInterceptors implements AttributeProvider.
func (t *TypeDef) DeclaredInterceptors() []Interceptor {
	return t.Interceptors
}

// Method returns the first method with the given name declared on t.
func (t *TypeDef) Method(name string) *MethodDef {
	for _, m := range t.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Property returns the property with the given name declared on t.
func (t *TypeDef) Property(name string) *PropertyDef {
	for _, p := range t.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Ctor returns the parameterless instance constructor declared on t.
func (t *TypeDef) Ctor() *MethodDef {
	for _, m := range t.Methods {
		if m.Name == CtorName && !m.IsStatic() && len(m.Signature.Params) == 0 {
			return m
		}
	}
	return nil
}

// ResolveHook walks t and its base types and returns the first instance
// method named hook taking a single argument, or nil when the whole chain
// lacks it.
func (t *TypeDef) ResolveHook(hook string) *MethodDef {
	seen := make(map[*TypeDef]bool)
	for cur := t; cur != nil && !seen[cur]; cur = cur.BaseType {
		seen[cur] = true
		for _, m := range cur.Methods {
			if m.Name == hook && !m.IsStatic() && len(m.Signature.Params) == 1 {
				return m
			}
		}
	}
	return nil
}

// AddMethod attaches m to t, allocating a token when m has none.
func (t *TypeDef) AddMethod(m *MethodDef) {
	m.DeclaringType = t
	t.Methods = append(t.Methods, m)
	if t.Module != nil {
		t.Module.registerMethod(m)
	}
}

// MethodDef is a method defined in a module.
type MethodDef struct {
	DeclaringType *TypeDef
	Body          *cil.MethodBody
	Property      *PropertyDef
	Name          string
	Interceptors  []Interceptor
	// RawBody is the encoded body as loaded or last assembled.
	RawBody   []byte
	Signature MethodSignature
	Token     cil.Token
	Flags     MethodAttributes
	// Generated marks compiler or weaver generated members.
	Generated bool
}

// FullName returns Type::Name.
func (m *MethodDef) FullName() string {
	if m.DeclaringType == nil {
		return m.Name
	}
	return m.DeclaringType.FullName() + "::" + m.Name
}

// DeclaredInterceptors implements AttributeProvider.
func (m *MethodDef) DeclaredInterceptors() []Interceptor {
	return m.Interceptors
}

// IsStatic reports whether the method has no this.
func (m *MethodDef) IsStatic() bool {
	return m.Flags&MethodStatic != 0
}

// IsAbstract reports whether the method has no body by definition.
func (m *MethodDef) IsAbstract() bool {
	return m.Flags&MethodAbstract != 0
}

// Kind returns the member's natural kind.
func (m *MethodDef) Kind() MemberKind {
	switch {
	case m.Name == CtorName:
		return KindCtor
	case m.Name == StaticCtorName:
		return KindStaticCtor
	case m.Property != nil && m.Property.Getter == m:
		return KindGetter
	case m.Property != nil && m.Property.Setter == m:
		return KindSetter
	}
	return KindMethod
}

// IsAccessor reports whether the method is a property getter or setter.
func (m *MethodDef) IsAccessor() bool {
	k := m.Kind()
	return k == KindGetter || k == KindSetter
}

// PropertyDef is a property with its accessors.
type PropertyDef struct {
	DeclaringType *TypeDef
	Getter        *MethodDef
	Setter        *MethodDef
	Name          string
	Interceptors  []Interceptor
	Token         cil.Token
}

// DeclaredInterceptors implements AttributeProvider.
func (p *PropertyDef) DeclaredInterceptors() []Interceptor {
	return p.Interceptors
}

// FullName returns Type::Name.
func (p *PropertyDef) FullName() string {
	if p.DeclaringType == nil {
		return p.Name
	}
	return p.DeclaringType.FullName() + "::" + p.Name
}
