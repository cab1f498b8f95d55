package metadata

import (
	"slices"
	"strings"

	"github.com/wippyai/cilweave/assembler"
	"github.com/wippyai/cilweave/cil"
)

// TypeRef refers to a type defined in another module.
type TypeRef struct {
	Scope     string
	Namespace string
	Name      string
	Token     cil.Token
	ValueType bool
}

// FullName returns Namespace.Name.
func (r *TypeRef) FullName() string {
	if r.Namespace == "" {
		return r.Name
	}
	return r.Namespace + "." + r.Name
}

// MemberRef refers to a method of a type defined elsewhere.
type MemberRef struct {
	Name      string
	Signature MethodSignature
	Parent    cil.Token
	Token     cil.Token
}

// StandAloneSig is a local variable signature or a calli call site
// signature.
type StandAloneSig struct {
	Method *MethodSignature
	Locals []cil.Token
	Token  cil.Token
}

// MethodSpec is a generic method instantiation.
type MethodSpec struct {
	Method cil.Token
	Token  cil.Token
}

// TypeSpec is a constructed type, such as an array or a generic
// instantiation, that has no TypeDef or TypeRef row of its own.
type TypeSpec struct {
	Signature TypeSig
	Token     cil.Token
}

// Module is a loaded module: its type definitions and the references its
// method bodies use.
type Module struct {
	index       map[cil.Token]any
	next        map[cil.TableID]uint32
	runtime     *RuntimeRefs
	Name        string
	References  []*Module
	Types       []*TypeDef
	TypeRefs    []*TypeRef
	MemberRefs  []*MemberRef
	Signatures  []*StandAloneSig
	MethodSpecs []*MethodSpec
	TypeSpecs   []*TypeSpec
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{
		Name:  name,
		index: make(map[cil.Token]any),
		next:  make(map[cil.TableID]uint32),
	}
}

func (m *Module) newToken(table cil.TableID) cil.Token {
	m.next[table]++
	return cil.NewToken(table, m.next[table])
}

func (m *Module) register(tok cil.Token, v any) {
	m.index[tok] = v
	if rid := tok.RID(); rid > m.next[tok.Table()] {
		m.next[tok.Table()] = rid
	}
}

// Lookup returns the row a token refers to.
func (m *Module) Lookup(tok cil.Token) (any, bool) {
	v, ok := m.index[tok]
	return v, ok
}

// AddType adds t to the module, allocating a token when t has none.
func (m *Module) AddType(t *TypeDef) *TypeDef {
	if t.Token.IsNil() {
		t.Token = m.newToken(cil.TableTypeDef)
	}
	t.Module = m
	m.register(t.Token, t)
	m.Types = append(m.Types, t)
	for _, md := range t.Methods {
		md.DeclaringType = t
		m.registerMethod(md)
	}
	for _, p := range t.Properties {
		p.DeclaringType = t
		m.registerProperty(p)
	}
	return t
}

// DefineType creates and adds a type.
func (m *Module) DefineType(namespace, name string, base *TypeDef) *TypeDef {
	return m.AddType(&TypeDef{Namespace: namespace, Name: name, BaseType: base})
}

func (m *Module) registerMethod(md *MethodDef) {
	if md.Token.IsNil() {
		md.Token = m.newToken(cil.TableMethodDef)
	}
	m.register(md.Token, md)
}

func (m *Module) registerProperty(p *PropertyDef) {
	if p.Token.IsNil() {
		p.Token = m.newToken(cil.TableProperty)
	}
	m.register(p.Token, p)
}

// DefineMethod creates a method on t. Methods get an empty body unless they
// are abstract.
func (t *TypeDef) DefineMethod(name string, flags MethodAttributes, sig MethodSignature) *MethodDef {
	md := &MethodDef{Name: name, Flags: flags, Signature: sig}
	if !md.IsStatic() {
		md.Signature.HasThis = true
	}
	t.AddMethod(md)
	if !md.IsAbstract() {
		md.Body = cil.NewBody(md.Token)
	}
	return md
}

// DefineProperty creates a property on t and links its accessors.
func (t *TypeDef) DefineProperty(name string, getter, setter *MethodDef) *PropertyDef {
	p := &PropertyDef{Name: name, Getter: getter, Setter: setter}
	t.AddProperty(p)
	return p
}

// AddProperty attaches p to t and links its accessors back to it.
func (t *TypeDef) AddProperty(p *PropertyDef) {
	p.DeclaringType = t
	t.Properties = append(t.Properties, p)
	if p.Getter != nil {
		p.Getter.Property = p
	}
	if p.Setter != nil {
		p.Setter.Property = p
	}
	if t.Module != nil {
		t.Module.registerProperty(p)
	}
}

// AddTypeRef returns the token of a reference to scope's namespace.name,
// adding the reference when it does not exist yet.
func (m *Module) AddTypeRef(scope, namespace, name string, valueType bool) cil.Token {
	for _, r := range m.TypeRefs {
		if r.Scope == scope && r.Namespace == namespace && r.Name == name {
			return r.Token
		}
	}
	return m.AddTypeRefRow(&TypeRef{Scope: scope, Namespace: namespace, Name: name, ValueType: valueType})
}

// AddTypeRefRow adds a type reference row, keeping its token when set.
func (m *Module) AddTypeRefRow(r *TypeRef) cil.Token {
	if r.Token.IsNil() {
		r.Token = m.newToken(cil.TableTypeRef)
	}
	m.register(r.Token, r)
	m.TypeRefs = append(m.TypeRefs, r)
	return r.Token
}

// AddMemberRef returns the token of a reference to parent::name with sig,
// adding the reference when it does not exist yet.
func (m *Module) AddMemberRef(parent cil.Token, name string, sig MethodSignature) cil.Token {
	key := sig.String()
	for _, r := range m.MemberRefs {
		if r.Parent == parent && r.Name == name && r.Signature.String() == key {
			return r.Token
		}
	}
	return m.AddMemberRefRow(&MemberRef{Parent: parent, Name: name, Signature: sig})
}

// AddMemberRefRow adds a member reference row, keeping its token when set.
func (m *Module) AddMemberRefRow(r *MemberRef) cil.Token {
	if r.Token.IsNil() {
		r.Token = m.newToken(cil.TableMemberRef)
	}
	m.register(r.Token, r)
	m.MemberRefs = append(m.MemberRefs, r)
	return r.Token
}

// AddLocalSignature returns the token of a local variable signature with
// the given types, adding it when it does not exist yet.
func (m *Module) AddLocalSignature(locals []cil.Token) cil.Token {
	for _, s := range m.Signatures {
		if s.Method == nil && slices.Equal(s.Locals, locals) {
			return s.Token
		}
	}
	return m.AddSignatureRow(&StandAloneSig{Locals: append([]cil.Token(nil), locals...)})
}

// AddSignatureRow adds a stand-alone signature row, keeping its token when set.
func (m *Module) AddSignatureRow(s *StandAloneSig) cil.Token {
	if s.Token.IsNil() {
		s.Token = m.newToken(cil.TableStandAloneSig)
	}
	m.register(s.Token, s)
	m.Signatures = append(m.Signatures, s)
	return s.Token
}

// AddMethodSpecRow adds a generic method instantiation row.
func (m *Module) AddMethodSpecRow(s *MethodSpec) cil.Token {
	if s.Token.IsNil() {
		s.Token = m.newToken(cil.TableMethodSpec)
	}
	m.register(s.Token, s)
	m.MethodSpecs = append(m.MethodSpecs, s)
	return s.Token
}

// AddTypeSpec returns the token of a constructed type with the given
// signature, adding the row when it does not exist yet.
func (m *Module) AddTypeSpec(sig TypeSig) cil.Token {
	for _, s := range m.TypeSpecs {
		if s.Signature == sig {
			return s.Token
		}
	}
	return m.AddTypeSpecRow(&TypeSpec{Signature: sig})
}

// AddTypeSpecRow adds a type specification row, keeping its token when set.
func (m *Module) AddTypeSpecRow(s *TypeSpec) cil.Token {
	if s.Token.IsNil() {
		s.Token = m.newToken(cil.TableTypeSpec)
	}
	m.register(s.Token, s)
	m.TypeSpecs = append(m.TypeSpecs, s)
	return s.Token
}

// LocalTypes returns the variable types of a local signature.
func (m *Module) LocalTypes(tok cil.Token) ([]cil.Token, bool) {
	s, ok := m.index[tok].(*StandAloneSig)
	if !ok || s.Method != nil {
		return nil, false
	}
	return s.Locals, true
}

// FindType returns the type with the given full name, searching referenced
// modules after this one.
func (m *Module) FindType(fullName string) *TypeDef {
	for _, t := range m.Types {
		if t.FullName() == fullName {
			return t
		}
	}
	for _, ref := range m.References {
		if t := ref.FindType(fullName); t != nil {
			return t
		}
	}
	return nil
}

// FindMethod returns the method named "Namespace.Type::Name".
func (m *Module) FindMethod(fullName string) *MethodDef {
	typeName, name, ok := strings.Cut(fullName, "::")
	if !ok {
		return nil
	}
	t := m.FindType(typeName)
	if t == nil {
		return nil
	}
	return t.Method(name)
}

// Methods returns every method defined in the module in declaration order.
func (m *Module) Methods() []*MethodDef {
	var out []*MethodDef
	for _, t := range m.Types {
		out = append(out, t.Methods...)
	}
	return out
}

// Signature returns the full signature of a method token.
func (m *Module) Signature(tok cil.Token) (MethodSignature, bool) {
	switch v := m.index[tok].(type) {
	case *MethodDef:
		return v.Signature, true
	case *MemberRef:
		return v.Signature, true
	case *MethodSpec:
		return m.Signature(v.Method)
	case *StandAloneSig:
		if v.Method != nil {
			return *v.Method, true
		}
	}
	return MethodSignature{}, false
}

// MethodSignature implements assembler.SignatureResolver.
func (m *Module) MethodSignature(tok cil.Token) (assembler.MethodSig, bool) {
	sig, ok := m.Signature(tok)
	if !ok {
		return assembler.MethodSig{}, false
	}
	return StackShape(sig), true
}

// StackShape reduces a signature to what stack simulation needs.
func StackShape(sig MethodSignature) assembler.MethodSig {
	return assembler.MethodSig{
		HasThis:     sig.HasThis,
		Params:      len(sig.Params),
		ReturnsVoid: sig.Return.IsVoid(),
	}
}

// ImportType returns a token for t usable from this module's bodies.
func (m *Module) ImportType(t *TypeDef) cil.Token {
	if t.Module == m {
		return t.Token
	}
	scope := ""
	if t.Module != nil {
		scope = t.Module.Name
	}
	return m.AddTypeRef(scope, t.Namespace, t.Name, t.ValueType)
}

// ImportMethod returns a token for md usable from this module's bodies.
func (m *Module) ImportMethod(md *MethodDef) cil.Token {
	if md.DeclaringType != nil && md.DeclaringType.Module == m {
		return md.Token
	}
	return m.AddMemberRef(m.ImportType(md.DeclaringType), md.Name, md.Signature)
}

// TypeToken returns the token to use with box, unbox.any or castclass for a
// signature type. Arrays and generic instantiations get a TypeSpec since
// their Type is the element or generic definition.
func (m *Module) TypeToken(sig TypeSig) cil.Token {
	switch sig.Kind {
	case ElemSZArray:
		return m.AddTypeSpec(TypeSig{Kind: sig.Kind, Type: sig.Type})
	case ElemGeneric:
		if sig.Type.Table() == cil.TableTypeSpec {
			return sig.Type
		}
		return m.AddTypeSpec(TypeSig{Kind: sig.Kind, Type: sig.Type})
	}
	if !sig.Type.IsNil() {
		return sig.Type
	}
	if sig.Kind.IsPrimitive() {
		return m.PrimitiveType(sig.Kind)
	}
	return cil.Token(0)
}

// PrimitiveType returns a reference to the System type of a primitive
// element type.
func (m *Module) PrimitiveType(kind ElementType) cil.Token {
	name, ok := primitiveNames[kind]
	if !ok {
		return cil.Token(0)
	}
	valueType := kind != ElemString && kind != ElemObject
	return m.AddTypeRef(CoreLibrary, "System", name, valueType)
}

// NewClonedMemberSlot creates a private, weaver-generated method with md's
// signature under a new name. The slot has a token but is not attached to
// the declaring type until TypeDef.AddMethod is called with it.
func (m *Module) NewClonedMemberSlot(md *MethodDef, name string) *MethodDef {
	flags := md.Flags&^(MethodAccessMask|MethodVirtual|MethodNewSlot|MethodFinal|MethodAbstract|MethodSpecialName|MethodRTSpecialName) |
		MethodPrivate | MethodHideBySig
	return &MethodDef{
		DeclaringType: md.DeclaringType,
		Name:          name,
		Flags:         flags,
		Signature:     md.Signature.Clone(),
		Token:         m.newToken(cil.TableMethodDef),
		Generated:     true,
	}
}
