package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/cilweave/assembler"
	"github.com/wippyai/cilweave/cil"
	"github.com/wippyai/cilweave/metadata"
)

func hookSig(m *metadata.Module) metadata.MethodSignature {
	return metadata.NewSignature(true, metadata.Sig(metadata.ElemVoid), metadata.ClassSig(m.Runtime().Context))
}

func TestResolveHookWalksInheritanceChain(t *testing.T) {
	m := metadata.NewModule("App")
	base := m.DefineType("App", "BaseInterceptor", nil)
	base.DefineMethod(metadata.HookAfter, metadata.MethodPublic|metadata.MethodVirtual, hookSig(m))
	derived := m.DefineType("App", "LogInterceptor", base)
	before := derived.DefineMethod(metadata.HookBefore, metadata.MethodPublic, hookSig(m))

	assert.Same(t, before, derived.ResolveHook(metadata.HookBefore))
	assert.Same(t, base.Methods[0], derived.ResolveHook(metadata.HookAfter))
	assert.Nil(t, derived.ResolveHook(metadata.HookException))
	assert.Nil(t, base.ResolveHook(metadata.HookBefore), "hooks are not inherited downwards")
}

func TestResolveHookIgnoresStaticAndWrongArity(t *testing.T) {
	m := metadata.NewModule("App")
	it := m.DefineType("App", "Odd", nil)
	it.DefineMethod(metadata.HookBefore, metadata.MethodPublic|metadata.MethodStatic, hookSig(m))
	it.DefineMethod(metadata.HookBefore, metadata.MethodPublic, metadata.NewSignature(true, metadata.Sig(metadata.ElemVoid)))

	assert.Nil(t, it.ResolveHook(metadata.HookBefore))
}

func TestResolveHookStopsOnCycle(t *testing.T) {
	m := metadata.NewModule("App")
	a := m.DefineType("App", "A", nil)
	b := m.DefineType("App", "B", a)
	a.BaseType = b

	assert.Nil(t, a.ResolveHook(metadata.HookBefore))
}

func TestMemberKinds(t *testing.T) {
	m := metadata.NewModule("App")
	typ := m.DefineType("App", "Account", nil)
	void := metadata.Sig(metadata.ElemVoid)

	ctor := typ.DefineMethod(metadata.CtorName, metadata.MethodPublic|metadata.MethodSpecialName|metadata.MethodRTSpecialName, metadata.NewSignature(true, void))
	cctor := typ.DefineMethod(metadata.StaticCtorName, metadata.MethodPrivate|metadata.MethodStatic, metadata.NewSignature(false, void))
	get := typ.DefineMethod("get_Balance", metadata.MethodPublic|metadata.MethodSpecialName, metadata.NewSignature(true, metadata.Sig(metadata.ElemI4)))
	set := typ.DefineMethod("set_Balance", metadata.MethodPublic|metadata.MethodSpecialName, metadata.NewSignature(true, void, metadata.Sig(metadata.ElemI4)))
	plain := typ.DefineMethod("Deposit", metadata.MethodPublic, metadata.NewSignature(true, void, metadata.Sig(metadata.ElemI4)))
	prop := typ.DefineProperty("Balance", get, set)

	assert.Equal(t, metadata.KindCtor, ctor.Kind())
	assert.Equal(t, metadata.KindStaticCtor, cctor.Kind())
	assert.Equal(t, metadata.KindGetter, get.Kind())
	assert.Equal(t, metadata.KindSetter, set.Kind())
	assert.Equal(t, metadata.KindMethod, plain.Kind())
	assert.Same(t, prop, get.Property)
	assert.True(t, set.IsAccessor())
	assert.Equal(t, "App.Account::Deposit", plain.FullName())
	assert.Equal(t, metadata.AppliesUndefined, metadata.KindStaticCtor.AppliesTo())
}

func TestSignatureResolver(t *testing.T) {
	m := metadata.NewModule("App")
	typ := m.DefineType("App", "Calc", nil)
	add := typ.DefineMethod("Add", metadata.MethodPublic|metadata.MethodStatic,
		metadata.NewSignature(false, metadata.Sig(metadata.ElemI4), metadata.Sig(metadata.ElemI4), metadata.Sig(metadata.ElemI4)))
	rt := m.Runtime()
	spec := m.AddMethodSpecRow(&metadata.MethodSpec{Method: add.Token})
	callSite := metadata.NewSignature(false, metadata.Sig(metadata.ElemVoid), metadata.Sig(metadata.ElemObject))
	calli := m.AddSignatureRow(&metadata.StandAloneSig{Method: &callSite})

	var resolver assembler.SignatureResolver = m

	tests := []struct {
		name string
		tok  cil.Token
		want assembler.MethodSig
	}{
		{"method def", add.Token, assembler.MethodSig{Params: 2}},
		{"member ref", rt.SetReturnValue, assembler.MethodSig{HasThis: true, Params: 1, ReturnsVoid: true}},
		{"method spec", spec, assembler.MethodSig{Params: 2}},
		{"call site", calli, assembler.MethodSig{Params: 1, ReturnsVoid: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolver.MethodSignature(tt.tok)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := resolver.MethodSignature(cil.NewToken(cil.TableMemberRef, 999))
	assert.False(t, ok)
}

func TestImportAcrossModules(t *testing.T) {
	lib := metadata.NewModule("Interceptors")
	it := lib.DefineType("Acme", "Timing", nil)
	ctor := it.DefineMethod(metadata.CtorName, metadata.MethodPublic, metadata.NewSignature(true, metadata.Sig(metadata.ElemVoid)))

	app := metadata.NewModule("App")
	app.References = append(app.References, lib)
	local := app.DefineType("App", "Local", nil)

	assert.Equal(t, local.Token, app.ImportType(local))

	ref := app.ImportMethod(ctor)
	assert.Equal(t, cil.TableMemberRef, ref.Table())
	assert.Equal(t, ref, app.ImportMethod(ctor), "imports are deduplicated")

	row, ok := app.Lookup(ref)
	require.True(t, ok)
	mr := row.(*metadata.MemberRef)
	parent, ok := app.Lookup(mr.Parent)
	require.True(t, ok)
	assert.Equal(t, "Interceptors", parent.(*metadata.TypeRef).Scope)
	assert.Same(t, it, app.FindType("Acme.Timing"))
}

func TestNewClonedMemberSlot(t *testing.T) {
	m := metadata.NewModule("App")
	typ := m.DefineType("App", "Svc", nil)
	run := typ.DefineMethod("Run", metadata.MethodPublic|metadata.MethodVirtual|metadata.MethodHideBySig,
		metadata.NewSignature(true, metadata.Sig(metadata.ElemI4), metadata.Sig(metadata.ElemString)))

	slot := m.NewClonedMemberSlot(run, "Run$woven$0000")

	assert.NotEqual(t, run.Token, slot.Token)
	assert.Equal(t, metadata.MethodPrivate, slot.Flags&metadata.MethodAccessMask)
	assert.Zero(t, slot.Flags&metadata.MethodVirtual)
	assert.True(t, slot.Generated)
	assert.Same(t, typ, slot.DeclaringType)
	assert.Len(t, typ.Methods, 1, "slot is not attached until committed")

	slot.Signature.Params[0] = metadata.Sig(metadata.ElemObject)
	assert.Equal(t, metadata.ElemString, run.Signature.Params[0].Kind, "signature is copied")

	typ.AddMethod(slot)
	assert.Same(t, slot, typ.Method("Run$woven$0000"))
	row, ok := m.Lookup(slot.Token)
	require.True(t, ok)
	assert.Same(t, slot, row)
}

func TestTokenAllocationSkipsExplicitRows(t *testing.T) {
	m := metadata.NewModule("App")
	m.AddTypeRefRow(&metadata.TypeRef{Token: cil.NewToken(cil.TableTypeRef, 5), Namespace: "System", Name: "Object"})
	next := m.AddTypeRef(metadata.CoreLibrary, "System", "String", false)
	assert.Equal(t, uint32(6), next.RID())
}

func TestLocalSignatures(t *testing.T) {
	m := metadata.NewModule("App")
	rt := m.Runtime()
	a := m.AddLocalSignature([]cil.Token{rt.Context, rt.Exception})
	b := m.AddLocalSignature([]cil.Token{rt.Context, rt.Exception})
	c := m.AddLocalSignature([]cil.Token{rt.Context})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	types, ok := m.LocalTypes(c)
	require.True(t, ok)
	assert.Equal(t, []cil.Token{rt.Context}, types)
}

func TestRuntimeRefsAreStable(t *testing.T) {
	m := metadata.NewModule("App")
	first := m.Runtime()
	refs := len(m.MemberRefs)
	assert.Same(t, first, m.Runtime())
	assert.Len(t, m.MemberRefs, refs)
}

func TestTypeTokens(t *testing.T) {
	m := metadata.NewModule("App")
	i4 := m.TypeToken(metadata.Sig(metadata.ElemI4))
	row, ok := m.Lookup(i4)
	require.True(t, ok)
	assert.Equal(t, "System.Int32", row.(*metadata.TypeRef).FullName())
	assert.True(t, row.(*metadata.TypeRef).ValueType)

	custom := cil.NewToken(cil.TableTypeSpec, 3)
	assert.Equal(t, custom, m.TypeToken(metadata.TypeSig{Kind: metadata.ElemMVar, Type: custom}))

	str := m.PrimitiveType(metadata.ElemString)
	strs := metadata.TypeSig{Kind: metadata.ElemSZArray, Type: str}
	arr := m.TypeToken(strs)
	assert.Equal(t, cil.TableTypeSpec, arr.Table())
	assert.NotEqual(t, str, arr, "an array is not its element type")
	assert.Equal(t, arr, m.TypeToken(strs))
	require.Len(t, m.TypeSpecs, 1)
	row, ok = m.Lookup(arr)
	require.True(t, ok)
	assert.Equal(t, strs, row.(*metadata.TypeSpec).Signature)

	list := m.AddTypeRef(metadata.CoreLibrary, "System.Collections.Generic", "List`1", false)
	inst := m.TypeToken(metadata.TypeSig{Kind: metadata.ElemGeneric, Type: list})
	assert.Equal(t, cil.TableTypeSpec, inst.Table())
	assert.NotEqual(t, arr, inst)
	assert.Equal(t, inst, m.TypeToken(metadata.TypeSig{Kind: metadata.ElemGeneric, Type: inst}))
	assert.Len(t, m.TypeSpecs, 2)
	assert.False(t, strs.NeedsBox())

	assert.True(t, metadata.Sig(metadata.ElemI4).NeedsBox())
	assert.False(t, metadata.Sig(metadata.ElemString).NeedsBox())
	assert.False(t, metadata.TypeSig{Kind: metadata.ElemI4, ByRef: true}.NeedsBox())
}

func TestAppliesTo(t *testing.T) {
	assert.True(t, metadata.AppliesAll.Has(metadata.AppliesGet))
	assert.True(t, metadata.AppliesProperty.Has(metadata.AppliesSet))
	assert.False(t, metadata.AppliesProperty.Has(metadata.AppliesMethod))
	assert.Equal(t, "Get|Set", metadata.AppliesProperty.String())
	assert.Equal(t, "All", metadata.AppliesAll.String())
	assert.Equal(t, "Undefined", metadata.AppliesUndefined.String())
}
