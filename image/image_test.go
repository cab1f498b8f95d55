package image_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/cilweave/cil"
	cilerrors "github.com/wippyai/cilweave/errors"
	"github.com/wippyai/cilweave/image"
	"github.com/wippyai/cilweave/metadata"
)

var void = metadata.Sig(metadata.ElemVoid)

func newLibrary() *metadata.Module {
	lib := metadata.NewModule("Interceptors")
	it := lib.DefineType("Acme", "Timing", nil)
	it.DefineMethod(metadata.CtorName, metadata.MethodPublic, metadata.NewSignature(true, void)).
		Body.Instructions = cil.Instructions{cil.New(cil.OpRet, nil)}
	it.DefineMethod(metadata.HookBefore, metadata.MethodPublic|metadata.MethodVirtual,
		metadata.NewSignature(true, void, metadata.ClassSig(lib.Runtime().Context))).
		Body.Instructions = cil.Instructions{cil.New(cil.OpRet, nil)}
	return lib
}

func newApp(lib *metadata.Module) *metadata.Module {
	app := metadata.NewModule("App")
	app.References = append(app.References, lib)
	timing := lib.FindType("Acme.Timing")

	base := app.DefineType("App", "Base", nil)
	typ := app.DefineType("App", "Account", base)
	typ.Interceptors = []metadata.Interceptor{{Type: timing, Order: 3, AppliesTo: metadata.AppliesGet}}

	i4 := metadata.Sig(metadata.ElemI4)
	get := typ.DefineMethod("get_Balance", metadata.MethodPublic|metadata.MethodSpecialName, metadata.NewSignature(true, i4))
	get.Body.Variables = []cil.Variable{{Type: app.PrimitiveType(metadata.ElemI4)}}
	b := cil.NewBuilder()
	b.LdcI4(42)
	b.Stloc(0)
	b.Ldloc(0)
	b.Emit(cil.OpRet)
	get.Body.Instructions = b.Instructions()
	get.Body.InitLocals = true

	deposit := typ.DefineMethod("Deposit", metadata.MethodPublic, metadata.NewSignature(true, void, i4))
	deposit.Body.Instructions = cil.Instructions{cil.New(cil.OpRet, nil)}
	deposit.Interceptors = []metadata.Interceptor{{Type: timing, Order: -1, AppliesTo: metadata.AppliesMethod}}

	typ.DefineProperty("Balance", get, nil)

	strs := metadata.TypeSig{Kind: metadata.ElemSZArray, Type: app.PrimitiveType(metadata.ElemString)}
	owners := typ.DefineMethod("Owners", metadata.MethodPublic, metadata.NewSignature(true, strs))
	owners.Body.Instructions = cil.Instructions{
		cil.New(cil.OpLdnull, nil),
		cil.New(cil.OpCastclass, cil.TokenImm{Token: app.TypeToken(strs)}),
		cil.New(cil.OpRet, nil),
	}
	return app
}

func tokenOfIns(t *testing.T, ins *cil.Instruction) cil.Token {
	t.Helper()
	tok, ok := ins.Token()
	require.True(t, ok)
	return tok
}

func writeImage(t *testing.T, dir string, m *metadata.Module) string {
	t.Helper()
	path := filepath.Join(dir, m.Name+image.Ext)
	require.NoError(t, image.Replace(path, m))
	return path
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	lib := newLibrary()
	writeImage(t, dir, lib)
	app := newApp(lib)
	path := writeImage(t, dir, app)

	loaded, err := image.Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.References, 1)
	assert.Equal(t, "Interceptors", loaded.References[0].Name)

	typ := loaded.FindType("App.Account")
	require.NotNil(t, typ)
	assert.Same(t, loaded.FindType("App.Base"), typ.BaseType)
	require.Len(t, typ.Interceptors, 1)
	assert.Same(t, loaded.References[0].FindType("Acme.Timing"), typ.Interceptors[0].Type)
	assert.Equal(t, metadata.AppliesGet, typ.Interceptors[0].AppliesTo)
	assert.Equal(t, int32(3), typ.Interceptors[0].Order)

	get := typ.Method("get_Balance")
	require.NotNil(t, get)
	assert.Equal(t, metadata.KindGetter, get.Kind())
	require.NotNil(t, get.Body)
	assert.Equal(t, get.Token, get.Body.Owner)
	assert.Len(t, get.Body.Instructions, 4)
	require.Len(t, get.Body.Variables, 1)
	assert.Equal(t, loaded.PrimitiveType(metadata.ElemI4), get.Body.Variables[0].Type)
	assert.True(t, get.Body.InitLocals)

	deposit := typ.Method("Deposit")
	require.Len(t, deposit.Interceptors, 1)
	assert.Equal(t, int32(-1), deposit.Interceptors[0].Order)

	owners := typ.Method("Owners")
	require.NotNil(t, owners)
	require.Len(t, loaded.TypeSpecs, 1)
	spec := loaded.TypeSpecs[0]
	assert.Equal(t, owners.Signature.Return, spec.Signature)
	assert.Equal(t, spec.Token, tokenOfIns(t, owners.Body.Instructions[1]))
	assert.Equal(t, spec.Token, loaded.TypeToken(spec.Signature), "loaded rows are reused")

	again, err := image.Marshal(loaded)
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, again, "an unchanged module encodes to the same bytes")
}

func TestReferencesFromSearchDir(t *testing.T) {
	libDir := t.TempDir()
	appDir := t.TempDir()
	lib := newLibrary()
	writeImage(t, libDir, lib)
	path := writeImage(t, appDir, newApp(lib))

	_, err := image.Load(path)
	assert.True(t, errors.Is(err, &cilerrors.Error{Phase: cilerrors.PhaseIO, Kind: cilerrors.KindNotFound}))

	m, err := image.Load(path, libDir)
	require.NoError(t, err)
	assert.NotNil(t, m.FindType("Acme.Timing"))
}

func TestReplaceKeepsOriginalOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "App"+image.Ext)
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o600))

	broken := metadata.NewModule("App")
	typ := broken.DefineType("App", "Broken", nil)
	md := typ.DefineMethod("Jump", metadata.MethodPublic, metadata.NewSignature(true, void))
	md.Body.Instructions = cil.Instructions{cil.New(cil.OpBr, cil.BranchImm{Target: cil.New(cil.OpRet, nil)})}

	err := image.Replace(path, broken)
	require.Error(t, err)
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "original", string(data))

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Len(t, entries, 1, "no temporary file is left behind")
}

func TestReplaceOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Interceptors"+image.Ext)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o640))

	require.NoError(t, image.Replace(path, newLibrary()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	m, err := image.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Interceptors", m.Name)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReplaceMissingDirectory(t *testing.T) {
	err := image.Replace(filepath.Join(t.TempDir(), "missing", "App.cwm"), newLibrary())
	assert.True(t, errors.Is(err, &cilerrors.Error{Phase: cilerrors.PhaseIO, Kind: cilerrors.KindIO}))
}

func TestRejectsForeignData(t *testing.T) {
	_, err := image.Unmarshal([]byte{0x01, 0x02}, nil)
	assert.True(t, errors.Is(err, &cilerrors.Error{Phase: cilerrors.PhaseIO, Kind: cilerrors.KindInvalidData}))

	lib, err := image.Marshal(metadata.NewModule("Empty"))
	require.NoError(t, err)
	m, err := image.Unmarshal(lib, nil)
	require.NoError(t, err)
	assert.Equal(t, "Empty", m.Name)
}

func TestCorruptBodyNamesMember(t *testing.T) {
	m := metadata.NewModule("App")
	typ := m.DefineType("App", "Svc", nil)
	md := typ.DefineMethod("Run", metadata.MethodPublic, metadata.NewSignature(true, void))
	md.RawBody = []byte{0x0A, 0x24, 0x2A}

	data, err := image.Marshal(m)
	require.NoError(t, err)
	_, err = image.Unmarshal(data, nil)
	var werr *cilerrors.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, cilerrors.PhaseDecode, werr.Phase)
	assert.Equal(t, "App.Svc::Run", werr.Member)
}

func TestMissingLocalSignature(t *testing.T) {
	m := metadata.NewModule("App")
	typ := m.DefineType("App", "Svc", nil)
	md := typ.DefineMethod("Run", metadata.MethodPublic, metadata.NewSignature(true, void))
	md.Body.Instructions = cil.Instructions{cil.New(cil.OpRet, nil)}
	md.Body.LocalVarToken = cil.NewToken(cil.TableStandAloneSig, 7)

	data, err := image.Marshal(m)
	require.NoError(t, err)
	_, err = image.Unmarshal(data, nil)
	assert.True(t, errors.Is(err, &cilerrors.Error{Phase: cilerrors.PhaseDecode, Kind: cilerrors.KindNotFound}))
}
