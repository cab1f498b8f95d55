package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/cilweave/cil"
	"github.com/wippyai/cilweave/image"
	"github.com/wippyai/cilweave/metadata"
)

func writeFixture(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	void := metadata.Sig(metadata.ElemVoid)
	i4 := metadata.Sig(metadata.ElemI4)
	ret := cil.Instructions{cil.New(cil.OpRet, nil)}

	lib := metadata.NewModule("Interceptors")
	timing := lib.DefineType("Acme", "Timing", nil)
	timing.DefineMethod(metadata.CtorName, metadata.MethodPublic, metadata.NewSignature(true, void)).Body.Instructions = ret
	timing.DefineMethod(metadata.HookBefore, metadata.MethodPublic|metadata.MethodVirtual,
		metadata.NewSignature(true, void, metadata.ClassSig(lib.Runtime().Context))).
		Body.Instructions = cil.Instructions{cil.New(cil.OpRet, nil)}
	require.NoError(t, image.Replace(filepath.Join(dir, lib.Name+image.Ext), lib))

	app := metadata.NewModule("App")
	app.References = append(app.References, lib)
	calc := app.DefineType("App", "Calc", nil)
	calc.Interceptors = []metadata.Interceptor{{Type: timing, Order: 7, AppliesTo: metadata.AppliesMethod}}
	md := calc.DefineMethod("Compute", metadata.MethodPublic, metadata.NewSignature(true, i4, i4))
	md.Body.Instructions = cil.Instructions{
		cil.New(cil.OpLdarg1, nil),
		cil.New(cil.OpRet, nil),
	}
	path = filepath.Join(dir, app.Name+image.Ext)
	require.NoError(t, image.Replace(path, app))
	return dir, path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return out.String(), err
}

func TestInspect(t *testing.T) {
	_, path := writeFixture(t)

	out, err := run(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "App.Calc::Compute")
	assert.Contains(t, out, "Acme.Timing")
	assert.Contains(t, out, "type")
	assert.Contains(t, out, metadata.HookBefore)
}

func TestWeaveReplacesImage(t *testing.T) {
	_, path := writeFixture(t)

	out, err := run(t, "weave", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 member(s) woven")
	assert.Contains(t, out, "App.Calc::Compute -> Compute$woven$")

	m, err := image.Load(path)
	require.NoError(t, err)
	calc := m.FindType("App.Calc")
	require.Len(t, calc.Methods, 2)
	clone := calc.Methods[1]
	assert.True(t, clone.Generated)
	assert.True(t, strings.HasPrefix(clone.Name, "Compute$woven$"))
	assert.Len(t, clone.Body.Instructions, 2)
	assert.Len(t, calc.Method("Compute").Body.Handlers, 1)

	out, err = run(t, "inspect", path)
	require.NoError(t, err)
	assert.NotContains(t, out, clone.Name, "generated members are not planned")
}

func TestWeaveDryRun(t *testing.T) {
	_, path := writeFixture(t)

	out, err := run(t, "weave", "--dry-run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "dry run")

	m, err := image.Load(path)
	require.NoError(t, err)
	assert.Len(t, m.FindType("App.Calc").Methods, 1)
}

func TestDis(t *testing.T) {
	_, path := writeFixture(t)

	out, err := run(t, "dis", path, "--method", "App.Calc::Compute")
	require.NoError(t, err)
	assert.Contains(t, out, ".method App.Calc::Compute")
	assert.Contains(t, out, "ldarg.1")
	assert.Contains(t, out, "ret")

	_, err = run(t, "dis", path, "--method", "App.Calc::Missing")
	assert.Error(t, err)
}

func TestMissingReference(t *testing.T) {
	dir := t.TempDir()
	lib := metadata.NewModule("Gone")
	app := metadata.NewModule("App")
	app.References = append(app.References, lib)
	path := filepath.Join(dir, "App"+image.Ext)
	require.NoError(t, image.Replace(path, app))

	_, err := run(t, "inspect", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gone")

	libDir := t.TempDir()
	require.NoError(t, image.Replace(filepath.Join(libDir, "Gone"+image.Ext), lib))
	_, err = run(t, "inspect", path, "--search-dir", libDir)
	assert.NoError(t, err)
}
