package handler_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-engine/assetvfs"
	"github.com/meridian-engine/assetvfs/arc"
	"github.com/meridian-engine/assetvfs/handler"
	"github.com/meridian-engine/assetvfs/internal/assettest"
	"github.com/meridian-engine/assetvfs/job"
	"github.com/meridian-engine/assetvfs/pack"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func newVFS(t *testing.T, packages ...pack.Package) *assetvfs.VFS {
	t.Helper()
	v := assetvfs.New()
	for _, p := range packages {
		require.NoError(t, v.Mount(p))
	}
	return v
}

func newMaterialRegistry(t *testing.T) (*handler.Registry, *assettest.MaterialHandler) {
	t.Helper()
	r := handler.NewRegistry()
	mh := &assettest.MaterialHandler{}
	require.NoError(t, r.Register(mh))
	require.NoError(t, r.RegisterImporter(assettest.TypeMaterial, ".matdef", assettest.MaterialImporter{}))
	return r, mh
}

func TestLoadCompiled(t *testing.T) {
	t.Parallel()

	blob, err := assettest.EncodeMaterial(&assettest.Material{
		Name:   "gold",
		Shader: "pbr",
		Params: map[string]float64{"metallic": 1},
	})
	require.NoError(t, err)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "materials", "gold.mat"), blob)

	v := newVFS(t, pack.NewDir("base", root))
	r, _ := newMaterialRegistry(t)

	asset, d := r.Load(v, assettest.TypeMaterial, "materials/gold.mat", "")
	require.True(t, d.OK())
	assert.True(t, d.Flags.Has(assetvfs.FlagBinary))
	assert.False(t, d.Flags.Has(assetvfs.FlagFromSource))
	assert.Equal(t, blob, d.Payload)

	m, ok := handler.As[assettest.Material](asset)
	require.True(t, ok)
	assert.Equal(t, "pbr", m.Shader)
	assert.Equal(t, 1.0, m.Params["metallic"])
}

func TestLoadDecodeFailure(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "materials", "bad.mat"), []byte("not a compiled blob"))

	v := newVFS(t, pack.NewDir("base", root))
	r, _ := newMaterialRegistry(t)

	asset, d := r.Load(v, assettest.TypeMaterial, "materials/bad.mat", "")
	assert.Nil(t, asset)
	assert.Equal(t, assetvfs.StatusParseError, d.Status)
	assert.ErrorIs(t, d.Err(), assetvfs.ErrParse)
	assert.Nil(t, d.Payload, "rejected payloads are released")
}

func TestLoadImportThenFastPath(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "materials", "gold.matdef"), []byte(`{
		// tuned by hand
		"shader": "pbr",
		"params": {"metallic": 1, "roughness": 0.3},
	}`))

	root := t.TempDir()
	v := newVFS(t, pack.NewDir("dev", root, pack.DirWithSourceRoot(src)))
	r, _ := newMaterialRegistry(t)

	// First load: no compiled form exists, so the importer runs on the
	// source file and persists the compiled blob.
	asset, d := r.Load(v, assettest.TypeMaterial, "materials/gold.mat", "")
	require.True(t, d.OK())
	assert.True(t, d.Flags.Has(assetvfs.FlagFromSource))
	assert.Equal(t, "dev", d.Package)
	assert.Equal(t, filepath.Join(src, "materials", "gold.matdef"), d.Path)

	m, ok := handler.As[assettest.Material](asset)
	require.True(t, ok)
	assert.Equal(t, "pbr", m.Shader)
	assert.Equal(t, "materials/gold.mat", m.Name, "importer defaults the name to the asset name")

	// Second load: the persisted compiled form short-circuits the
	// importer.
	asset2, d2 := r.Load(v, assettest.TypeMaterial, "materials/gold.mat", "")
	require.True(t, d2.OK())
	assert.False(t, d2.Flags.Has(assetvfs.FlagFromSource))

	m2, ok := handler.As[assettest.Material](asset2)
	require.True(t, ok)
	assert.Equal(t, m, m2)
}

func TestLoadImporterNotFound(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "gold.fbx"), []byte("binary source"))

	root := t.TempDir()
	v := newVFS(t, pack.NewDir("dev", root, pack.DirWithSourceRoot(src)))
	r, _ := newMaterialRegistry(t)

	asset, d := r.Load(v, assettest.TypeMaterial, "gold.mat", "")
	assert.Nil(t, asset)
	assert.Equal(t, assetvfs.StatusImporterNotFound, d.Status)
	assert.ErrorIs(t, d.Err(), assetvfs.ErrImporterNotFound)
}

func TestLoadMissWithoutSource(t *testing.T) {
	t.Parallel()

	v := newVFS(t, pack.NewDir("base", t.TempDir()))
	r, _ := newMaterialRegistry(t)

	t.Run("unscoped", func(t *testing.T) {
		asset, d := r.Load(v, assettest.TypeMaterial, "ghost.mat", "")
		assert.Nil(t, asset)
		assert.Equal(t, assetvfs.StatusNotFoundAnywhere, d.Status)
	})

	t.Run("scoped", func(t *testing.T) {
		asset, d := r.Load(v, assettest.TypeMaterial, "ghost.mat", "base")
		assert.Nil(t, asset)
		assert.Equal(t, assetvfs.StatusNotFound, d.Status)
	})
}

func TestLoadNoHandler(t *testing.T) {
	t.Parallel()

	v := newVFS(t, pack.NewDir("base", t.TempDir()))
	r := handler.NewRegistry()

	asset, d := r.Load(v, handler.Type(999), "a.mat", "")
	assert.Nil(t, asset)
	assert.Equal(t, assetvfs.StatusInternal, d.Status)
}

func TestLoadTextPassthrough(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "scripts", "boot.lua"), []byte("print('boot')"))

	v := newVFS(t, pack.NewDir("base", root))
	r := handler.NewRegistry()
	require.NoError(t, r.Register(assettest.ScriptHandler{}))

	asset, d := r.Load(v, assettest.TypeScript, "scripts/boot.lua", "")
	require.True(t, d.OK())
	assert.False(t, d.Flags.Has(assetvfs.FlagBinary))

	text, ok := asset.(string)
	require.True(t, ok, "handlers without a codec pass text through raw")
	assert.Equal(t, "print('boot')", text)
}

func TestLoadImportIntoReadOnlyPackage(t *testing.T) {
	t.Parallel()

	// An archive package with an attached source root: imports work,
	// but write-back has nowhere to go.
	stage := t.TempDir()
	writeFile(t, filepath.Join(stage, "placeholder.txt"), []byte("x"))
	var idx, dat bytes.Buffer
	require.NoError(t, arc.Create(context.Background(), stage, &idx, &dat))

	dir := t.TempDir()
	idxPath := filepath.Join(dir, "pack.idx")
	datPath := filepath.Join(dir, "pack.dat")
	writeFile(t, idxPath, idx.Bytes())
	writeFile(t, datPath, dat.Bytes())

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "gold.matdef"), []byte(`{"shader": "pbr"}`))

	open := func(t *testing.T) *pack.Archive {
		p, err := pack.OpenArchive("shipped", idxPath, datPath, pack.ArchiveWithSourceRoot(src))
		require.NoError(t, err)
		t.Cleanup(func() { _ = p.Close() })
		return p
	}

	t.Run("strict importer fails", func(t *testing.T) {
		v := newVFS(t, open(t))
		r := handler.NewRegistry()
		require.NoError(t, r.Register(&assettest.MaterialHandler{}))
		require.NoError(t, r.RegisterImporter(assettest.TypeMaterial, ".matdef", assettest.MaterialImporter{}))

		asset, d := r.Load(v, assettest.TypeMaterial, "gold.mat", "")
		assert.Nil(t, asset)
		assert.Equal(t, assetvfs.StatusParseError, d.Status)
	})

	t.Run("tolerant importer keeps the asset", func(t *testing.T) {
		v := newVFS(t, open(t))
		r := handler.NewRegistry()
		require.NoError(t, r.Register(&assettest.MaterialHandler{}))
		require.NoError(t, r.RegisterImporter(assettest.TypeMaterial, ".matdef",
			assettest.MaterialImporter{KeepUnpersisted: true}))

		asset, d := r.Load(v, assettest.TypeMaterial, "gold.mat", "")
		require.True(t, d.OK())
		assert.True(t, d.Flags.Has(assetvfs.FlagFromSource))

		m, ok := handler.As[assettest.Material](asset)
		require.True(t, ok)
		assert.Equal(t, "pbr", m.Shader)
	})
}

func TestLoadAsync(t *testing.T) {
	t.Parallel()

	blob, err := assettest.EncodeMaterial(&assettest.Material{Name: "gold", Shader: "pbr"})
	require.NoError(t, err)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "gold.mat"), blob)

	s := job.New(job.WithWorkers(1))
	defer s.Close()

	v := assetvfs.New(assetvfs.WithScheduler(s))
	require.NoError(t, v.Mount(pack.NewDir("base", root)))
	r, _ := newMaterialRegistry(t)

	type outcome struct {
		asset any
		data  assetvfs.Data
	}
	results := make(chan outcome, 2)
	cb := func(asset any, d assetvfs.Data) {
		results <- outcome{asset: asset, data: d}
	}

	require.NoError(t, r.LoadAsync(v, assettest.TypeMaterial, "gold.mat", "", cb))
	require.NoError(t, r.LoadAsync(v, assettest.TypeMaterial, "ghost.mat", "", cb))
	require.NoError(t, s.Drain(context.Background()))
	require.Len(t, results, 2)

	var okCount, missCount int
	for range 2 {
		res := <-results
		if res.data.OK() {
			okCount++
			m, ok := handler.As[assettest.Material](res.asset)
			require.True(t, ok)
			assert.Equal(t, "pbr", m.Shader)
		} else {
			missCount++
			assert.Nil(t, res.asset)
			assert.Equal(t, assetvfs.StatusNotFoundAnywhere, res.data.Status)
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, missCount)
}

func TestLoadAsyncWithoutScheduler(t *testing.T) {
	t.Parallel()

	v := newVFS(t, pack.NewDir("base", t.TempDir()))
	r, _ := newMaterialRegistry(t)

	err := r.LoadAsync(v, assettest.TypeMaterial, "a.mat", "", nil)
	require.ErrorIs(t, err, assetvfs.ErrNoScheduler)
}
