package handler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-engine/assetvfs/handler"
	"github.com/meridian-engine/assetvfs/internal/assettest"
)

func TestRegister(t *testing.T) {
	t.Parallel()

	r := handler.NewRegistry()
	require.NoError(t, r.Register(&assettest.MaterialHandler{}))

	err := r.Register(&assettest.MaterialHandler{})
	require.ErrorIs(t, err, handler.ErrRegistered)

	h, ok := r.Handler(assettest.TypeMaterial)
	require.True(t, ok)
	assert.Equal(t, "material", h.TypeName())

	_, ok = r.Handler(handler.Type(999))
	assert.False(t, ok)
}

func TestRegisterImporter(t *testing.T) {
	t.Parallel()

	r := handler.NewRegistry()
	require.NoError(t, r.RegisterImporter(assettest.TypeMaterial, ".matdef", assettest.MaterialImporter{}))

	err := r.RegisterImporter(assettest.TypeMaterial, "matdef", assettest.MaterialImporter{})
	require.ErrorIs(t, err, handler.ErrRegistered, "extension lookup is dot- and case-insensitive")

	// Same extension under a different type is a distinct slot.
	require.NoError(t, r.RegisterImporter(assettest.TypeScript, ".matdef", assettest.MaterialImporter{}))

	_, ok := r.ImporterFor(assettest.TypeMaterial, ".MATDEF")
	assert.True(t, ok)
	_, ok = r.ImporterFor(assettest.TypeMaterial, "matdef")
	assert.True(t, ok)
	_, ok = r.ImporterFor(assettest.TypeMaterial, ".obj")
	assert.False(t, ok)
}

func TestRelease(t *testing.T) {
	t.Parallel()

	r := handler.NewRegistry()
	mh := &assettest.MaterialHandler{}
	require.NoError(t, r.Register(mh))
	require.NoError(t, r.Register(assettest.ScriptHandler{}))

	r.Release(assettest.TypeMaterial, &assettest.Material{Name: "gold"})
	assert.Equal(t, int32(1), mh.Released.Load())

	// Nil assets, unknown types, and handlers without a Releaser are
	// all quiet no-ops.
	r.Release(assettest.TypeMaterial, nil)
	r.Release(handler.Type(999), &assettest.Material{})
	r.Release(assettest.TypeScript, "print('hi')")
	assert.Equal(t, int32(1), mh.Released.Load())
}

func TestAs(t *testing.T) {
	t.Parallel()

	m := &assettest.Material{Name: "gold"}

	got, ok := handler.As[assettest.Material](m)
	require.True(t, ok)
	assert.Same(t, m, got)

	got, ok = handler.As[assettest.Material](*m)
	require.True(t, ok)
	assert.Equal(t, "gold", got.Name)

	_, ok = handler.As[assettest.Material]("not a material")
	assert.False(t, ok)
	_, ok = handler.As[assettest.Material](nil)
	assert.False(t, ok)
}
