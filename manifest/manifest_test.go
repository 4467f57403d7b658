package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("full document with comments", func(t *testing.T) {
		t.Parallel()
		m, err := Parse([]byte(`{
			// Core game content.
			"name": "core",
			"source_root": "src",
			"references": [
				{"name": "ui", "path": "../ui"},
				{"name": "audio", "path": "../audio/package.jsonc"}, // trailing comma ok
			],
		}`))
		require.NoError(t, err)
		assert.Equal(t, "core", m.Name)
		assert.Equal(t, "src", m.SourceRoot)
		require.Len(t, m.References, 2)
		assert.Equal(t, Reference{Name: "ui", Path: "../ui"}, m.References[0])
		assert.Nil(t, m.Archive)
	})

	t.Run("archive backend", func(t *testing.T) {
		t.Parallel()
		m, err := Parse([]byte(`{
			"name": "core",
			"archive": {"index": "pack.idx", "data": "pack.dat"}
		}`))
		require.NoError(t, err)
		require.NotNil(t, m.Archive)
		assert.Equal(t, "pack.idx", m.Archive.Index)
		assert.Equal(t, "pack.dat", m.Archive.Data)
	})

	tests := []struct {
		name string
		doc  string
	}{
		{name: "missing name", doc: `{"references": []}`},
		{name: "reference without name", doc: `{"name": "core", "references": [{"path": "x"}]}`},
		{name: "reference without path", doc: `{"name": "core", "references": [{"name": "x"}]}`},
		{name: "archive without data", doc: `{"name": "core", "archive": {"index": "pack.idx"}}`},
		{name: "not json", doc: `name = core`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := []byte(`{"name": "core"}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), doc, 0o644))

	t.Run("by file path", func(t *testing.T) {
		t.Parallel()
		m, err := ParseFile(filepath.Join(dir, DefaultFileName))
		require.NoError(t, err)
		assert.Equal(t, "core", m.Name)
		assert.NotEmpty(t, m.Dir)
	})

	t.Run("by directory", func(t *testing.T) {
		t.Parallel()
		m, err := ParseFile(dir)
		require.NoError(t, err)
		assert.Equal(t, "core", m.Name)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		_, err := ParseFile(filepath.Join(dir, "nope.jsonc"))
		assert.Error(t, err)
	})
}
