// Package assettest provides shared test fixtures: a small concrete
// asset type with handler and importer implementations, and helpers
// that scaffold package directories on disk.
package assettest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/jsonc"

	"github.com/meridian-engine/assetvfs/arc"
	"github.com/meridian-engine/assetvfs/codec"
	"github.com/meridian-engine/assetvfs/handler"
	"github.com/meridian-engine/assetvfs/manifest"
)

// Asset types used across tests.
const (
	TypeMaterial handler.Type = 7
	TypeScript   handler.Type = 9
)

// MaterialVersion is the compiled material format version.
const MaterialVersion uint16 = 1

// Material is the test asset type: a shader reference with bound
// textures and scalar parameters.
type Material struct {
	Name     string             `json:"name" cbor:"1,keyasint"`
	Shader   string             `json:"shader" cbor:"2,keyasint"`
	Textures []string           `json:"textures,omitempty" cbor:"3,keyasint,omitempty"`
	Params   map[string]float64 `json:"params,omitempty" cbor:"4,keyasint,omitempty"`
}

// EncodeMaterial seals a material into its compiled blob form.
func EncodeMaterial(m *Material) ([]byte, error) {
	payload, err := codec.Marshal(m)
	if err != nil {
		return nil, err
	}
	return codec.Seal(uint16(TypeMaterial), MaterialVersion, payload), nil
}

// DecodeMaterial opens and decodes a compiled material blob.
func DecodeMaterial(blob []byte) (*Material, error) {
	payload, _, err := codec.Open(uint16(TypeMaterial), MaterialVersion, blob)
	if err != nil {
		return nil, err
	}
	var m Material
	if err := codec.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// MaterialHandler serves materials as binary compiled blobs. Released
// counts Release calls so tests can assert cleanup happened.
type MaterialHandler struct {
	Released atomic.Int32
}

func (h *MaterialHandler) AssetType() handler.Type { return TypeMaterial }
func (h *MaterialHandler) TypeName() string        { return "material" }
func (h *MaterialHandler) Binary() bool            { return true }

func (h *MaterialHandler) EncodeBinary(asset any) ([]byte, error) {
	m, ok := handler.As[Material](asset)
	if !ok {
		return nil, fmt.Errorf("assettest: not a material: %T", asset)
	}
	return EncodeMaterial(m)
}

func (h *MaterialHandler) DecodeBinary(blob []byte) (any, error) {
	return DecodeMaterial(blob)
}

func (h *MaterialHandler) Release(any) {
	h.Released.Add(1)
}

// MaterialImporter builds a material from a ".mat" JSONC source file
// and persists the compiled form through the write-back hook.
type MaterialImporter struct {
	// KeepUnpersisted makes a failed persist non-fatal, for importing
	// into read-only packages.
	KeepUnpersisted bool
}

func (imp MaterialImporter) Import(src []byte, p handler.ImportParams) (any, error) {
	var m Material
	if err := json.Unmarshal(jsonc.ToJSON(src), &m); err != nil {
		return nil, err
	}
	if m.Name == "" {
		m.Name = p.AssetName
	}

	blob, err := EncodeMaterial(&m)
	if err != nil {
		return nil, err
	}
	if err := p.Persist(blob); err != nil && !imp.KeepUnpersisted {
		return nil, err
	}
	return &m, nil
}

// ScriptHandler serves scripts as raw text with no codec capability,
// exercising the passthrough path.
type ScriptHandler struct{}

func (ScriptHandler) AssetType() handler.Type { return TypeScript }
func (ScriptHandler) TypeName() string        { return "script" }
func (ScriptHandler) Binary() bool            { return false }

// WriteFile writes data at path, creating parent directories.
func WriteFile(tb testing.TB, path string, data []byte) {
	tb.Helper()
	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tb, os.WriteFile(path, data, 0o644))
}

// WriteManifest writes m as dir's package manifest.
func WriteManifest(tb testing.TB, dir string, m manifest.Manifest) {
	tb.Helper()
	data, err := json.MarshalIndent(&m, "", "  ")
	require.NoError(tb, err)
	WriteFile(tb, filepath.Join(dir, manifest.DefaultFileName), data)
}

// WriteLoosePackage scaffolds a loose-file package at dir: the given
// files plus a manifest naming the package and its references. Returns
// dir.
func WriteLoosePackage(tb testing.TB, dir, name string, files map[string][]byte, refs ...manifest.Reference) string {
	tb.Helper()
	for rel, data := range files {
		WriteFile(tb, filepath.Join(dir, filepath.FromSlash(rel)), data)
	}
	WriteManifest(tb, dir, manifest.Manifest{Name: name, References: refs})
	return dir
}

// BuildArchivePackage scaffolds an archive-backed package at dir: the
// given files compiled into pack.idx/pack.dat plus a manifest selecting
// the archive backend. Returns dir.
func BuildArchivePackage(tb testing.TB, dir, name string, files map[string][]byte, refs ...manifest.Reference) string {
	tb.Helper()

	stage := tb.TempDir()
	for rel, data := range files {
		WriteFile(tb, filepath.Join(stage, filepath.FromSlash(rel)), data)
	}

	var indexBuf, dataBuf bytes.Buffer
	require.NoError(tb, arc.Create(context.Background(), stage, &indexBuf, &dataBuf))
	WriteFile(tb, filepath.Join(dir, "pack.idx"), indexBuf.Bytes())
	WriteFile(tb, filepath.Join(dir, "pack.dat"), dataBuf.Bytes())

	WriteManifest(tb, dir, manifest.Manifest{
		Name:       name,
		Archive:    &manifest.ArchiveRef{Index: "pack.idx", Data: "pack.dat"},
		References: refs,
	})
	return dir
}
