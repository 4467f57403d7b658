// Package manifest defines the package manifest format: a JSONC document
// naming a package, its backing storage, and the packages it references.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// DefaultFileName is the canonical manifest file name inside a package
// directory.
const DefaultFileName = "package.jsonc"

// ErrInvalid indicates a manifest that parsed but fails validation.
var ErrInvalid = errors.New("manifest: invalid")

// Reference names another package to load. Path points at the referenced
// manifest file, or at a directory containing DefaultFileName, relative
// to the referencing manifest.
type Reference struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ArchiveRef points at the archive blobs backing a package, relative to
// the manifest.
type ArchiveRef struct {
	Index string `json:"index"`
	Data  string `json:"data"`
}

// Manifest describes one package.
type Manifest struct {
	Name string `json:"name"`

	// Root is the loose-file root relative to the manifest directory.
	// Empty means the manifest's own directory.
	Root string `json:"root,omitempty"`

	// Archive selects the archive backend. Nil means loose files under
	// Root.
	Archive *ArchiveRef `json:"archive,omitempty"`

	// SourceRoot holds editable source files importers can consume,
	// relative to the manifest directory.
	SourceRoot string `json:"source_root,omitempty"`

	References []Reference `json:"references,omitempty"`

	// Dir is the absolute directory the manifest was loaded from. Filled
	// by ParseFile; not part of the wire format.
	Dir string `json:"-"`
}

// Parse decodes a manifest document. Comments and trailing commas are
// allowed.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseFile reads and decodes the manifest at path and records its
// directory in Dir. If path names a directory, DefaultFileName inside it
// is read instead.
func ParseFile(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		path = filepath.Join(path, DefaultFileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	m.Dir = dir
	return m, nil
}

func (m *Manifest) validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if m.Archive != nil && (m.Archive.Index == "" || m.Archive.Data == "") {
		return fmt.Errorf("%w: archive requires index and data paths", ErrInvalid)
	}
	for i, ref := range m.References {
		if ref.Name == "" {
			return fmt.Errorf("%w: reference %d: name is required", ErrInvalid, i)
		}
		if ref.Path == "" {
			return fmt.Errorf("%w: reference %q: path is required", ErrInvalid, ref.Name)
		}
	}
	return nil
}
