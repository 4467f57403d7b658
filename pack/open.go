package pack

import (
	"fmt"
	"path/filepath"

	"github.com/meridian-engine/assetvfs/manifest"
)

// FromManifest constructs the package a manifest describes. Relative
// paths inside the manifest are resolved against the manifest's own
// directory, falling back to baseDir when the manifest was not loaded
// from disk.
func FromManifest(m *manifest.Manifest, baseDir string) (Package, error) {
	base := m.Dir
	if base == "" {
		base = baseDir
	}
	if m.Name == "" {
		return nil, fmt.Errorf("pack: manifest has no name")
	}

	if m.Archive != nil {
		var opts []ArchiveOption
		if m.SourceRoot != "" {
			opts = append(opts, ArchiveWithSourceRoot(resolvePath(base, m.SourceRoot)))
		}
		return OpenArchive(m.Name, resolvePath(base, m.Archive.Index), resolvePath(base, m.Archive.Data), opts...)
	}

	root := base
	if m.Root != "" {
		root = resolvePath(base, m.Root)
	}
	var opts []DirOption
	if m.SourceRoot != "" {
		opts = append(opts, DirWithSourceRoot(resolvePath(base, m.SourceRoot)))
	}
	return NewDir(m.Name, root, opts...), nil
}

// resolvePath resolves p against base unless p is already absolute.
func resolvePath(base, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
