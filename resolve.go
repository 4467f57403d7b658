package assetvfs

import (
	"fmt"
	"path/filepath"

	"github.com/meridian-engine/assetvfs/manifest"
	"github.com/meridian-engine/assetvfs/pack"
)

// manifestWork is one pending manifest in a LoadManifest traversal.
type manifestWork struct {
	// name is the referencing manifest's name for this package, used to
	// skip already-mounted packages before parsing. Empty for the root.
	name string
	path string
}

// LoadManifest mounts the package described by the manifest at path,
// then its references, depth first in declaration order. A reference
// whose name is already mounted is skipped along with its subtree;
// first mounted wins. On failure, packages mounted so far stay mounted.
//
// path may name the manifest file or its directory.
func (v *VFS) LoadManifest(path string) error {
	work := []manifestWork{{path: path}}

	for len(work) > 0 {
		item := work[len(work)-1]
		work = work[:len(work)-1]

		if item.name != "" {
			if _, mounted := v.byName[item.name]; mounted {
				v.log().Debug("package already mounted, skipping reference", "package", item.name)
				continue
			}
		}

		m, err := manifest.ParseFile(item.path)
		if err != nil {
			return fmt.Errorf("load manifest %s: %w", item.path, err)
		}
		// The declared name is authoritative; a reference loaded under a
		// stale name can still collide here.
		if _, mounted := v.byName[m.Name]; mounted {
			if item.name != m.Name {
				v.log().Warn("reference name differs from manifest, already mounted",
					"reference", item.name, "package", m.Name)
			}
			continue
		}

		p, err := pack.FromManifest(m, m.Dir)
		if err != nil {
			return fmt.Errorf("open package %q: %w", m.Name, err)
		}
		if err := v.Mount(p); err != nil {
			return fmt.Errorf("mount package %q: %w", m.Name, err)
		}

		// Depth first, preorder: this package's references resolve
		// before its siblings. Pushed in reverse so the first reference
		// is popped next.
		for i := len(m.References) - 1; i >= 0; i-- {
			ref := m.References[i]
			work = append(work, manifestWork{
				name: ref.Name,
				path: resolveRef(m.Dir, ref.Path),
			})
		}
	}
	return nil
}

// resolveRef resolves a reference path against the directory of the
// manifest that declared it.
func resolveRef(dir, ref string) string {
	ref = filepath.FromSlash(ref)
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(dir, ref)
}
