package pack

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Dir is a package backed by loose files under a root directory.
//
// Writes are atomic: content goes to a temp file in the destination
// directory and is renamed into place.
type Dir struct {
	name       string
	root       string
	sourceRoot string
}

// DirOption configures a Dir package.
type DirOption func(*Dir)

// DirWithSourceRoot sets a separate directory holding editable source
// files for importers. Without it, source lookups scan the package root
// itself.
func DirWithSourceRoot(path string) DirOption {
	return func(d *Dir) {
		d.sourceRoot = path
	}
}

// NewDir creates a loose-file package named name rooted at root.
func NewDir(name, root string, opts ...DirOption) *Dir {
	d := &Dir{name: name, root: root}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the package name.
func (d *Dir) Name() string {
	return d.name
}

// Root returns the package root directory.
func (d *Dir) Root() string {
	return d.root
}

// Get returns the content of the named asset.
func (d *Dir) Get(name string, _ bool) ([]byte, error) {
	if !validName(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return os.ReadFile(filepath.Join(d.root, filepath.FromSlash(name)))
}

// Write stores content under the asset name, creating parent directories
// as needed.
func (d *Dir) Write(name string, data []byte, _ bool) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	path := filepath.Join(d.root, filepath.FromSlash(name))
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// PathFor returns the on-disk path the asset occupies or would occupy.
func (d *Dir) PathFor(name string) (string, bool) {
	if !validName(name) {
		return "", false
	}
	return filepath.Join(d.root, filepath.FromSlash(name)), true
}

// SourcePathFor scans for a source file sharing the asset's stem, in the
// source root when configured, otherwise next to the asset itself. The
// first match in directory order wins; the asset's own file never
// matches.
func (d *Dir) SourcePathFor(name string) (string, bool) {
	if !validName(name) {
		return "", false
	}
	base := d.sourceRoot
	if base == "" {
		base = d.root
	}
	return scanForSource(base, name)
}

// validName reports whether name is a clean slash-separated relative
// path that stays inside the package.
func validName(name string) bool {
	return name != "." && fs.ValidPath(name)
}

// scanForSource looks in base for a file whose stem matches the asset
// name's stem, skipping the asset's own file name.
func scanForSource(base, name string) (string, bool) {
	rel := filepath.FromSlash(name)
	fileName := filepath.Base(rel)
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	dir := filepath.Join(base, filepath.Dir(rel))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		candidate := e.Name()
		if candidate == fileName {
			continue
		}
		if strings.TrimSuffix(candidate, filepath.Ext(candidate)) == stem {
			return filepath.Join(dir, candidate), true
		}
	}
	return "", false
}
