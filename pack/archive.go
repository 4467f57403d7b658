package pack

import (
	"github.com/meridian-engine/assetvfs/arc"
)

// Archive is a read-only package backed by an archive.
type Archive struct {
	name       string
	arc        *arc.Archive
	sourceRoot string
}

// ArchiveOption configures an Archive package.
type ArchiveOption func(*Archive)

// ArchiveWithSourceRoot attaches a loose directory of editable source
// files, enabling importer lookups for assets missing from the archive.
func ArchiveWithSourceRoot(path string) ArchiveOption {
	return func(a *Archive) {
		a.sourceRoot = path
	}
}

// NewArchive wraps an opened archive as a package. The package takes
// ownership of the archive; Close releases it.
func NewArchive(name string, a *arc.Archive, opts ...ArchiveOption) *Archive {
	p := &Archive{name: name, arc: a}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OpenArchive opens the archive blobs at indexPath and dataPath as a
// package.
func OpenArchive(name, indexPath, dataPath string, opts ...ArchiveOption) (*Archive, error) {
	a, err := arc.Open(indexPath, dataPath)
	if err != nil {
		return nil, err
	}
	return NewArchive(name, a, opts...), nil
}

// Name returns the package name.
func (p *Archive) Name() string {
	return p.name
}

// Archive returns the underlying archive.
func (p *Archive) Archive() *arc.Archive {
	return p.arc
}

// Get returns the content of the named asset.
func (p *Archive) Get(name string, _ bool) ([]byte, error) {
	return p.arc.ReadFile(name)
}

// Write always fails: archive packages are read-only.
func (p *Archive) Write(string, []byte, bool) error {
	return ErrReadOnly
}

// PathFor reports not-ok: archive entries have no per-asset on-disk path.
func (p *Archive) PathFor(string) (string, bool) {
	return "", false
}

// SourcePathFor scans the attached source root, when one is configured.
func (p *Archive) SourcePathFor(name string) (string, bool) {
	if p.sourceRoot == "" || !validName(name) {
		return "", false
	}
	return scanForSource(p.sourceRoot, name)
}

// Close releases the underlying archive.
func (p *Archive) Close() error {
	return p.arc.Close()
}
