// Package pack defines the package abstraction the virtual filesystem
// routes asset requests across, with loose-directory and archive-backed
// implementations.
package pack

import "errors"

var (
	// ErrReadOnly is returned by Write on packages that cannot persist
	// assets.
	ErrReadOnly = errors.New("pack: package is read-only")

	// ErrInvalidName is returned for asset names that are not clean
	// slash-separated relative paths.
	ErrInvalidName = errors.New("pack: invalid asset name")
)

// Package is a named source of assets.
//
// Get reports a missing asset with an error satisfying
// errors.Is(err, fs.ErrNotExist); any other error is an I/O failure. The
// binary flag is a mode hint preserved for asset handlers; backends
// return raw bytes either way.
//
// PathFor returns the on-disk location an asset occupies (or would
// occupy), for diagnostics, writes, and change watching. SourcePathFor
// returns the location of an editable source file the asset could be
// imported from. Both report ok=false when the package cannot map the
// name to a filesystem location.
type Package interface {
	Name() string
	Get(name string, binary bool) ([]byte, error)
	Write(name string, data []byte, binary bool) error
	PathFor(name string) (string, bool)
	SourcePathFor(name string) (string, bool)
}
