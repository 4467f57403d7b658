package assetvfs

import "errors"

// Status classifies the outcome of an asset request.
type Status uint8

const (
	// StatusOK means the request produced a payload.
	StatusOK Status = iota

	// StatusNotFound means the asset was absent from the probed package.
	// During an unscoped search this is recoverable: later packages are
	// still tried.
	StatusNotFound

	// StatusNotFoundAnywhere means an unscoped search exhausted every
	// mounted package.
	StatusNotFoundAnywhere

	// StatusPackageNotFound means the request named a package that is
	// not mounted.
	StatusPackageNotFound

	// StatusReadError means a package failed reading an asset that may
	// exist. Unlike StatusNotFound it is terminal.
	StatusReadError

	// StatusWriteError means persisting an asset failed.
	StatusWriteError

	// StatusParseError means a payload or source was rejected while
	// decoding or importing.
	StatusParseError

	// StatusImporterNotFound means a source file exists but no importer
	// is registered for its type and extension.
	StatusImporterNotFound

	// StatusInternal means a configuration or invariant failure inside
	// the loading pipeline itself.
	StatusInternal
)

// Sentinel errors corresponding to the non-OK statuses.
var (
	ErrNotFound         = errors.New("assetvfs: asset not found")
	ErrNotFoundAnywhere = errors.New("assetvfs: asset not found in any package")
	ErrPackageNotFound  = errors.New("assetvfs: package not found")
	ErrRead             = errors.New("assetvfs: read failed")
	ErrWrite            = errors.New("assetvfs: write failed")
	ErrParse            = errors.New("assetvfs: parse failed")
	ErrImporterNotFound = errors.New("assetvfs: no importer for source")
	ErrInternal         = errors.New("assetvfs: internal error")

	// ErrDuplicate is returned by Mount for an already-mounted package
	// name.
	ErrDuplicate = errors.New("assetvfs: package already mounted")

	// ErrNoScheduler is returned by async operations on a VFS built
	// without WithScheduler.
	ErrNoScheduler = errors.New("assetvfs: no scheduler configured")

	// ErrNotWatchable is returned by Watch when the asset has no backing
	// filesystem path, such as entries served from an archive.
	ErrNotWatchable = errors.New("assetvfs: asset has no watchable path")
)

// Err returns the sentinel error for the status, or nil for StatusOK.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusNotFound:
		return ErrNotFound
	case StatusNotFoundAnywhere:
		return ErrNotFoundAnywhere
	case StatusPackageNotFound:
		return ErrPackageNotFound
	case StatusReadError:
		return ErrRead
	case StatusWriteError:
		return ErrWrite
	case StatusParseError:
		return ErrParse
	case StatusImporterNotFound:
		return ErrImporterNotFound
	default:
		return ErrInternal
	}
}

// String returns a short name for diagnostics and logs.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusNotFoundAnywhere:
		return "not_found_anywhere"
	case StatusPackageNotFound:
		return "package_not_found"
	case StatusReadError:
		return "read_error"
	case StatusWriteError:
		return "write_error"
	case StatusParseError:
		return "parse_error"
	case StatusImporterNotFound:
		return "importer_not_found"
	case StatusInternal:
		return "internal"
	default:
		return "unknown"
	}
}
