package dist

import "errors"

// Sentinel errors for distribution operations.
var (
	// ErrNotArchive is returned when pushing a package that has no archive
	// backend. Loose packages do not travel.
	ErrNotArchive = errors.New("dist: package is not archive-backed")

	// ErrNotAssetPack is returned when a pulled artifact is not an asset
	// package or is missing required layers.
	ErrNotAssetPack = errors.New("dist: artifact is not an asset package")
)
