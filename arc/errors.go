package arc

import "errors"

var (
	// ErrHashMismatch indicates entry content did not match its recorded hash.
	ErrHashMismatch = errors.New("arc: hash mismatch")

	// ErrDecompression indicates a failure while decompressing entry data.
	ErrDecompression = errors.New("arc: decompression failed")

	// ErrSizeOverflow indicates a size or offset exceeded representable bounds.
	ErrSizeOverflow = errors.New("arc: size overflow")

	// ErrTooManyFiles indicates the file count limit was exceeded during creation.
	ErrTooManyFiles = errors.New("arc: too many files")

	// ErrBadIndex indicates the index blob could not be parsed.
	ErrBadIndex = errors.New("arc: malformed index")
)
