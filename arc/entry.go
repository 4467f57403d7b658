package arc

import (
	"strconv"
	"time"

	"github.com/meridian-engine/assetvfs/internal/fbs"
)

// Compression identifies the per-entry compression algorithm.
type Compression uint8

// Supported compression algorithms. Values are part of the archive format
// and must not be renumbered.
const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
	CompressionLZ4  Compression = 2
)

// String returns the algorithm name for diagnostics.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "compression(" + strconv.Itoa(int(c)) + ")"
	}
}

// Entry describes a single file stored in an archive.
//
// Entries returned by Index accessors alias index memory: Path and Hash
// remain valid only while the index is alive, and callers must not modify
// Hash.
type Entry struct {
	Path         string
	DataOffset   uint64
	DataSize     uint64
	OriginalSize uint64
	Hash         []byte
	ModTime      time.Time
	Compression  Compression
}

// entryFromFlatBuffers converts a decoded FlatBuffers entry to an Entry
// aliasing the underlying buffer.
func entryFromFlatBuffers(e *fbs.Entry) Entry {
	return Entry{
		Path:         string(e.Path()),
		DataOffset:   e.DataOffset(),
		DataSize:     e.DataSize(),
		OriginalSize: e.OriginalSize(),
		Hash:         e.HashBytes(),
		ModTime:      time.Unix(0, e.MtimeNs()),
		Compression:  Compression(e.Compression()),
	}
}
