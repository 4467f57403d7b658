package arc

import (
	"bytes"
	"fmt"
	"iter"
	"sort"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/meridian-engine/assetvfs/internal/fbs"
)

// IndexVersion is the current index format version.
const IndexVersion = 1

// Index provides access to archive entries.
//
// Index is backed by FlatBuffers and provides O(log n) lookups by path.
// Entries are sorted by path, enabling efficient prefix scans for
// directory-style listings.
type Index struct {
	data []byte
	root *fbs.PackIndex
}

// LoadIndex parses a FlatBuffers-encoded index blob.
//
// The provided data is retained by the index; callers must not modify it
// after calling LoadIndex.
func LoadIndex(data []byte) (*Index, error) {
	if len(data) < flatbuffers.SizeUOffsetT {
		return nil, fmt.Errorf("%w: index too short", ErrBadIndex)
	}
	if rootPos := flatbuffers.GetUOffsetT(data); uint64(rootPos)+flatbuffers.SizeSOffsetT > uint64(len(data)) {
		return nil, fmt.Errorf("%w: root offset out of bounds", ErrBadIndex)
	}

	root := fbs.GetRootAsPackIndex(data, 0)
	if root == nil {
		return nil, fmt.Errorf("%w: failed to parse", ErrBadIndex)
	}
	if v := root.Version(); v != IndexVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadIndex, v)
	}

	return &Index{
		data: data,
		root: root,
	}, nil
}

// Version returns the format version of the index.
func (idx *Index) Version() uint32 {
	return idx.root.Version()
}

// DataDigest returns the recorded digest of the data section, in the form
// "sha256:<hex>". Empty when the archive was created without one.
func (idx *Index) DataDigest() string {
	return string(idx.root.DataDigest())
}

// DataSize returns the recorded size of the data section in bytes.
func (idx *Index) DataSize() uint64 {
	return idx.root.DataSize()
}

// Len returns the number of entries in the index.
func (idx *Index) Len() int {
	return idx.root.EntriesLength()
}

// Lookup returns the entry for the given path.
//
// The returned entry aliases index memory and is only valid while the
// index remains alive.
func (idx *Index) Lookup(path string) (Entry, bool) {
	var fbEntry fbs.Entry
	if !idx.root.EntriesByKey(&fbEntry, path) {
		return Entry{}, false
	}
	return entryFromFlatBuffers(&fbEntry), true
}

// Entries returns an iterator over all entries in path order.
//
// The returned entries alias index memory and are only valid while the
// index remains alive.
func (idx *Index) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		var fbEntry fbs.Entry
		for i := range idx.root.EntriesLength() {
			if !idx.root.Entries(&fbEntry, i) {
				return
			}
			if !yield(entryFromFlatBuffers(&fbEntry)) {
				return
			}
		}
	}
}

// EntriesWithPrefix returns an iterator over entries whose path starts
// with prefix, in path order.
func (idx *Index) EntriesWithPrefix(prefix string) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		n := idx.root.EntriesLength()
		if n == 0 {
			return
		}
		prefixBytes := []byte(prefix)

		start := sort.Search(n, func(i int) bool {
			var fbEntry fbs.Entry
			if !idx.root.Entries(&fbEntry, i) {
				return false
			}
			return bytes.Compare(fbEntry.Path(), prefixBytes) >= 0
		})

		var fbEntry fbs.Entry
		for i := start; i < n; i++ {
			if !idx.root.Entries(&fbEntry, i) {
				return
			}
			if !bytes.HasPrefix(fbEntry.Path(), prefixBytes) {
				return
			}
			if !yield(entryFromFlatBuffers(&fbEntry)) {
				return
			}
		}
	}
}
