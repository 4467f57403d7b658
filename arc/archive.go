// Package arc implements the asset pack archive format: a FlatBuffers
// index blob describing entries stored in a separate concatenated data
// blob. Entries are individually hashed and optionally compressed with
// zstd or LZ4.
package arc

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"

	"github.com/opencontainers/go-digest"
)

// Archive combines a parsed index with a data source for reading.
type Archive struct {
	idx    *Index
	reader *Reader
	closer io.Closer
}

// Open opens an archive from an index file and a data file.
func Open(indexPath, dataPath string, opts ...ReaderOption) (*Archive, error) {
	indexData, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(dataPath)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	a, err := New(indexData, &fileSource{f: f, size: info.Size()}, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// New creates an archive from an index blob and a data source.
//
// The index data is retained; callers must not modify it afterwards.
func New(indexData []byte, source ByteSource, opts ...ReaderOption) (*Archive, error) {
	idx, err := LoadIndex(indexData)
	if err != nil {
		return nil, err
	}
	if ds := idx.DataSize(); source.Size() >= 0 && ds != uint64(source.Size()) {
		return nil, fmt.Errorf("%w: data size %d does not match index %d", ErrBadIndex, source.Size(), ds)
	}
	return &Archive{
		idx:    idx,
		reader: NewReader(source, opts...),
	}, nil
}

// Index returns the archive index.
func (a *Archive) Index() *Index {
	return a.idx
}

// Len returns the number of entries in the archive.
func (a *Archive) Len() int {
	return a.idx.Len()
}

// Contains reports whether the archive has an entry for path.
func (a *Archive) Contains(path string) bool {
	_, ok := a.idx.Lookup(path)
	return ok
}

// Stat returns the entry for path.
func (a *Archive) Stat(path string) (Entry, bool) {
	return a.idx.Lookup(path)
}

// Entries returns an iterator over all entries in path order.
func (a *Archive) Entries() iter.Seq[Entry] {
	return a.idx.Entries()
}

// ReadFile returns the decompressed, verified content of the entry at
// path. Missing entries are reported with an error satisfying
// errors.Is(err, fs.ErrNotExist).
func (a *Archive) ReadFile(path string) ([]byte, error) {
	entry, ok := a.idx.Lookup(path)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return a.reader.ReadAll(&entry)
}

// Verify reads every entry and checks it against its recorded hash, then
// checks the data section against the recorded digest. It stops at the
// first failure.
func (a *Archive) Verify(ctx context.Context) error {
	for entry := range a.idx.Entries() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := a.reader.ReadAll(&entry); err != nil {
			return fmt.Errorf("verify %s: %w", entry.Path, err)
		}
	}

	if want := a.idx.DataDigest(); want != "" {
		parsed, err := digest.Parse(want)
		if err != nil {
			return fmt.Errorf("%w: bad data digest: %v", ErrBadIndex, err)
		}
		verifier := parsed.Verifier()
		src := io.NewSectionReader(a.reader.Source(), 0, a.reader.Source().Size())
		if _, err := io.Copy(verifier, src); err != nil {
			return err
		}
		if !verifier.Verified() {
			return fmt.Errorf("data section digest mismatch: want %s", want)
		}
	}
	return nil
}

// Close releases the underlying data source when the archive was opened
// from disk. It is safe to call on archives created from memory.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// fileSource adapts an os.File to ByteSource.
type fileSource struct {
	f    *os.File
	size int64
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

func (s *fileSource) Size() int64 {
	return s.size
}
