package arc

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/meridian-engine/assetvfs/internal/fbs"
)

// DefaultMaxFiles is the default limit used when no MaxFiles option is set.
const DefaultMaxFiles = 200_000

// Create builds an archive from the contents of dir.
//
// File contents are streamed to the data writer in walk order; the index
// is written as a FlatBuffers-encoded blob with entries in byte-sorted
// path order, and records a digest over the full data section.
//
// Create walks dir recursively, including all regular files. Empty
// directories are not preserved. Symbolic links are not followed.
//
// The context can be used for cancellation of long-running archive
// creation.
func Create(ctx context.Context, dir string, indexW, dataW io.Writer, opts ...CreateOption) error {
	cfg := createConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return err
	}
	defer root.Close()

	digester := digest.Canonical.Digester()
	w := &writer{cfg: cfg}
	entries, dataSize, err := w.writeData(ctx, root, io.MultiWriter(dataW, digester.Hash()))
	if err != nil {
		return err
	}

	// Walk order is DFS-lexical, not flat byte order. Index binary search
	// requires byte-sorted paths, so sort entries before serializing; data
	// offsets are absolute and unaffected.
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Path, b.Path)
	})

	indexData := buildIndex(entries, digester.Digest().String(), dataSize)
	_, err = indexW.Write(indexData)
	return err
}

// writer is the internal writer implementation.
type writer struct {
	cfg createConfig
}

// writeData streams file contents to the data writer while populating
// entries. Returns the entries and the total data section size.
func (w *writer) writeData(ctx context.Context, root *os.Root, data io.Writer) ([]Entry, uint64, error) {
	entries := make([]Entry, 0, 1024)
	var offset uint64
	maxFiles := w.cfg.maxFiles
	if maxFiles == 0 {
		maxFiles = DefaultMaxFiles
	}

	var enc *zstd.Encoder
	if w.cfg.compression == CompressionZstd {
		var err error
		enc, err = zstd.NewWriter(io.Discard, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
		if err != nil {
			return nil, 0, fmt.Errorf("create zstd encoder: %w", err)
		}
	}
	buf := make([]byte, 32*1024)

	err := fs.WalkDir(root.FS(), ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if maxFiles > 0 && len(entries) >= maxFiles {
			return ErrTooManyFiles
		}

		entry, err := w.writeEntry(ctx, root, data, enc, buf, path)
		if err != nil {
			return err
		}
		if entry.DataSize > ^uint64(0)-offset {
			return ErrSizeOverflow
		}
		entry.DataOffset = offset
		entries = append(entries, entry)
		offset += entry.DataSize
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return entries, offset, nil
}

// writeEntry streams a single file into the data section and returns its
// entry. DataOffset is filled in by the caller.
func (w *writer) writeEntry(ctx context.Context, root *os.Root, data io.Writer, enc *zstd.Encoder, buf []byte, path string) (Entry, error) {
	f, err := root.Open(filepath.FromSlash(path))
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Entry{}, err
	}
	if !info.Mode().IsRegular() {
		return Entry{}, fmt.Errorf("not a regular file: %s", path)
	}
	if info.Size() < 0 {
		return Entry{}, fmt.Errorf("negative file size: %s", path)
	}

	compression := w.cfg.compression
	if compression != CompressionNone && shouldSkip(path, info, w.cfg.skipCompression) {
		compression = CompressionNone
	}

	var dataSize, originalSize uint64
	var sum []byte
	switch compression {
	case CompressionLZ4:
		dataSize, originalSize, sum, compression, err = writeBlockLZ4(f, data, info.Size())
	default:
		dataSize, originalSize, sum, err = writeStream(ctx, f, data, enc, buf, compression, info.Size())
	}
	if err != nil {
		return Entry{}, fmt.Errorf("write %s: %w", path, err)
	}

	return Entry{
		Path:         path,
		DataSize:     dataSize,
		OriginalSize: originalSize,
		Hash:         sum,
		ModTime:      info.ModTime(),
		Compression:  compression,
	}, nil
}

// writeStream sends a file through the hash and optional zstd pipeline.
// Returns (dataSize, originalSize, hash, error). Pass a nil encoder for
// uncompressed writes.
func writeStream(ctx context.Context, f *os.File, w io.Writer, enc *zstd.Encoder, buf []byte, compression Compression, expectedSize int64) (dataSize, originalSize uint64, sum []byte, err error) {
	hasher := sha256.New()
	cw := &countingWriter{w: w}
	cr := &countingReader{r: io.LimitReader(f, expectedSize)}

	if compression == CompressionNone {
		if _, err := copyWithContext(ctx, cw, io.TeeReader(cr, hasher), buf); err != nil {
			return 0, 0, nil, err
		}
	} else {
		enc.Reset(cw)
		if _, err := copyWithContext(ctx, enc, io.TeeReader(cr, hasher), buf); err != nil {
			enc.Close()
			return 0, 0, nil, err
		}
		if err := enc.Close(); err != nil {
			return 0, 0, nil, fmt.Errorf("close zstd encoder: %w", err)
		}
	}

	if cr.n != uint64(expectedSize) {
		return 0, 0, nil, fmt.Errorf("file size changed during archive creation: expected %d, got %d", expectedSize, cr.n)
	}

	return cw.n, cr.n, hasher.Sum(nil), nil
}

// writeBlockLZ4 reads a file fully, compresses it as one LZ4 block, and
// writes the block. Incompressible files fall back to uncompressed
// storage, reported through the returned compression tag.
func writeBlockLZ4(f *os.File, w io.Writer, expectedSize int64) (dataSize, originalSize uint64, sum []byte, tag Compression, err error) {
	content, err := io.ReadAll(io.LimitReader(f, expectedSize+1))
	if err != nil {
		return 0, 0, nil, CompressionNone, err
	}
	if int64(len(content)) != expectedSize {
		return 0, 0, nil, CompressionNone, fmt.Errorf("file size changed during archive creation: expected %d, got %d", expectedSize, len(content))
	}
	h := sha256.Sum256(content)

	block, cerr := lz4Compress(content)
	if cerr != nil {
		// Store raw on incompressible input; surface real failures.
		if cerr != errIncompressible {
			return 0, 0, nil, CompressionNone, cerr
		}
		block = content
		tag = CompressionNone
	} else {
		tag = CompressionLZ4
	}

	if _, err := w.Write(block); err != nil {
		return 0, 0, nil, CompressionNone, err
	}
	return uint64(len(block)), uint64(len(content)), h[:], tag, nil
}

// shouldSkip checks if any predicate returns true for the given file.
func shouldSkip(path string, info fs.FileInfo, predicates []SkipCompressionFunc) bool {
	for _, fn := range predicates {
		if fn == nil {
			continue
		}
		if fn(path, info) {
			return true
		}
	}
	return false
}

// buildIndex serializes entries to FlatBuffers format.
func buildIndex(entries []Entry, dataDigest string, dataSize uint64) []byte {
	builder := flatbuffers.NewBuilder(1024)

	// Build entries in reverse order (FlatBuffers requirement)
	entryOffsets := make([]flatbuffers.UOffsetT, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]

		pathOffset := builder.CreateString(e.Path)

		fbs.EntryStartHashVector(builder, len(e.Hash))
		for j := len(e.Hash) - 1; j >= 0; j-- {
			builder.PrependByte(e.Hash[j])
		}
		hashOffset := builder.EndVector(len(e.Hash))

		fbs.EntryStart(builder)
		fbs.EntryAddPath(builder, pathOffset)
		fbs.EntryAddDataOffset(builder, e.DataOffset)
		fbs.EntryAddDataSize(builder, e.DataSize)
		fbs.EntryAddOriginalSize(builder, e.OriginalSize)
		fbs.EntryAddHash(builder, hashOffset)
		fbs.EntryAddMtimeNs(builder, e.ModTime.UnixNano())
		fbs.EntryAddCompression(builder, fbs.Compression(e.Compression))
		entryOffsets[i] = fbs.EntryEnd(builder)
	}

	digestOffset := builder.CreateString(dataDigest)

	fbs.PackIndexStartEntriesVector(builder, len(entries))
	for i := len(entryOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(entryOffsets[i])
	}
	entriesOffset := builder.EndVector(len(entries))

	fbs.PackIndexStart(builder)
	fbs.PackIndexAddVersion(builder, IndexVersion)
	fbs.PackIndexAddHashAlgorithm(builder, fbs.HashAlgorithmSHA256)
	fbs.PackIndexAddDataDigest(builder, digestOffset)
	fbs.PackIndexAddDataSize(builder, dataSize)
	fbs.PackIndexAddEntries(builder, entriesOffset)
	indexOffset := fbs.PackIndexEnd(builder)

	builder.Finish(indexOffset)
	return builder.FinishedBytes()
}
