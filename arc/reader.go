package arc

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
)

const (
	// DefaultMaxFileSize is the default maximum decoded entry size (256MB).
	DefaultMaxFileSize = 256 << 20

	// DefaultMaxDecoderMemory is the default maximum zstd decoder memory
	// (256MB).
	DefaultMaxDecoderMemory = 256 << 20
)

// ByteSource provides random access to the data section of an archive.
// *bytes.Reader satisfies it directly.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// Reader reads and verifies entry content from a ByteSource.
type Reader struct {
	source           ByteSource
	maxFileSize      uint64
	maxDecoderMemory uint64
	pool             *decompressPool
}

// NewReader creates a Reader for reading entries from the given source.
func NewReader(source ByteSource, opts ...ReaderOption) *Reader {
	r := &Reader{
		source:           source,
		maxFileSize:      DefaultMaxFileSize,
		maxDecoderMemory: DefaultMaxDecoderMemory,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.pool = newDecompressPool(r.maxDecoderMemory)
	return r
}

// Source returns the underlying ByteSource.
func (r *Reader) Source() ByteSource {
	return r.source
}

// ReadAll reads the entire content of an entry, decompresses if needed,
// and verifies the hash. Returns the uncompressed content.
func (r *Reader) ReadAll(entry *Entry) ([]byte, error) {
	if err := validateEntry(entry, r.source.Size(), r.maxFileSize); err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Path, err)
	}

	if entry.Compression == CompressionLZ4 {
		return r.readBlock(entry)
	}
	return r.readStream(entry)
}

// readStream handles uncompressed and zstd entries, both of which stream
// through an io.Reader pipeline.
func (r *Reader) readStream(entry *Entry) ([]byte, error) {
	offset, err := toInt64(entry.DataOffset)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Path, err)
	}
	length, err := toInt64(entry.DataSize)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Path, err)
	}
	section := io.NewSectionReader(r.source, offset, length)

	var reader io.Reader = section
	release := func() {}
	if entry.Compression == CompressionZstd {
		dec, rel, err := r.pool.get(section)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
		}
		reader, release = dec, rel
	}
	defer release()

	contentSize, err := toInt(entry.OriginalSize)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Path, err)
	}
	content := make([]byte, contentSize)

	hr := &hashingReader{r: reader, h: sha256.New()}
	n, err := io.ReadFull(hr, content)
	if err != nil {
		return nil, mapReadError(entry, n, contentSize, err)
	}
	if err := ensureNoExtra(hr); err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Path, err)
	}

	if !bytes.Equal(hr.sum(), entry.Hash) {
		return nil, ErrHashMismatch
	}
	return content, nil
}

// readBlock handles LZ4 entries, which are stored as a single compressed
// block and cannot be streamed.
func (r *Reader) readBlock(entry *Entry) ([]byte, error) {
	offset, err := toInt64(entry.DataOffset)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Path, err)
	}
	length, err := toInt(entry.DataSize)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Path, err)
	}

	block := make([]byte, length)
	if _, err := r.source.ReadAt(block, offset); err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Path, err)
	}

	contentSize, err := toInt(entry.OriginalSize)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Path, err)
	}
	content, err := lz4Decompress(block, contentSize)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Path, err)
	}

	sum := sha256.Sum256(content)
	if !bytes.Equal(sum[:], entry.Hash) {
		return nil, ErrHashMismatch
	}
	return content, nil
}

// validateEntry checks that an entry is safe to read from a source of the
// given size: sizes within the maxFileSize limit, no offset overflow, data
// range within source bounds, hash well formed, and compression metadata
// consistent.
func validateEntry(entry *Entry, sourceSize int64, maxFileSize uint64) error {
	if sourceSize < 0 {
		return ErrSizeOverflow
	}
	if maxFileSize > 0 {
		if entry.DataSize > maxFileSize || entry.OriginalSize > maxFileSize {
			return ErrSizeOverflow
		}
	}
	end := entry.DataOffset + entry.DataSize
	if end < entry.DataOffset {
		return ErrSizeOverflow
	}
	if end > uint64(sourceSize) {
		return ErrSizeOverflow
	}
	if len(entry.Hash) != sha256.Size {
		return fmt.Errorf("invalid hash length: %d", len(entry.Hash))
	}
	if entry.Compression == CompressionNone && entry.DataSize != entry.OriginalSize {
		return fmt.Errorf("%w: size mismatch", ErrDecompression)
	}
	return nil
}

// mapReadError converts read errors to appropriate error types.
func mapReadError(entry *Entry, n, expected int, err error) error {
	if entry.Compression == CompressionNone {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("read %s: short read (%d of %d bytes)", entry.Path, n, expected)
		}
		return fmt.Errorf("read %s: %w", entry.Path, err)
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: unexpected EOF", ErrDecompression)
	}
	return fmt.Errorf("%w: %v", ErrDecompression, err)
}
