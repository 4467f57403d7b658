package arc

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// SkipCompressionFunc returns true when a file should be stored uncompressed.
// It is called once per file and should be inexpensive.
type SkipCompressionFunc func(path string, info fs.FileInfo) bool

// DefaultSkipCompression returns a SkipCompressionFunc that skips small files
// and known already-compressed extensions.
func DefaultSkipCompression(minSize int64) SkipCompressionFunc {
	return func(path string, info fs.FileInfo) bool {
		if info != nil && minSize > 0 && info.Size() < minSize {
			return true
		}
		ext := strings.ToLower(filepath.Ext(path))
		_, ok := skipCompressionExts[ext]
		return ok
	}
}

// skipCompressionExts lists payload formats that are already compressed.
// Compressing them again wastes CPU on both ends.
var skipCompressionExts = map[string]struct{}{
	".aac":  {},
	".avif": {},
	".br":   {},
	".bz2":  {},
	".flac": {},
	".gif":  {},
	".gz":   {},
	".jpeg": {},
	".jpg":  {},
	".ktx2": {},
	".mp3":  {},
	".mp4":  {},
	".ogg":  {},
	".ogv":  {},
	".opus": {},
	".png":  {},
	".webm": {},
	".webp": {},
	".woff": {},
	".xz":   {},
	".zip":  {},
	".zst":  {},
}

// createConfig holds configuration for archive creation.
type createConfig struct {
	compression     Compression
	skipCompression []SkipCompressionFunc
	maxFiles        int
}

// CreateOption configures archive creation.
type CreateOption func(*createConfig)

// CreateWithCompression sets the compression algorithm to use.
// Use CompressionNone to store files uncompressed.
func CreateWithCompression(c Compression) CreateOption {
	return func(cfg *createConfig) {
		cfg.compression = c
	}
}

// CreateWithSkipCompression adds predicates that decide to store a file
// uncompressed. If any predicate returns true, compression is skipped for
// that file. These checks are on the hot path, so keep them cheap.
func CreateWithSkipCompression(fns ...SkipCompressionFunc) CreateOption {
	return func(cfg *createConfig) {
		cfg.skipCompression = append(cfg.skipCompression, fns...)
	}
}

// CreateWithMaxFiles limits the number of files included in the archive.
// Zero uses DefaultMaxFiles. Negative means no limit.
func CreateWithMaxFiles(n int) CreateOption {
	return func(cfg *createConfig) {
		cfg.maxFiles = n
	}
}

// ReaderOption configures archive reading.
type ReaderOption func(*Reader)

// WithMaxFileSize sets the maximum decoded size accepted for a single
// entry. Set to 0 to disable the limit.
func WithMaxFileSize(limit uint64) ReaderOption {
	return func(r *Reader) {
		r.maxFileSize = limit
	}
}

// WithMaxDecoderMemory sets the maximum zstd decoder memory limit.
// Set to 0 to disable the limit.
func WithMaxDecoderMemory(limit uint64) ReaderOption {
	return func(r *Reader) {
		r.maxDecoderMemory = limit
	}
}
