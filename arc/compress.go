package arc

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// errIncompressible signals that compressing a block would not reduce its
// size. The writer stores such blocks uncompressed.
var errIncompressible = errors.New("incompressible")

// lz4Compress compresses src as a single LZ4 block. Returns
// errIncompressible when the compressed form would be no smaller than the
// input.
func lz4Compress(src []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(src))
	dst := make([]byte, bound)

	n, err := lz4.CompressBlock(src, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 when it determines the data is incompressible.
	if n == 0 || n >= len(src) {
		return nil, errIncompressible
	}
	return dst[:n], nil
}

// lz4Decompress decompresses a single LZ4 block into a buffer of
// originalSize bytes.
func lz4Decompress(src []byte, originalSize int) ([]byte, error) {
	dst := make([]byte, originalSize)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	if n != originalSize {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrDecompression, n, originalSize)
	}
	return dst, nil
}

// decompressPool manages reusable zstd decoders to reduce allocation
// overhead on hot read paths.
type decompressPool struct {
	pool             *sync.Pool
	maxDecoderMemory uint64
}

// newDecompressPool creates a pool for zstd decoders. If maxMemory is 0,
// no memory limit is applied to decoders.
func newDecompressPool(maxMemory uint64) *decompressPool {
	p := &decompressPool{maxDecoderMemory: maxMemory}
	p.pool = &sync.Pool{
		New: func() any {
			dec, err := p.newDecoder(nil)
			if err != nil {
				return nil
			}
			return dec
		},
	}
	return p
}

// get returns a decoder configured to read from r.
// The caller must call the returned release function when done.
// If an error is returned, no release function needs to be called.
func (p *decompressPool) get(r io.Reader) (*zstd.Decoder, func(), error) {
	value := p.pool.Get()
	dec, ok := value.(*zstd.Decoder)
	if !ok {
		// Pool's New function failed, try directly so the caller sees the
		// underlying error.
		newDec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return newDec, newDec.Close, nil
	}

	if err := dec.Reset(r); err != nil {
		dec.Close()
		newDec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return newDec, newDec.Close, nil
	}

	return dec, func() {
		_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
		p.pool.Put(dec)
	}, nil
}

// newDecoder creates a zstd decoder with the configured memory limit.
func (p *decompressPool) newDecoder(r io.Reader) (*zstd.Decoder, error) {
	opts := []zstd.DOption{
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(false),
	}
	if p.maxDecoderMemory != 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(p.maxDecoderMemory))
	}
	return zstd.NewReader(r, opts...)
}
