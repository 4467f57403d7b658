package arc

import (
	"context"
	"hash"
	"io"
	"math"
)

func toInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, ErrSizeOverflow
	}
	return int64(v), nil
}

func toInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, ErrSizeOverflow
	}
	return int(v), nil
}

// countingReader wraps a reader and counts bytes read.
type countingReader struct {
	r io.Reader
	n uint64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.n += uint64(n)
	}
	return n, err
}

// countingWriter wraps a writer and counts bytes written.
type countingWriter struct {
	w io.Writer
	n uint64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		cw.n += uint64(n)
	}
	return n, err
}

// hashingReader wraps a reader and hashes all data read through it.
type hashingReader struct {
	r io.Reader
	h hash.Hash
}

func (hr *hashingReader) Read(p []byte) (int, error) {
	n, err := hr.r.Read(p)
	if n > 0 {
		_, _ = hr.h.Write(p[:n]) //nolint:errcheck // hash writes never fail
	}
	return n, err
}

func (hr *hashingReader) sum() []byte {
	return hr.h.Sum(nil)
}

// ensureNoExtra returns ErrSizeOverflow if any data remains in r. It
// detects decompressed streams that exceed the recorded original size.
func ensureNoExtra(r io.Reader) error {
	var scratch [1]byte
	n, err := r.Read(scratch[:])
	if n > 0 {
		return ErrSizeOverflow
	}
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

// copyWithContext copies from src to dst until EOF or error, checking for
// context cancellation between reads. It returns the number of bytes
// written.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (uint64, error) {
	var written uint64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			if nw > 0 {
				written += uint64(nw)
			}
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return written, nil
			}
			return written, rerr
		}
	}
}
