// Package codec defines the compiled asset blob convention: a fixed
// little-endian header carrying an asset type tag, a format version,
// and the payload size, followed by the payload itself, which is
// usually deterministic CBOR.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the fixed byte length of an encoded header.
const HeaderSize = 12

// headerMagic spells "AVF1" in a little-endian hexdump.
const headerMagic uint32 = 0x31465641

var (
	ErrBadMagic     = errors.New("codec: bad magic")
	ErrTypeMismatch = errors.New("codec: asset type mismatch")
	ErrVersion      = errors.New("codec: unsupported version")
	ErrTruncated    = errors.New("codec: truncated blob")
)

// Header describes a compiled asset blob.
type Header struct {
	// Type is the asset type tag the blob was compiled for.
	Type uint16
	// Version is the format version of the payload.
	Version uint16
	// Size is the payload length in bytes, not counting the header.
	Size uint32
}

// AppendHeader appends the encoded header to dst.
func AppendHeader(dst []byte, h Header) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, headerMagic)
	dst = binary.LittleEndian.AppendUint16(dst, h.Type)
	dst = binary.LittleEndian.AppendUint16(dst, h.Version)
	dst = binary.LittleEndian.AppendUint32(dst, h.Size)
	return dst
}

// DecodeHeader reads and validates the header at the start of blob.
func DecodeHeader(blob []byte) (Header, error) {
	if len(blob) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes, need %d for header", ErrTruncated, len(blob), HeaderSize)
	}
	if magic := binary.LittleEndian.Uint32(blob[0:4]); magic != headerMagic {
		return Header{}, fmt.Errorf("%w: 0x%08x", ErrBadMagic, magic)
	}
	return Header{
		Type:    binary.LittleEndian.Uint16(blob[4:6]),
		Version: binary.LittleEndian.Uint16(blob[6:8]),
		Size:    binary.LittleEndian.Uint32(blob[8:12]),
	}, nil
}

// Seal prefixes payload with a header for the given type tag and
// version, producing a storable blob.
func Seal(typeTag, version uint16, payload []byte) []byte {
	blob := make([]byte, 0, HeaderSize+len(payload))
	blob = AppendHeader(blob, Header{Type: typeTag, Version: version, Size: uint32(len(payload))})
	return append(blob, payload...)
}

// Open validates blob's header against the expected type tag and the
// highest supported version, and returns the payload and the version it
// was written with. The payload aliases blob. Bytes past the declared
// size are ignored, so newer writers may append data old readers skip.
func Open(typeTag, maxVersion uint16, blob []byte) ([]byte, uint16, error) {
	h, err := DecodeHeader(blob)
	if err != nil {
		return nil, 0, err
	}
	if h.Type != typeTag {
		return nil, 0, fmt.Errorf("%w: blob has type %d, want %d", ErrTypeMismatch, h.Type, typeTag)
	}
	if h.Version > maxVersion {
		return nil, 0, fmt.Errorf("%w: blob version %d, support up to %d", ErrVersion, h.Version, maxVersion)
	}
	if uint64(len(blob)-HeaderSize) < uint64(h.Size) {
		return nil, 0, fmt.Errorf("%w: header says %d payload bytes, have %d", ErrTruncated, h.Size, len(blob)-HeaderSize)
	}
	return blob[HeaderSize : HeaderSize+int(h.Size)], h.Version, nil
}
