// Package quicvarint implements the QUIC variable-length integer encoding.
// See section 16 of RFC 9000.
package quicvarint

import (
	"io"
)

const (
	// Min is the minimum value allowed for a QUIC varint.
	Min = 0
	// Max is the maximum allowed value for a QUIC varint (2^62-1).
	Max = maxVarInt8
)

const (
	maxVarInt1 = 63
	maxVarInt2 = 16383
	maxVarInt4 = 1073741823
	maxVarInt8 = 4611686018427387903
)

// TagMask is the mask of the two length bits in the first byte of a varint.
const TagMask = 0xc0

// Parse reads a varint from the beginning of b.
// It returns the value, the number of bytes read, and an error.
// If b is too short to contain the encoded value, it returns io.EOF.
func Parse(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, io.EOF
	}
	firstByte := b[0]
	length := 1 << (firstByte >> 6)
	if len(b) < length {
		return 0, 0, io.EOF
	}
	val := uint64(firstByte & 0x3f)
	for i := 1; i < length; i++ {
		val = val<<8 + uint64(b[i])
	}
	return val, length, nil
}

// ParseWithLen behaves like Parse, but interprets the caller-provided
// length instead of reading it from the tag bits. It is used when the
// caller already knows the on-wire field width (e.g. from a fixed table).
func ParseWithLen(b []byte, length int) (uint64, error) {
	if length != 1 && length != 2 && length != 4 && length != 8 {
		return 0, io.ErrUnexpectedEOF
	}
	if len(b) < length {
		return 0, io.EOF
	}
	val := uint64(b[0] & 0x3f)
	for i := 1; i < length; i++ {
		val = val<<8 + uint64(b[i])
	}
	return val, nil
}

// Len determines the number of bytes that would be needed to encode v.
func Len(v uint64) int {
	switch {
	case v <= maxVarInt1:
		return 1
	case v <= maxVarInt2:
		return 2
	case v <= maxVarInt4:
		return 4
	case v <= maxVarInt8:
		return 8
	default:
		panic("value doesn't fit into 62 bits")
	}
}

// Append appends v to b using the shortest possible encoding.
func Append(b []byte, v uint64) []byte {
	switch Len(v) {
	case 1:
		return append(b, uint8(v))
	case 2:
		return appendByteSequence(b, v, 2, 0x40)
	case 4:
		return appendByteSequence(b, v, 4, 0x80)
	case 8:
		return appendByteSequence(b, v, 8, 0xc0)
	default:
		panic("value doesn't fit into 62 bits")
	}
}

// AppendWithLen encodes v using exactly length bytes, forcing a
// (potentially non-minimal) width. length must be 1, 2, 4 or 8, and
// v must fit within the corresponding value range.
func AppendWithLen(b []byte, v uint64, length int) []byte {
	switch length {
	case 1:
		if v > maxVarInt1 {
			panic("value doesn't fit into 1 byte")
		}
		return append(b, uint8(v))
	case 2:
		if v > maxVarInt2 {
			panic("value doesn't fit into 2 bytes")
		}
		return appendByteSequence(b, v, 2, 0x40)
	case 4:
		if v > maxVarInt4 {
			panic("value doesn't fit into 4 bytes")
		}
		return appendByteSequence(b, v, 4, 0x80)
	case 8:
		if v > maxVarInt8 {
			panic("value doesn't fit into 8 bytes")
		}
		return appendByteSequence(b, v, 8, 0xc0)
	default:
		panic("invalid varint length")
	}
}

func appendByteSequence(b []byte, v uint64, length int, tag uint8) []byte {
	start := len(b)
	for i := 0; i < length; i++ {
		b = append(b, 0)
	}
	for i := length - 1; i > 0; i-- {
		b[start+i] = uint8(v)
		v >>= 8
	}
	b[start] = uint8(v) | tag
	return b
}
