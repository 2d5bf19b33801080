package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// MaxConnIDLen is the maximum length of a QUIC connection ID.
const MaxConnIDLen = 20

// ErrInvalidConnectionIDLen is returned when a connection ID length byte on
// the wire exceeds MaxConnIDLen.
var ErrInvalidConnectionIDLen = errors.New("invalid connection ID length")

// ConnectionID is a QUIC connection ID, 0 to MaxConnIDLen bytes long.
type ConnectionID struct {
	b [MaxConnIDLen]byte
	l uint8
}

// ZeroConnectionID is the distinguished zero-length connection ID, used
// when no connection ID is present (e.g. a short header's implicit SCID).
var ZeroConnectionID = ConnectionID{}

// ParseConnectionID reads a connection ID of the given length from the
// front of b. It panics if l exceeds MaxConnIDLen; callers must validate
// lengths read from the wire before calling this.
func ParseConnectionID(b []byte, l int) (ConnectionID, error) {
	if l > MaxConnIDLen {
		panic("invalid length")
	}
	if len(b) < l {
		return ConnectionID{}, io.EOF
	}
	var c ConnectionID
	copy(c.b[:], b[:l])
	c.l = uint8(l)
	return c, nil
}

// GenerateConnectionIDFromBytes creates a connection ID whose length is
// len(b), without a length prefix on the wire (used by callers that
// already know the length out of band, e.g. short headers). It panics
// if len(b) exceeds MaxConnIDLen.
func GenerateConnectionIDFromBytes(b []byte) ConnectionID {
	if len(b) > MaxConnIDLen {
		panic("invalid length")
	}
	var c ConnectionID
	copy(c.b[:], b)
	c.l = uint8(len(b))
	return c
}

// Len returns the length of the connection ID in bytes.
func (c ConnectionID) Len() int { return int(c.l) }

// Bytes returns the byte representation of the connection ID.
func (c ConnectionID) Bytes() []byte { return append([]byte{}, c.b[:c.l]...) }

// Equal returns true iff the two connection IDs have the same length and bytes.
func (c ConnectionID) Equal(other ConnectionID) bool {
	return c.l == other.l && bytes.Equal(c.b[:c.l], other.b[:other.l])
}

func (c ConnectionID) String() string {
	if c.l == 0 {
		return "(empty)"
	}
	return fmt.Sprintf("%x", c.b[:c.l])
}

// ArbitraryLenConnectionID is a connection ID that is not bound by
// MaxConnIDLen, used only for Retry packets' Original Destination
// Connection ID field, which the invariants spec allows to exceed 20
// bytes when derived from a raw datagram of unknown provenance.
type ArbitraryLenConnectionID []byte

// Len returns the length of the connection ID in bytes.
func (c ArbitraryLenConnectionID) Len() int { return len(c) }

// Bytes returns the byte representation.
func (c ArbitraryLenConnectionID) Bytes() []byte { return []byte(c) }

func (c ArbitraryLenConnectionID) String() string {
	if len(c) == 0 {
		return "(empty)"
	}
	return fmt.Sprintf("%x", []byte(c))
}
