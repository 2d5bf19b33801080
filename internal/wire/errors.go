package wire

import "errors"

// ErrInvalidReservedBits is returned by ParseExtended/ParseShortHeader when
// the RFC-reserved bits are non-zero after header protection has been
// removed. Per RFC 9000 section 17.2, parsing continues regardless (to
// avoid a timing side channel that would leak header-protection
// correctness), and the packet is discarded by the caller only after the
// rest of the header has been parsed.
var ErrInvalidReservedBits = errors.New("not all reserved bits are 0")

// ErrUnsupportedVersion names a long header whose version is set but not
// found in the list of versions the caller supports. The parsers in this
// package do not check versions against such a list and do not return it.
var ErrUnsupportedVersion = errors.New("unsupported version")

// ErrInvalidPacketNumberLen is a programming error: building a header
// with a packet number length outside {1,2,3,4}.
var ErrInvalidPacketNumberLen = errors.New("invalid packet number length")
