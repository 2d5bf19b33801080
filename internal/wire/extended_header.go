package wire

import (
	"io"

	"github.com/danwt/quicpacket/internal/protocol"
)

// ExtendedHeader is a Header plus its packet number, which is only
// recoverable once header protection has been removed. PacketNumber
// holds the truncated, on-wire value until the caller reconstructs the
// full packet number (protocol.DecodePacketNumber) using the packet
// number space's largest-acked estimate.
type ExtendedHeader struct {
	Header

	PacketNumberLen protocol.PacketNumberLen
	PacketNumber    protocol.PacketNumber

	parsedLen protocol.ByteCount
}

// ParsedLen returns the total number of bytes consumed, including the
// packet number, i.e. the offset where the payload begins.
func (h *ExtendedHeader) ParsedLen() protocol.ByteCount { return h.parsedLen }

// Clone returns a deep copy of h, safe to retain past the lifetime of
// the buffer it was parsed from.
func (h *ExtendedHeader) Clone() *ExtendedHeader {
	clone := *h
	clone.Header = *h.Header.Clone()
	return &clone
}

// ParseExtended reads the packet number following an already-parsed long
// header. data must have header protection already removed: the low bits
// of the first byte must carry the true packet-number length, and the
// packet-number bytes at h.ParsedLen() must be in the clear.
//
// If the reserved bits (0x0c in the first byte) are non-zero, parsing
// still completes and the caller gets a usable ExtendedHeader, but the
// returned error is ErrInvalidReservedBits; per RFC 9000 section 17.2,
// the caller must still treat the packet as invalid, but only after
// finishing AEAD decryption, to avoid a header-protection timing oracle.
func (h *Header) ParseExtended(data []byte) (*ExtendedHeader, error) {
	if h.Version == protocol.VersionNegotiation || h.Type == protocol.PacketTypeRetry {
		return nil, errNoPacketNumber
	}
	pos := h.parsedLen
	pnLen := protocol.PacketNumberLen(data[0]&0x03) + 1
	if protocol.ByteCount(len(data)) < pos+protocol.ByteCount(pnLen) {
		return nil, io.EOF
	}
	var pn protocol.PacketNumber
	for i := protocol.ByteCount(0); i < protocol.ByteCount(pnLen); i++ {
		pn = pn<<8 | protocol.PacketNumber(data[pos+i])
	}
	eh := &ExtendedHeader{
		Header:          *h,
		PacketNumberLen: pnLen,
		PacketNumber:    pn,
		parsedLen:       pos + protocol.ByteCount(pnLen),
	}
	if data[0]&longHeaderReservedBits != 0 {
		return eh, ErrInvalidReservedBits
	}
	return eh, nil
}

var errNoPacketNumber = errInvalidHeaderForPacketNumber{}

type errInvalidHeaderForPacketNumber struct{}

func (errInvalidHeaderForPacketNumber) Error() string {
	return "wire: this packet type has no packet number"
}

// Append serializes the full extended header (including the packet
// number) into b. Header.Length must already reflect the final,
// post-encryption size of PN + payload + AEAD tag; Append does not
// recompute it.
func (h *ExtendedHeader) Append(b []byte, version protocol.Version) ([]byte, error) {
	if h.PacketNumberLen < protocol.PacketNumberLen1 || h.PacketNumberLen > protocol.PacketNumberLen4 {
		return nil, ErrInvalidPacketNumberLen
	}
	reservedAndPNLenBits := byte(h.PacketNumberLen - 1)
	b = appendLongHeaderPrefix(b, h.Type, reservedAndPNLenBits, version, h.DestConnectionID, h.SrcConnectionID)
	if h.Type == protocol.PacketTypeInitial {
		b = appendVarintBytes(b, h.Token)
	}
	b = appendVarint(b, uint64(h.Length))
	b = append(b, protocol.EncodePacketNumber(h.PacketNumber, h.PacketNumberLen)...)
	return b, nil
}
