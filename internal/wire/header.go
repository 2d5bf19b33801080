package wire

import (
	"errors"
	"fmt"
	"io"

	"github.com/danwt/quicpacket/internal/protocol"
	"github.com/danwt/quicpacket/quicvarint"
)

const (
	longHeaderFormFlag     = 0x80
	longHeaderFixedBit     = 0x40
	longHeaderTypeMask     = 0x30
	longHeaderReservedBits = 0x0c
)

// IsLongHeaderPacket reports whether the first byte of a packet marks it
// as a long header packet.
func IsLongHeaderPacket(firstByte byte) bool {
	return firstByte&longHeaderFormFlag > 0
}

// ParseVersion parses the version number at the start of a long header,
// without requiring that the rest of the header be present.
func ParseVersion(b []byte) (protocol.Version, error) {
	if len(b) < 5 {
		return 0, io.EOF
	}
	return protocol.Version(uint32(b[1])<<24 | uint32(b[2])<<16 | uint32(b[3])<<8 | uint32(b[4])), nil
}

// Is0RTTPacket says if a packet is a 0-RTT packet, based solely on the
// first byte and the version field, without fully parsing the header.
// Packets whose version is not in protocol.SupportedVersions are never
// reported as 0-RTT.
func Is0RTTPacket(b []byte) bool {
	if len(b) < 5 || !IsLongHeaderPacket(b[0]) {
		return false
	}
	v, err := ParseVersion(b)
	if err != nil || v == protocol.VersionNegotiation || !protocol.IsSupportedVersion(protocol.SupportedVersions, v) {
		return false
	}
	return protocol.PacketType((b[0]&longHeaderTypeMask)>>4) == protocol.PacketType0RTT
}

// Header holds the long header fields that can be read without removing
// header protection: everything except the packet number. The packet
// number (and its length, which is itself protected) is only available
// after header protection has been removed; see ExtendedHeader.
//
// A single Header value represents every long-header packet shape.
// Retry and Version Negotiation packets populate OrigDestConnectionID /
// SupportedVersions instead of Token/Length and have no packet number.
type Header struct {
	typeByte byte // the raw, still-protected first byte

	Type    protocol.PacketType
	Version protocol.Version

	DestConnectionID protocol.ConnectionID
	SrcConnectionID  protocol.ConnectionID

	Token  []byte              // Initial packets only
	Length protocol.ByteCount // Initial, 0-RTT, Handshake: bytes remaining (PN + payload + tag)

	// Retry only.
	OrigDestConnectionID protocol.ArbitraryLenConnectionID
	RetryToken           []byte

	// Version Negotiation only.
	SupportedVersions []protocol.Version

	// parsedLen is the number of bytes ParseHeader consumed, i.e. the
	// offset at which the (still length-unknown) packet number begins.
	// For Retry and Version Negotiation, which have no packet number, it
	// is the length of the entire packet.
	parsedLen protocol.ByteCount
}

// ParsedLen returns the number of bytes ParseHeader consumed: the offset
// of the packet number field (or, for Retry/VN, the whole packet).
func (h *Header) ParsedLen() protocol.ByteCount { return h.parsedLen }

// PacketNumberOffset names the same offset as ParsedLen from the
// perspective of header protection (§4.5): the sample used to remove
// header protection starts 4 bytes after this offset.
func (h *Header) PacketNumberOffset() protocol.ByteCount { return h.parsedLen }

// IsRetry reports whether this header is a Retry packet's header.
func (h *Header) IsRetry() bool { return h.Version != protocol.VersionNegotiation && h.Type == protocol.PacketTypeRetry }

// Clone returns a deep copy of h, safe to retain after the buffer
// ParseHeader read from is reused, e.g. by a caller queuing a header for
// retransmission bookkeeping.
func (h *Header) Clone() *Header {
	clone := *h
	clone.Token = append([]byte{}, h.Token...)
	clone.OrigDestConnectionID = append(protocol.ArbitraryLenConnectionID{}, h.OrigDestConnectionID...)
	clone.RetryToken = append([]byte{}, h.RetryToken...)
	clone.SupportedVersions = append([]protocol.Version{}, h.SupportedVersions...)
	return &clone
}

// ParseHeader parses a long header's invariant fields: version, the
// destination and source connection IDs, and (depending on packet type)
// the token, length, or Retry/Version-Negotiation trailer. It does not
// touch the packet number, which is still obscured by header protection
// at this point.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < 5 {
		return nil, io.EOF
	}
	if !IsLongHeaderPacket(data[0]) {
		return nil, errors.New("wire: not a long header packet")
	}
	h := &Header{typeByte: data[0]}
	v, err := ParseVersion(data)
	if err != nil {
		return nil, err
	}
	h.Version = v
	pos := protocol.ByteCount(5)

	pos, err = h.parseConnectionIDs(data, pos)
	if err != nil {
		return nil, err
	}

	if v == protocol.VersionNegotiation {
		return h.parseVersionNegotiationTrailer(data, pos)
	}

	h.Type = protocol.PacketType((data[0] & longHeaderTypeMask) >> 4)

	switch h.Type {
	case protocol.PacketTypeInitial:
		tokenLen, n, err := quicvarint.Parse(data[pos:])
		if err != nil {
			return nil, replaceUnexpectedEOF(err)
		}
		pos += protocol.ByteCount(n)
		if protocol.ByteCount(tokenLen) > protocol.ByteCount(len(data))-pos {
			return nil, io.EOF
		}
		h.Token = append([]byte{}, data[pos:pos+protocol.ByteCount(tokenLen)]...)
		pos += protocol.ByteCount(tokenLen)
	case protocol.PacketTypeRetry:
		return h.parseRetryTrailer(data, pos)
	}

	length, n, err := quicvarint.Parse(data[pos:])
	if err != nil {
		return nil, replaceUnexpectedEOF(err)
	}
	h.Length = protocol.ByteCount(length)
	pos += protocol.ByteCount(n)

	h.parsedLen = pos
	return h, nil
}

func (h *Header) parseConnectionIDs(data []byte, pos protocol.ByteCount) (protocol.ByteCount, error) {
	p, err := parseConnID(data, pos, &h.DestConnectionID)
	if err != nil {
		return 0, err
	}
	pos = p
	p, err = parseConnID(data, pos, &h.SrcConnectionID)
	if err != nil {
		return 0, err
	}
	return p, nil
}

func parseConnID(data []byte, pos protocol.ByteCount, dst *protocol.ConnectionID) (protocol.ByteCount, error) {
	if protocol.ByteCount(len(data)) < pos+1 {
		return 0, io.EOF
	}
	l := int(data[pos])
	if l > protocol.MaxConnIDLen {
		return 0, protocol.ErrInvalidConnectionIDLen
	}
	pos++
	if protocol.ByteCount(len(data)) < pos+protocol.ByteCount(l) {
		return 0, io.EOF
	}
	cid, err := protocol.ParseConnectionID(data[pos:], l)
	if err != nil {
		return 0, err
	}
	*dst = cid
	return pos + protocol.ByteCount(l), nil
}

func (h *Header) parseRetryTrailer(data []byte, pos protocol.ByteCount) (*Header, error) {
	if protocol.ByteCount(len(data)) < pos+1 {
		return nil, io.EOF
	}
	odcil := int(data[pos])
	pos++
	if protocol.ByteCount(len(data)) < pos+protocol.ByteCount(odcil) {
		return nil, io.EOF
	}
	odcid := make(protocol.ArbitraryLenConnectionID, odcil)
	copy(odcid, data[pos:pos+protocol.ByteCount(odcil)])
	pos += protocol.ByteCount(odcil)

	token := append([]byte{}, data[pos:]...)
	if len(token) == 0 {
		return nil, errors.New("wire: Retry packet has no token")
	}
	h.OrigDestConnectionID = odcid
	h.RetryToken = token
	h.parsedLen = protocol.ByteCount(len(data)) // Retry has no packet number
	return h, nil
}

func (h *Header) parseVersionNegotiationTrailer(data []byte, pos protocol.ByteCount) (*Header, error) {
	rest := data[pos:]
	if len(rest)%4 != 0 {
		return nil, errors.New("wire: Version Negotiation packet has invalid length")
	}
	versions := make([]protocol.Version, 0, len(rest)/4)
	for i := 0; i < len(rest); i += 4 {
		versions = append(versions, protocol.Version(uint32(rest[i])<<24|uint32(rest[i+1])<<16|uint32(rest[i+2])<<8|uint32(rest[i+3])))
	}
	h.SupportedVersions = versions
	h.parsedLen = protocol.ByteCount(len(data))
	return h, nil
}

func replaceUnexpectedEOF(err error) error {
	if err == io.ErrUnexpectedEOF {
		return io.EOF
	}
	return err
}

func (h *Header) String() string {
	if h.Version == protocol.VersionNegotiation {
		return "Version Negotiation"
	}
	return fmt.Sprintf("%s Header{DestConnectionID: %s, SrcConnectionID: %s, Version: %s}", h.Type, h.DestConnectionID, h.SrcConnectionID, h.Version)
}
