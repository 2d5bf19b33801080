package wire

import (
	"github.com/danwt/quicpacket/internal/protocol"
	"github.com/danwt/quicpacket/quicvarint"
)

// appendLongHeaderPrefix writes the 1|1|TT|RR|PP first byte, the version,
// and the two length-prefixed connection IDs shared by the long header
// shapes (Version Negotiation writes its own prefix, see
// AppendVersionNegotiation). reservedAndPNLenBits occupies the low 4
// bits of the first byte (reserved bits in 0x0c,
// packet-number-length-minus-one in 0x03); it is 0 for Retry, which
// carries neither.
func appendLongHeaderPrefix(b []byte, typ protocol.PacketType, reservedAndPNLenBits byte, version protocol.Version, dest, src protocol.ConnectionID) []byte {
	firstByte := longHeaderFormFlag | longHeaderFixedBit | byte(typ)<<4 | reservedAndPNLenBits
	b = append(b, firstByte)
	b = append(b, byte(version>>24), byte(version>>16), byte(version>>8), byte(version))
	b = append(b, byte(dest.Len()))
	b = append(b, dest.Bytes()...)
	b = append(b, byte(src.Len()))
	b = append(b, src.Bytes()...)
	return b
}

// AppendRetry serializes a Retry packet: the long-header prefix, the
// original destination connection ID, and the retry token. Retry packets
// have no packet number and no AEAD-protected payload of their own (the
// "integrity tag" is produced by the caller's crypto collaborator over
// this exact byte sequence and appended separately).
func AppendRetry(b []byte, version protocol.Version, dest, src protocol.ConnectionID, origDestConnID protocol.ArbitraryLenConnectionID, token []byte) []byte {
	b = appendLongHeaderPrefix(b, protocol.PacketTypeRetry, 0, version, dest, src)
	b = append(b, byte(origDestConnID.Len()))
	b = append(b, origDestConnID.Bytes()...)
	b = append(b, token...)
	return b
}

// AppendVersionNegotiation serializes a Version Negotiation packet: a
// long-header-shaped prefix with version 0, followed by the list of
// versions the server supports.
func AppendVersionNegotiation(b []byte, randomByte byte, dest, src protocol.ConnectionID, supportedVersions []protocol.Version) []byte {
	firstByte := longHeaderFormFlag | (randomByte &^ longHeaderFormFlag)
	b = append(b, firstByte)
	b = append(b, 0, 0, 0, 0) // version
	b = append(b, byte(dest.Len()))
	b = append(b, dest.Bytes()...)
	b = append(b, byte(src.Len()))
	b = append(b, src.Bytes()...)
	for _, v := range supportedVersions {
		b = append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	return b
}

// appendVarint appends v as a QUIC variable-length integer.
func appendVarint(b []byte, v uint64) []byte {
	return quicvarint.Append(b, v)
}

// appendVarintBytes appends a varint length prefix followed by data,
// the encoding shared by the Initial token and every QUIC frame's
// length-prefixed byte fields.
func appendVarintBytes(b []byte, data []byte) []byte {
	b = quicvarint.Append(b, uint64(len(data)))
	return append(b, data...)
}

// HeaderLen returns the number of bytes an Initial/0-RTT/Handshake long
// header will occupy for a given packet number length, not including the
// payload. Used by callers sizing buffers or computing the Length field
// before the payload is known.
func HeaderLen(typ protocol.PacketType, dest, src protocol.ConnectionID, tokenLen int, length protocol.ByteCount, pnLen protocol.PacketNumberLen) protocol.ByteCount {
	l := protocol.ByteCount(1 + 4 + 1 + dest.Len() + 1 + src.Len())
	if typ == protocol.PacketTypeInitial {
		l += protocol.ByteCount(quicvarint.Len(uint64(tokenLen)) + tokenLen)
	}
	l += protocol.ByteCount(quicvarint.Len(uint64(length)))
	l += protocol.ByteCount(pnLen)
	return l
}
