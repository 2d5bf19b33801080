package wire

import (
	"io"

	"github.com/danwt/quicpacket/internal/protocol"
)

const (
	shortHeaderFormFlag     = 0x80
	shortHeaderFixedBit     = 0x40
	shortHeaderSpinBit      = 0x20
	shortHeaderReservedBits = 0x18
	shortHeaderKeyPhaseBit  = 0x04
	shortHeaderTypeMask     = 0x1f // everything header protection covers
)

// IsShortHeaderPacket reports whether the first byte of a packet marks
// it as a short header (1-RTT) packet.
func IsShortHeaderPacket(firstByte byte) bool {
	return firstByte&shortHeaderFormFlag == 0
}

// ParseShortHeader parses a short header, whose connection ID length is
// not self-describing and must be supplied by the caller (it is fixed
// for the lifetime of a connection, negotiated out of band). Like
// Header.ParseExtended, it expects header protection to already be removed: the
// reserved bits, key phase, and packet number length in the first byte,
// along with the packet number bytes, must be in the clear.
//
// It returns the connection ID, the packet number's on-wire (truncated)
// value, its length, the key phase bit, and the offset at which the
// packet's payload begins.
func ParseShortHeader(data []byte, connIDLen int) (destConnID protocol.ConnectionID, pn protocol.PacketNumber, pnLen protocol.PacketNumberLen, kp protocol.KeyPhaseBit, parsedLen protocol.ByteCount, err error) {
	if len(data) < 1 || !IsShortHeaderPacket(data[0]) {
		return protocol.ConnectionID{}, 0, 0, 0, 0, errNotShortHeader
	}
	pos := protocol.ByteCount(1)
	if protocol.ByteCount(len(data)) < pos+protocol.ByteCount(connIDLen) {
		return protocol.ConnectionID{}, 0, 0, 0, 0, io.EOF
	}
	destConnID, err = protocol.ParseConnectionID(data[pos:], connIDLen)
	if err != nil {
		return protocol.ConnectionID{}, 0, 0, 0, 0, err
	}
	pos += protocol.ByteCount(connIDLen)

	kp = protocol.KeyPhaseBitFromBit(data[0] & shortHeaderKeyPhaseBit)
	pnLen = protocol.PacketNumberLen(data[0]&0x03) + 1
	if protocol.ByteCount(len(data)) < pos+protocol.ByteCount(pnLen) {
		return protocol.ConnectionID{}, 0, 0, 0, 0, io.EOF
	}
	for i := protocol.ByteCount(0); i < protocol.ByteCount(pnLen); i++ {
		pn = pn<<8 | protocol.PacketNumber(data[pos+i])
	}
	parsedLen = pos + protocol.ByteCount(pnLen)

	if data[0]&shortHeaderReservedBits != 0 {
		return destConnID, pn, pnLen, kp, parsedLen, ErrInvalidReservedBits
	}
	return destConnID, pn, pnLen, kp, parsedLen, nil
}

// AppendShortHeader serializes a short header: the form/fixed/spin/
// reserved/key-phase/pnLen first byte, the destination connection ID
// (unprefixed; its length is implicit), and the packet number.
func AppendShortHeader(b []byte, destConnID protocol.ConnectionID, pn protocol.PacketNumber, pnLen protocol.PacketNumberLen, kp protocol.KeyPhaseBit) ([]byte, error) {
	if pnLen < protocol.PacketNumberLen1 || pnLen > protocol.PacketNumberLen4 {
		return nil, ErrInvalidPacketNumberLen
	}
	firstByte := shortHeaderFixedBit | byte(pnLen-1)
	if kp.Bit() == 1 {
		firstByte |= shortHeaderKeyPhaseBit
	}
	b = append(b, firstByte)
	b = append(b, destConnID.Bytes()...)
	b = append(b, protocol.EncodePacketNumber(pn, pnLen)...)
	return b, nil
}

var errNotShortHeader = shortHeaderFormatError{}

type shortHeaderFormatError struct{}

func (shortHeaderFormatError) Error() string { return "wire: not a short header packet" }
