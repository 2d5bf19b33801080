package quicpacket

import (
	"net"

	"github.com/danwt/quicpacket/internal/protocol"
)

// PacketType classifies a Packet more broadly than protocol.PacketType,
// which only covers the 2-bit long-header type field: it also
// distinguishes short-header (1-RTT), Version Negotiation, and
// Stateless Reset packets, none of which carry that field.
type PacketType uint8

const (
	PacketTypeInitial PacketType = iota
	PacketType0RTT
	PacketTypeHandshake
	PacketTypeRetry
	PacketType1RTT
	PacketTypeVersionNegotiation
	PacketTypeStatelessReset
	PacketTypeNotDetermined
)

func (t PacketType) String() string {
	switch t {
	case PacketTypeInitial:
		return "Initial"
	case PacketType0RTT:
		return "0-RTT"
	case PacketTypeHandshake:
		return "Handshake"
	case PacketTypeRetry:
		return "Retry"
	case PacketType1RTT:
		return "1-RTT"
	case PacketTypeVersionNegotiation:
		return "Version Negotiation"
	case PacketTypeStatelessReset:
		return "Stateless Reset"
	default:
		return "not determined"
	}
}

// Packet is the packet layer's view of a single QUIC datagram payload,
// in either direction: immutable once built or parsed. It exposes
// header accessors, the payload, the peer address the datagram arrived
// from or will be sent to, and the retransmittable/probing flags the
// caller that assembled the frames inside the payload set at build
// time; this layer never inspects the frames itself.
type Packet struct {
	remoteAddr net.Addr

	packetType      PacketType
	encryptionLevel protocol.EncryptionLevel

	destConnectionID protocol.ConnectionID
	srcConnectionID  protocol.ConnectionID

	packetNumber    protocol.PacketNumber
	packetNumberLen protocol.PacketNumberLen
	keyPhase        protocol.KeyPhaseBit

	data []byte

	retransmittable bool
	probing         bool
}

func (p *Packet) RemoteAddr() net.Addr { return p.remoteAddr }
func (p *Packet) PacketType() PacketType { return p.packetType }
func (p *Packet) EncryptionLevel() protocol.EncryptionLevel { return p.encryptionLevel }
func (p *Packet) DestConnectionID() protocol.ConnectionID { return p.destConnectionID }
func (p *Packet) SrcConnectionID() protocol.ConnectionID { return p.srcConnectionID }
func (p *Packet) PacketNumber() protocol.PacketNumber { return p.packetNumber }
func (p *Packet) PacketNumberLen() protocol.PacketNumberLen { return p.packetNumberLen }
func (p *Packet) KeyPhase() protocol.KeyPhaseBit { return p.keyPhase }
func (p *Packet) Data() []byte { return p.data }
func (p *Packet) IsRetransmittable() bool { return p.retransmittable }
func (p *Packet) IsProbing() bool { return p.probing }

// Length is the number of bytes of (decrypted, for inbound packets;
// plaintext, for outbound) payload the packet carries.
func (p *Packet) Length() protocol.ByteCount { return protocol.ByteCount(len(p.data)) }
