package protocol

// PacketType is the packet type carried in bits 4-5 of a long header's
// first byte. The numeric values are the wire values from RFC 9000
// section 17.2: Initial=0, 0-RTT=1, Handshake=2, Retry=3.
type PacketType uint8

const (
	// PacketTypeInitial is the packet type of an Initial packet.
	PacketTypeInitial PacketType = iota
	// PacketType0RTT is the packet type of a 0-RTT packet.
	PacketType0RTT
	// PacketTypeHandshake is the packet type of a Handshake packet.
	PacketTypeHandshake
	// PacketTypeRetry is the packet type of a Retry packet.
	PacketTypeRetry
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
	default:
		return "invalid packet type"
	}
}
