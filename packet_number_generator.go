package quicpacket

import (
	"sync/atomic"

	"github.com/danwt/quicpacket/internal/protocol"
)

// ErrPacketNumberSpaceExhausted is returned by packetNumberGenerator.next
// once a packet number space's counter reaches the largest packet
// number QUIC allows (2^62 - 1). A connection that hits this must be
// closed; there is no valid next packet number to allocate.
var ErrPacketNumberSpaceExhausted = errNoPacketNumberSpace{}

type errNoPacketNumberSpace struct{}

func (errNoPacketNumberSpace) Error() string { return "packet number space exhausted" }

// packetNumberGenerator is a single packet-number space's monotonic
// counter. next atomically returns the packet number to use and
// advances the counter, so concurrent senders on the same connection
// never reuse a value; see the factory-level concurrency notes on
// packetFactory for what this atomicity does and does not guarantee.
type packetNumberGenerator struct {
	next_ int64 // accessed only via sync/atomic
}

func (g *packetNumberGenerator) next() (protocol.PacketNumber, error) {
	v := atomic.AddInt64(&g.next_, 1) - 1
	if protocol.PacketNumber(v) > protocol.MaxPacketNumber {
		return protocol.InvalidPacketNumber, ErrPacketNumberSpaceExhausted
	}
	return protocol.PacketNumber(v), nil
}

// reset sets the counter back to 0, used when Initial or Handshake keys
// for this packet number space are discarded.
func (g *packetNumberGenerator) reset() {
	atomic.StoreInt64(&g.next_, 0)
}

// peek returns the next value next() would hand out, without consuming
// it. Useful for tests and for logging the value a generator is about
// to exhaust.
func (g *packetNumberGenerator) peek() protocol.PacketNumber {
	return protocol.PacketNumber(atomic.LoadInt64(&g.next_))
}

// packetNumberGenerators holds the three independent per-packet-number-
// space counters a connection needs (RFC 9000 section 12.3).
type packetNumberGenerators struct {
	initial     packetNumberGenerator
	handshake   packetNumberGenerator
	application packetNumberGenerator
}

func (g *packetNumberGenerators) forSpace(space protocol.PacketNumberSpace) *packetNumberGenerator {
	switch space {
	case protocol.PNSpaceInitial:
		return &g.initial
	case protocol.PNSpaceHandshake:
		return &g.handshake
	case protocol.PNSpaceApplicationData:
		return &g.application
	default:
		panic("quicpacket: unknown packet number space")
	}
}
