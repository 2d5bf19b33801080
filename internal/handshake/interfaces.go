// Package handshake declares the capability interfaces the packet layer
// needs from a TLS/crypto collaborator: deriving and applying header
// protection, and sealing/opening the AEAD-protected payload. Handshake
// negotiation, key derivation, and the AEAD/TLS implementations
// themselves live outside this module; here only the shapes the packet
// layer calls through are defined.
package handshake

import (
	"time"

	"github.com/danwt/quicpacket/internal/protocol"
)

// HeaderProtector removes or applies header protection on a single
// packet. sample is the 16-byte ciphertext sample taken 4 bytes after
// the start of the (still-unknown-length) packet number field;
// firstByte and pnBytes are mutated in place. DecryptHeader is passed 4
// bytes (the maximum packet number length), since the true length is
// still protected; callers that later learn a shorter true length
// restore the high bytes themselves. EncryptHeader is passed exactly
// the packet number's encoded bytes.
type HeaderProtector interface {
	DecryptHeader(sample []byte, firstByte *byte, pnBytes []byte)
	EncryptHeader(sample []byte, firstByte *byte, pnBytes []byte)
}

// LongHeaderOpener removes header protection and decrypts the payload
// of an Initial, 0-RTT, or Handshake packet.
type LongHeaderOpener interface {
	HeaderProtector
	// DecodePacketNumber reconstructs the full packet number from the
	// truncated on-wire value, using this packet number space's
	// largest-acked packet number as the decoding base.
	DecodePacketNumber(truncated protocol.PacketNumber, pnLen protocol.PacketNumberLen) protocol.PacketNumber
	Open(dst, src []byte, pn protocol.PacketNumber, associatedData []byte) ([]byte, error)
}

// LongHeaderSealer applies header protection and encrypts the payload
// of an Initial, 0-RTT, or Handshake packet.
type LongHeaderSealer interface {
	HeaderProtector
	Seal(dst, src []byte, pn protocol.PacketNumber, associatedData []byte) []byte
	// Overhead is the number of bytes the AEAD tag adds to the payload.
	Overhead() int
}

// ShortHeaderOpener removes header protection and decrypts the payload
// of a 1-RTT packet. Unlike the long-header openers, it also verifies
// the key phase bit against the currently expected phase and handles
// key updates, so it takes the packet's receive time.
type ShortHeaderOpener interface {
	HeaderProtector
	DecodePacketNumber(truncated protocol.PacketNumber, pnLen protocol.PacketNumberLen) protocol.PacketNumber
	Open(dst, src []byte, rcvTime time.Time, pn protocol.PacketNumber, kp protocol.KeyPhaseBit, associatedData []byte) ([]byte, error)
}

// ShortHeaderSealer applies header protection and encrypts the payload
// of a 1-RTT packet, and reports the key phase it sealed with.
type ShortHeaderSealer interface {
	HeaderProtector
	Seal(dst, src []byte, pn protocol.PacketNumber, associatedData []byte) []byte
	Overhead() int
	KeyPhase() protocol.KeyPhaseBit
}

// CryptoSetup is the packet layer's view of the TLS handshake: a source
// of sealers and openers for whichever encryption levels have had their
// keys derived so far. Each getter returns an error (defined by the
// crypto collaborator) if that encryption level's keys are not yet
// available, e.g. before ServerHello is processed.
type CryptoSetup interface {
	GetInitialSealer() (LongHeaderSealer, error)
	GetInitialOpener() (LongHeaderOpener, error)

	GetHandshakeSealer() (LongHeaderSealer, error)
	GetHandshakeOpener() (LongHeaderOpener, error)

	Get0RTTSealer() (LongHeaderSealer, error)
	Get0RTTOpener() (LongHeaderOpener, error)

	Get1RTTSealer() (ShortHeaderSealer, error)
	Get1RTTOpener() (ShortHeaderOpener, error)
}
