package quicpacket

import (
	"crypto/rand"
	"net"
	"time"

	"github.com/danwt/quicpacket/internal/handshake"
	"github.com/danwt/quicpacket/internal/protocol"
	"github.com/danwt/quicpacket/internal/qerr"
	"github.com/danwt/quicpacket/internal/utils"
	"github.com/danwt/quicpacket/internal/wire"
)

// CreationResult reports the outcome of packetFactory.Parse.
type CreationResult uint8

const (
	CreationSuccess CreationResult = iota
	CreationIgnored
	CreationNotReady
	CreationFailed
	CreationUnsupportedProtocolVersion
	CreationNoAvailablePacketNumberSpace
)

func (r CreationResult) String() string {
	switch r {
	case CreationSuccess:
		return "success"
	case CreationIgnored:
		return "ignored"
	case CreationNotReady:
		return "not ready"
	case CreationFailed:
		return "failed"
	case CreationUnsupportedProtocolVersion:
		return "unsupported protocol version"
	case CreationNoAvailablePacketNumberSpace:
		return "no available packet number space"
	default:
		return "unknown creation result"
	}
}

// ErrCreateNullPacket is a sentinel error standing in for a nullable
// "null packet" object: it names the case where Parse returns a nil
// *Packet together with CreationFailed/CreationNotReady
// /CreationUnsupportedProtocolVersion/CreationIgnored/CreationNoAvailablePacketNumberSpace.
// Parse itself returns only the CreationResult, never this error; it is
// available to callers that prefer an err-checking idiom over a
// result-code switch.
var ErrCreateNullPacket = errCreateNullPacket{}

type errCreateNullPacket struct{}

func (errCreateNullPacket) Error() string { return "quicpacket: no packet could be created" }

// packetFactory is the packet layer's single entry point for both
// directions: it holds the negotiated version, a non-owning reference
// to the crypto collaborator, and the three packet number generators,
// and turns plaintext payloads into protected wire bytes (builders) or
// wire bytes into decrypted Packets (Parse).
//
// SetVersion/SetLogger/SetLargestAcked/ResetPacketNumberSpace are
// configuration operations and must not run concurrently with build/Parse calls on the same
// factory; see the concurrency notes in packet_number_generator.go for
// what the generators' atomicity does and does not cover.
type packetFactory struct {
	version           protocol.Version
	supportedVersions []protocol.Version

	cs handshake.CryptoSetup

	shortHdrConnIDLen int

	generators packetNumberGenerators

	// largestAcked holds, per packet number space, the largest packet
	// number this connection has had acknowledged so far: the base used
	// both to pick an outbound packet's encoding length (section 4.3)
	// and to reconstruct an inbound truncated packet number (section
	// 4.3/4.5). protocol.InvalidPacketNumber until the first ACK.
	largestAcked [3]protocol.PacketNumber

	logger utils.Logger
}

// NewPacketFactory constructs a packetFactory for a connection that has
// negotiated (or is attempting) version v, with cs as its crypto
// collaborator and shortHdrConnIDLen as the fixed destination
// connection ID length short headers on this connection use.
func NewPacketFactory(cs handshake.CryptoSetup, v protocol.Version, supportedVersions []protocol.Version, shortHdrConnIDLen int) *packetFactory {
	f := &packetFactory{
		version:           v,
		supportedVersions: supportedVersions,
		cs:                cs,
		shortHdrConnIDLen: shortHdrConnIDLen,
		logger:            utils.DefaultLogger,
	}
	for i := range f.largestAcked {
		f.largestAcked[i] = protocol.InvalidPacketNumber
	}
	return f
}

// SetVersion changes the version used by outbound builders. It is a
// configuration operation; see the type doc.
func (f *packetFactory) SetVersion(v protocol.Version) { f.version = v }

// SetLogger overrides the default logger, mirroring utils.Logger's use
// elsewhere in the teacher for per-component logger injection.
func (f *packetFactory) SetLogger(l utils.Logger) { f.logger = l }

// SetLargestAcked records the largest acknowledged packet number for a
// packet number space, used as the decoding/encoding base per section
// 4.3. Like SetVersion, this is a configuration operation.
func (f *packetFactory) SetLargestAcked(space protocol.PacketNumberSpace, pn protocol.PacketNumber) {
	f.largestAcked[space] = pn
}

// ResetPacketNumberSpace zeroes a space's generator and its largest-acked
// base, used when that space's keys are discarded (Initial and
// Handshake keys are dropped once the handshake completes).
func (f *packetFactory) ResetPacketNumberSpace(space protocol.PacketNumberSpace) {
	f.generators.forSpace(space).reset()
	f.largestAcked[space] = protocol.InvalidPacketNumber
}

// IsReadyToCreateProtectedPacket asks the crypto collaborator whether
// 1-RTT keys are installed yet.
func (f *packetFactory) IsReadyToCreateProtectedPacket() bool {
	_, err := f.cs.Get1RTTSealer()
	return err == nil
}

func pnSpaceForLevel(level protocol.EncryptionLevel) protocol.PacketNumberSpace { return level.PNSpace() }

// buildLongHeaderPacket is shared by CreateInitialPacket,
// CreateHandshakePacket, and CreateZeroRTTPacket: every long-header
// packet type that carries a packet number follows the same assemble-
// then-seal-then-protect sequence (section 4.5, "Application").
func (f *packetFactory) buildLongHeaderPacket(typ protocol.PacketType, level protocol.EncryptionLevel, sealer handshake.LongHeaderSealer, dest, src protocol.ConnectionID, token, payload []byte, retransmittable, probing bool) (*Packet, []byte, error) {
	space := pnSpaceForLevel(level)
	gen := f.generators.forSpace(space)
	pn, err := gen.next()
	if err != nil {
		return nil, nil, err
	}
	pnLen := protocol.PacketNumberLengthForHeader(pn, f.largestAcked[space])

	eh := &wire.ExtendedHeader{
		Header: wire.Header{
			Type:             typ,
			Version:          f.version,
			DestConnectionID: dest,
			SrcConnectionID:  src,
			Token:            token,
			Length:           protocol.ByteCount(int(pnLen) + len(payload) + sealer.Overhead()),
		},
		PacketNumberLen: pnLen,
		PacketNumber:    pn,
	}
	raw, err := eh.Append(nil, f.version)
	if err != nil {
		return nil, nil, err
	}
	pnOffset := protocol.ByteCount(len(raw)) - protocol.ByteCount(pnLen)

	header := append([]byte{}, raw...)
	raw = sealer.Seal(raw, payload, pn, header)

	if err := wire.ApplyHeaderProtection(sealer, raw, pnOffset, pnLen); err != nil {
		return nil, nil, err
	}

	p := &Packet{
		packetType:       packetTypeFromLongHeader(typ),
		encryptionLevel:  level,
		destConnectionID: dest,
		srcConnectionID:  src,
		packetNumber:     pn,
		packetNumberLen:  pnLen,
		data:             payload,
		retransmittable:  retransmittable,
		probing:          probing,
	}
	return p, raw, nil
}

func packetTypeFromLongHeader(typ protocol.PacketType) PacketType {
	switch typ {
	case protocol.PacketTypeInitial:
		return PacketTypeInitial
	case protocol.PacketType0RTT:
		return PacketType0RTT
	case protocol.PacketTypeHandshake:
		return PacketTypeHandshake
	case protocol.PacketTypeRetry:
		return PacketTypeRetry
	default:
		return PacketTypeNotDetermined
	}
}

// CreateInitialPacket builds a protected Initial packet, the only long
// header type that carries a (possibly empty) token.
func (f *packetFactory) CreateInitialPacket(dest, src protocol.ConnectionID, token, payload []byte, retransmittable, probing bool) (*Packet, []byte, error) {
	sealer, err := f.cs.GetInitialSealer()
	if err != nil {
		return nil, nil, err
	}
	return f.buildLongHeaderPacket(protocol.PacketTypeInitial, protocol.EncryptionInitial, sealer, dest, src, token, payload, retransmittable, probing)
}

// CreateHandshakePacket builds a protected Handshake packet.
func (f *packetFactory) CreateHandshakePacket(dest, src protocol.ConnectionID, payload []byte, retransmittable, probing bool) (*Packet, []byte, error) {
	sealer, err := f.cs.GetHandshakeSealer()
	if err != nil {
		return nil, nil, err
	}
	return f.buildLongHeaderPacket(protocol.PacketTypeHandshake, protocol.EncryptionHandshake, sealer, dest, src, nil, payload, retransmittable, probing)
}

// CreateZeroRTTPacket builds a protected 0-RTT packet. 0-RTT shares the
// ApplicationData packet number space with 1-RTT.
func (f *packetFactory) CreateZeroRTTPacket(dest, src protocol.ConnectionID, payload []byte, retransmittable, probing bool) (*Packet, []byte, error) {
	sealer, err := f.cs.Get0RTTSealer()
	if err != nil {
		return nil, nil, err
	}
	return f.buildLongHeaderPacket(protocol.PacketType0RTT, protocol.Encryption0RTT, sealer, dest, src, nil, payload, retransmittable, probing)
}

// CreateProtectedPacket builds a 1-RTT (short header) packet.
func (f *packetFactory) CreateProtectedPacket(dest protocol.ConnectionID, payload []byte, retransmittable, probing bool) (*Packet, []byte, error) {
	sealer, err := f.cs.Get1RTTSealer()
	if err != nil {
		return nil, nil, err
	}
	space := protocol.PNSpaceApplicationData
	gen := f.generators.forSpace(space)
	pn, err := gen.next()
	if err != nil {
		return nil, nil, err
	}
	pnLen := protocol.PacketNumberLengthForHeader(pn, f.largestAcked[space])
	kp := sealer.KeyPhase()

	raw, err := wire.AppendShortHeader(nil, dest, pn, pnLen, kp)
	if err != nil {
		return nil, nil, err
	}
	pnOffset := protocol.ByteCount(len(raw)) - protocol.ByteCount(pnLen)

	header := append([]byte{}, raw...)
	raw = sealer.Seal(raw, payload, pn, header)

	if err := wire.ApplyHeaderProtection(sealer, raw, pnOffset, pnLen); err != nil {
		return nil, nil, err
	}

	p := &Packet{
		packetType:       PacketType1RTT,
		encryptionLevel:  protocol.Encryption1RTT,
		destConnectionID: dest,
		packetNumber:     pn,
		packetNumberLen:  pnLen,
		keyPhase:         kp,
		data:             payload,
		retransmittable:  retransmittable,
		probing:          probing,
	}
	return p, raw, nil
}

// CreateRetryPacket builds a Retry packet: no packet number, carrying
// the client's original destination connection ID and a new token. The
// AEAD integrity tag over these exact bytes is the crypto
// collaborator's job and is appended by the caller, per section 4.5's
// note that Retry's protection is a fixed integrity check, not a
// packet-number-keyed AEAD seal.
func (f *packetFactory) CreateRetryPacket(dest, src protocol.ConnectionID, origDestConnID protocol.ArbitraryLenConnectionID, token []byte) (*Packet, []byte) {
	raw := wire.AppendRetry(nil, f.version, dest, src, origDestConnID, token)
	p := &Packet{
		packetType:       PacketTypeRetry,
		destConnectionID: dest,
		srcConnectionID:  src,
	}
	return p, raw
}

// CreateVersionNegotiationPacket builds a Version Negotiation packet
// listing this factory's supported versions.
func (f *packetFactory) CreateVersionNegotiationPacket(dest, src protocol.ConnectionID) (*Packet, []byte, error) {
	var randomByte [1]byte
	if _, err := rand.Read(randomByte[:]); err != nil {
		return nil, nil, err
	}
	raw := wire.AppendVersionNegotiation(nil, randomByte[0], dest, src, f.supportedVersions)
	p := &Packet{
		packetType:       PacketTypeVersionNegotiation,
		destConnectionID: dest,
		srcConnectionID:  src,
	}
	return p, raw, nil
}

// statelessResetTokenLen is fixed by RFC 9000 section 10.3.
const statelessResetTokenLen = 20

// CreateStatelessResetPacket builds a datagram designed to be
// indistinguishable from a short header packet to an off-path
// observer: random bytes with the long-header form bit clear, ending in
// the given 20-byte stateless reset token. minLen is the size of the
// datagram that triggered this reset, used to size the random prefix so
// the reset is itself no larger (RFC 9000 section 10.3 recommends
// against a reset that reveals its own length pattern). The random
// prefix is never shorter than 5 bytes, so for minLen below 25 the
// reset is 25 bytes long, larger than the triggering datagram.
func (f *packetFactory) CreateStatelessResetPacket(token [statelessResetTokenLen]byte, minLen int) (*Packet, []byte, error) {
	const minRandomPrefix = 5
	n := minLen - statelessResetTokenLen
	if n < minRandomPrefix {
		n = minRandomPrefix
	}
	raw := make([]byte, n+statelessResetTokenLen)
	if _, err := rand.Read(raw[:n]); err != nil {
		return nil, nil, err
	}
	raw[0] = (raw[0] &^ 0x80) | 0x40 // clear long-header bit, set fixed bit
	copy(raw[n:], token[:])
	p := &Packet{packetType: PacketTypeStatelessReset}
	return p, raw, nil
}

// Parse implements the upper-layer parse operation (section 4.8): it
// classifies the datagram, parses its invariant fields, asks the
// crypto collaborator for the matching opener, removes header
// protection, reconstructs the full packet number, and AEAD-decrypts
// the payload. A nil *Packet is always accompanied by a non-Success
// CreationResult; see ErrCreateNullPacket for a sentinel error naming
// that case.
func (f *packetFactory) Parse(data []byte, from net.Addr) (*Packet, CreationResult) {
	if len(data) < 1 {
		return nil, CreationFailed
	}
	if !wire.IsLongHeaderPacket(data[0]) {
		return f.parseShortHeader(data, from)
	}
	return f.parseLongHeader(data, from)
}

func (f *packetFactory) parseLongHeader(data []byte, from net.Addr) (*Packet, CreationResult) {
	version, err := wire.ParseVersion(data)
	if err != nil {
		return nil, CreationFailed
	}
	if version == protocol.VersionNegotiation {
		hdr, err := wire.ParseHeader(data)
		if err != nil {
			return nil, CreationFailed
		}
		return &Packet{
			packetType:       PacketTypeVersionNegotiation,
			destConnectionID: hdr.DestConnectionID,
			srcConnectionID:  hdr.SrcConnectionID,
			remoteAddr:       from,
		}, CreationSuccess
	}
	if !protocol.IsSupportedVersion(f.supportedVersions, version) {
		return nil, CreationUnsupportedProtocolVersion
	}

	hdr, err := wire.ParseHeader(data)
	if err != nil {
		return nil, CreationFailed
	}

	if hdr.IsRetry() {
		return &Packet{
			packetType:       PacketTypeRetry,
			destConnectionID: hdr.DestConnectionID,
			srcConnectionID:  hdr.SrcConnectionID,
			remoteAddr:       from,
			data:             hdr.RetryToken,
		}, CreationSuccess
	}

	var level protocol.EncryptionLevel
	var opener handshake.LongHeaderOpener
	switch hdr.Type {
	case protocol.PacketTypeInitial:
		level = protocol.EncryptionInitial
		opener, err = f.cs.GetInitialOpener()
	case protocol.PacketTypeHandshake:
		level = protocol.EncryptionHandshake
		opener, err = f.cs.GetHandshakeOpener()
	case protocol.PacketType0RTT:
		level = protocol.Encryption0RTT
		opener, err = f.cs.Get0RTTOpener()
	default:
		return nil, CreationFailed
	}
	if err != nil {
		return nil, CreationNotReady
	}

	extHdr, parseErr := wire.RemoveLongHeaderProtection(opener, hdr, data)
	if parseErr != nil && parseErr != wire.ErrInvalidReservedBits {
		return nil, CreationFailed
	}

	space := level.PNSpace()
	extHdr.PacketNumber = protocol.DecodePacketNumber(extHdr.PacketNumberLen, f.largestAcked[space], extHdr.PacketNumber)

	hdrLen := extHdr.ParsedLen()
	decrypted, err := opener.Open(data[hdrLen:hdrLen], data[hdrLen:], extHdr.PacketNumber, data[:hdrLen])
	if err != nil {
		f.logger.Debugf("AEAD decryption failed for %s packet %d: %s", level, extHdr.PacketNumber, err)
		return nil, CreationFailed
	}
	if parseErr == wire.ErrInvalidReservedBits {
		f.logger.Debugf("dropping %s packet %d: %s", level, extHdr.PacketNumber, &qerr.TransportError{
			ErrorCode:    qerr.ProtocolViolation,
			ErrorMessage: "reserved bits set",
		})
		return nil, CreationFailed
	}
	if len(decrypted) == 0 {
		f.logger.Debugf("dropping %s packet %d: %s", level, extHdr.PacketNumber, &qerr.TransportError{
			ErrorCode:    qerr.ProtocolViolation,
			ErrorMessage: "empty packet",
		})
		return nil, CreationFailed
	}

	p := &Packet{
		packetType:       packetTypeFromLongHeader(hdr.Type),
		encryptionLevel:  level,
		destConnectionID: hdr.DestConnectionID,
		srcConnectionID:  hdr.SrcConnectionID,
		packetNumber:     extHdr.PacketNumber,
		packetNumberLen:  extHdr.PacketNumberLen,
		data:             decrypted,
		remoteAddr:       from,
	}
	return p, CreationSuccess
}

func (f *packetFactory) parseShortHeader(data []byte, from net.Addr) (*Packet, CreationResult) {
	opener, err := f.cs.Get1RTTOpener()
	if err != nil {
		return nil, CreationNotReady
	}

	destConnID, pn, pnLen, kp, parsedLen, parseErr := wire.RemoveShortHeaderProtection(opener, data, f.shortHdrConnIDLen)
	if parseErr != nil && parseErr != wire.ErrInvalidReservedBits {
		return nil, CreationFailed
	}

	space := protocol.PNSpaceApplicationData
	pn = protocol.DecodePacketNumber(pnLen, f.largestAcked[space], pn)

	decrypted, err := opener.Open(data[parsedLen:parsedLen], data[parsedLen:], time.Now(), pn, kp, data[:parsedLen])
	if err != nil {
		f.logger.Debugf("AEAD decryption failed for 1-RTT packet %d: %s", pn, err)
		return nil, CreationFailed
	}
	if parseErr == wire.ErrInvalidReservedBits {
		f.logger.Debugf("dropping 1-RTT packet %d: %s", pn, &qerr.TransportError{
			ErrorCode:    qerr.ProtocolViolation,
			ErrorMessage: "reserved bits set",
		})
		return nil, CreationFailed
	}
	if len(decrypted) == 0 {
		f.logger.Debugf("dropping 1-RTT packet %d: %s", pn, &qerr.TransportError{
			ErrorCode:    qerr.ProtocolViolation,
			ErrorMessage: "empty packet",
		})
		return nil, CreationFailed
	}

	p := &Packet{
		packetType:       PacketType1RTT,
		encryptionLevel:  protocol.Encryption1RTT,
		destConnectionID: destConnID,
		packetNumber:     pn,
		packetNumberLen:  pnLen,
		keyPhase:         kp,
		data:             decrypted,
		remoteAddr:       from,
	}
	return p, CreationSuccess
}
