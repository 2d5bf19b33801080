package wire

import (
	"fmt"

	"github.com/danwt/quicpacket/internal/handshake"
	"github.com/danwt/quicpacket/internal/protocol"
)

// sampleOffset is the distance, in bytes, from the start of the packet
// number field to the start of the 16-byte ciphertext sample used to
// derive the header protection mask (RFC 9000 section 5.4.2).
const sampleOffset = 4

const sampleLen = 16

// RemoveLongHeaderProtection removes header protection from data in
// place, given a Header already parsed up to (but not including) the
// packet number, and returns the resulting ExtendedHeader. As with the
// unprotected-reserved-bits case, the header is fully parsed even when
// this fails with ErrInvalidReservedBits, so the caller can continue
// decryption without an attacker-visible timing difference.
func RemoveLongHeaderProtection(hp handshake.HeaderProtector, hdr *Header, data []byte) (*ExtendedHeader, error) {
	hdrLen := hdr.ParsedLen()
	if protocol.ByteCount(len(data)) < hdrLen+sampleOffset+sampleLen {
		return nil, fmt.Errorf("wire: packet too small to sample, expected at least %d bytes after the header, got %d", sampleOffset+sampleLen, protocol.ByteCount(len(data))-hdrLen)
	}
	origPNBytes := make([]byte, 4)
	copy(origPNBytes, data[hdrLen:hdrLen+4])

	hp.DecryptHeader(
		data[hdrLen+sampleOffset:hdrLen+sampleOffset+sampleLen],
		&data[0],
		data[hdrLen:hdrLen+4],
	)

	extHdr, parseErr := hdr.ParseExtended(data)
	if parseErr != nil && parseErr != ErrInvalidReservedBits {
		return nil, parseErr
	}
	if extHdr.PacketNumberLen != protocol.PacketNumberLen4 {
		copy(data[extHdr.ParsedLen():hdrLen+4], origPNBytes[int(extHdr.PacketNumberLen):])
	}
	return extHdr, parseErr
}

// RemoveShortHeaderProtection is RemoveLongHeaderProtection's short
// header counterpart. connIDLen is the out-of-band, connection-wide
// fixed destination connection ID length.
func RemoveShortHeaderProtection(hp handshake.HeaderProtector, data []byte, connIDLen int) (destConnID protocol.ConnectionID, pn protocol.PacketNumber, pnLen protocol.PacketNumberLen, kp protocol.KeyPhaseBit, parsedLen protocol.ByteCount, err error) {
	hdrLen := 1 + connIDLen
	if len(data) < hdrLen+sampleOffset+sampleLen {
		return protocol.ConnectionID{}, 0, 0, 0, 0, fmt.Errorf("wire: packet too small to sample, expected at least %d bytes after the header, got %d", sampleOffset+sampleLen, len(data)-hdrLen)
	}
	origPNBytes := make([]byte, 4)
	copy(origPNBytes, data[hdrLen:hdrLen+4])

	hp.DecryptHeader(
		data[hdrLen+sampleOffset:hdrLen+sampleOffset+sampleLen],
		&data[0],
		data[hdrLen:hdrLen+4],
	)

	destConnID, pn, pnLen, kp, parsedLen, parseErr := ParseShortHeader(data, connIDLen)
	if parseErr != nil && parseErr != ErrInvalidReservedBits {
		return destConnID, pn, pnLen, kp, parsedLen, parseErr
	}
	if pnLen != protocol.PacketNumberLen4 {
		copy(data[parsedLen:hdrLen+4], origPNBytes[int(pnLen):])
	}
	return destConnID, pn, pnLen, kp, parsedLen, parseErr
}

// ApplyHeaderProtection applies header protection in place to an
// already-serialized packet (long or short header), given the offset
// of its packet number field and the field's length. It is the
// serialize-side mirror of RemoveLongHeaderProtection /
// RemoveShortHeaderProtection: the sample is always taken as if the
// packet number were 4 bytes long, per RFC 9000 section 5.4.2, but only
// the pnLen packet number bytes are masked, so the payload bytes that
// follow stay untouched.
func ApplyHeaderProtection(hp handshake.HeaderProtector, data []byte, pnOffset protocol.ByteCount, pnLen protocol.PacketNumberLen) error {
	if protocol.ByteCount(len(data)) < pnOffset+4+sampleLen {
		// Padding short packets out to allow sampling 4 bytes past the
		// packet number is the caller's responsibility (RFC 9000
		// section 17.2.2.2); this is reachable only for malformed
		// inputs to this package's own tests.
		return fmt.Errorf("wire: packet too small to sample, expected at least %d bytes after the packet number offset, got %d", 4+sampleLen, protocol.ByteCount(len(data))-pnOffset)
	}
	pnBytes := data[pnOffset : pnOffset+protocol.ByteCount(pnLen)]
	hp.EncryptHeader(data[pnOffset+4:pnOffset+4+sampleLen], &data[0], pnBytes)
	return nil
}
