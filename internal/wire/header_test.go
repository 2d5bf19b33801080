package wire

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danwt/quicpacket/internal/protocol"
)

func TestIsLongHeaderPacket(t *testing.T) {
	require.True(t, IsLongHeaderPacket(0x80))
	require.False(t, IsLongHeaderPacket(0x40))
}

func TestParseVersion(t *testing.T) {
	b := make([]byte, 5)
	b[0] = 0x80
	binary.BigEndian.PutUint32(b[1:], uint32(protocol.Version1))
	v, err := ParseVersion(b)
	require.NoError(t, err)
	require.Equal(t, protocol.Version1, v)
}

func TestParseVersionTooShort(t *testing.T) {
	_, err := ParseVersion([]byte{0x80, 0, 0})
	require.ErrorIs(t, err, io.EOF)
}

func TestIs0RTTPacket(t *testing.T) {
	b := make([]byte, 5)
	b[0] = 0x80 | byte(protocol.PacketType0RTT)<<4
	binary.BigEndian.PutUint32(b[1:], uint32(protocol.Version1))
	require.True(t, Is0RTTPacket(b))
	require.False(t, Is0RTTPacket(b[:4]))                     // too short
	require.False(t, Is0RTTPacket([]byte{b[0], 1, 2, 3, 4}))  // unknown version
	require.False(t, Is0RTTPacket([]byte{0x80 | 0x40, b[1], b[2], b[3], b[4]}))

	vn := make([]byte, 5)
	vn[0] = 0x80 | byte(protocol.PacketType0RTT)<<4
	require.False(t, Is0RTTPacket(vn)) // version 0 is Version Negotiation, not 0-RTT
}

func dcid(b []byte) protocol.ConnectionID {
	c, err := protocol.ParseConnectionID(b, len(b))
	if err != nil {
		panic(err)
	}
	return c
}

func TestInitialHeaderRoundTrip(t *testing.T) {
	dest := dcid([]byte{0xde, 0xad, 0xbe, 0xef})
	src := dcid([]byte{1, 2, 3, 4, 5, 6})
	eh := &ExtendedHeader{
		Header: Header{
			Type:             protocol.PacketTypeInitial,
			Version:          protocol.Version1,
			DestConnectionID: dest,
			SrcConnectionID:  src,
			Token:            []byte("a token"),
			Length:           1000,
		},
		PacketNumberLen: protocol.PacketNumberLen2,
		PacketNumber:    0x1337,
	}
	b, err := eh.Append(nil, protocol.Version1)
	require.NoError(t, err)

	hdr, err := ParseHeader(b)
	require.NoError(t, err)
	require.Equal(t, protocol.PacketTypeInitial, hdr.Type)
	require.Equal(t, protocol.Version1, hdr.Version)
	require.True(t, hdr.DestConnectionID.Equal(dest))
	require.True(t, hdr.SrcConnectionID.Equal(src))
	require.Equal(t, []byte("a token"), hdr.Token)
	require.Equal(t, protocol.ByteCount(1000), hdr.Length)

	parsedExtHdr, err := hdr.ParseExtended(b)
	require.NoError(t, err)
	require.Equal(t, protocol.PacketNumberLen2, parsedExtHdr.PacketNumberLen)
	require.Equal(t, protocol.PacketNumber(0x1337), parsedExtHdr.PacketNumber)
	require.Equal(t, protocol.ByteCount(len(b)), parsedExtHdr.ParsedLen())
}

func TestHandshakeHeaderHasNoToken(t *testing.T) {
	eh := &ExtendedHeader{
		Header: Header{
			Type:             protocol.PacketTypeHandshake,
			Version:          protocol.Version1,
			DestConnectionID: dcid([]byte{1, 2, 3, 4}),
			SrcConnectionID:  dcid([]byte{5, 6, 7, 8}),
			Length:           500,
		},
		PacketNumberLen: protocol.PacketNumberLen1,
		PacketNumber:    7,
	}
	b, err := eh.Append(nil, protocol.Version1)
	require.NoError(t, err)
	hdr, err := ParseHeader(b)
	require.NoError(t, err)
	require.Empty(t, hdr.Token)
}

func TestParseConnIDTooLong(t *testing.T) {
	b := make([]byte, 5)
	b[0] = 0x80
	binary.BigEndian.PutUint32(b[1:], uint32(protocol.Version1))
	b = append(b, 21) // dest conn id len, exceeds MaxConnIDLen
	b = append(b, make([]byte, 21)...)
	_, err := ParseHeader(b)
	require.ErrorIs(t, err, protocol.ErrInvalidConnectionIDLen)
}

func TestParseHeaderTruncated(t *testing.T) {
	eh := &ExtendedHeader{
		Header: Header{
			Type:             protocol.PacketTypeHandshake,
			Version:          protocol.Version1,
			DestConnectionID: dcid([]byte{0xde, 0xca, 0xfb, 0xad, 0x13, 0x37}),
			SrcConnectionID:  dcid([]byte{1, 2, 3, 4, 5, 6, 8, 9}),
			Length:           100,
		},
		PacketNumberLen: protocol.PacketNumberLen2,
	}
	full, err := eh.Append(nil, protocol.Version1)
	require.NoError(t, err)
	data := full[:len(full)-2] // cut the packet number

	for i := 0; i < len(data); i++ {
		_, err := ParseHeader(data[:i])
		require.Error(t, err)
	}
	hdr, err := ParseHeader(data)
	require.NoError(t, err)
	require.True(t, hdr.DestConnectionID.Equal(eh.DestConnectionID))
}

func TestRetryHeaderRoundTrip(t *testing.T) {
	dest := dcid([]byte{1, 2, 3, 4})
	src := dcid([]byte{5, 6, 7, 8})
	orig := protocol.ArbitraryLenConnectionID([]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee})
	token := []byte("retry token bytes")

	b := AppendRetry(nil, protocol.Version1, dest, src, orig, token)
	hdr, err := ParseHeader(b)
	require.NoError(t, err)
	require.True(t, hdr.IsRetry())
	require.True(t, hdr.DestConnectionID.Equal(dest))
	require.True(t, hdr.SrcConnectionID.Equal(src))
	require.Equal(t, []byte(orig), []byte(hdr.OrigDestConnectionID))
	require.Equal(t, token, hdr.RetryToken)
}

func TestRetryHeaderRequiresToken(t *testing.T) {
	dest := dcid([]byte{1, 2, 3, 4})
	src := dcid([]byte{5, 6, 7, 8})
	orig := protocol.ArbitraryLenConnectionID([]byte{0xaa})
	b := AppendRetry(nil, protocol.Version1, dest, src, orig, nil)
	_, err := ParseHeader(b)
	require.Error(t, err)
}

func TestVersionNegotiationRoundTrip(t *testing.T) {
	dest := dcid([]byte{1, 2, 3, 4})
	src := dcid([]byte{5, 6, 7, 8})
	versions := []protocol.Version{protocol.Version1, protocol.Version2}

	b := AppendVersionNegotiation(nil, 0x55, dest, src, versions)
	require.True(t, IsLongHeaderPacket(b[0]))

	hdr, err := ParseHeader(b)
	require.NoError(t, err)
	require.Equal(t, protocol.VersionNegotiation, hdr.Version)
	require.True(t, hdr.DestConnectionID.Equal(dest))
	require.True(t, hdr.SrcConnectionID.Equal(src))
	require.Equal(t, versions, hdr.SupportedVersions)
}

func TestVersionNegotiationInvalidLength(t *testing.T) {
	dest := dcid([]byte{1, 2, 3, 4})
	src := dcid([]byte{5, 6, 7, 8})
	b := AppendVersionNegotiation(nil, 0x55, dest, src, []protocol.Version{protocol.Version1})
	_, err := ParseHeader(append(b, 0x01)) // one extra byte, not a multiple of 4
	require.Error(t, err)
}

func TestHeaderString(t *testing.T) {
	hdr := &Header{
		Type:             protocol.PacketTypeInitial,
		Version:          protocol.Version1,
		DestConnectionID: dcid([]byte{1, 2, 3, 4}),
		SrcConnectionID:  dcid([]byte{5, 6, 7, 8}),
	}
	require.Contains(t, hdr.String(), "Initial")

	vnHdr := &Header{Version: protocol.VersionNegotiation}
	require.Equal(t, "Version Negotiation", vnHdr.String())
}

func TestHeaderClone(t *testing.T) {
	hdr := &Header{
		Type:             protocol.PacketTypeInitial,
		Version:          protocol.Version1,
		DestConnectionID: dcid([]byte{1, 2, 3, 4}),
		SrcConnectionID:  dcid([]byte{5, 6, 7, 8}),
		Token:            []byte("a token"),
	}
	clone := hdr.Clone()
	require.Equal(t, hdr.Type, clone.Type)
	require.True(t, clone.DestConnectionID.Equal(hdr.DestConnectionID))
	require.Equal(t, hdr.Token, clone.Token)

	clone.Token[0] = 'X'
	require.NotEqual(t, hdr.Token[0], clone.Token[0], "Clone must deep-copy Token")
}

func TestExtendedHeaderClone(t *testing.T) {
	eh := &ExtendedHeader{
		Header: Header{
			Type:             protocol.PacketTypeInitial,
			Version:          protocol.Version1,
			DestConnectionID: dcid([]byte{1, 2, 3, 4}),
			SrcConnectionID:  dcid([]byte{5, 6, 7, 8}),
			Token:            []byte("a token"),
		},
		PacketNumberLen: protocol.PacketNumberLen2,
		PacketNumber:    0x1337,
	}
	clone := eh.Clone()
	require.Equal(t, eh.PacketNumber, clone.PacketNumber)
	require.Equal(t, eh.Token, clone.Token)

	clone.Token[0] = 'X'
	require.NotEqual(t, eh.Token[0], clone.Token[0], "Clone must deep-copy the embedded Header")
}
