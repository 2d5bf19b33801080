package quicpacket

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/danwt/quicpacket/internal/handshake"
	"github.com/danwt/quicpacket/internal/protocol"
)

// mockCryptoSetup is a hand-written gomock double for handshake.CryptoSetup,
// in the same shape mockgen would produce; every method routes through
// ctrl.Call, so each test records expectations only for the calls it
// drives.
type mockCryptoSetup struct {
	ctrl *gomock.Controller
}

func newMockCryptoSetup(ctrl *gomock.Controller) *mockCryptoSetup {
	return &mockCryptoSetup{ctrl: ctrl}
}

func (m *mockCryptoSetup) GetInitialSealer() (handshake.LongHeaderSealer, error) {
	ret := m.ctrl.Call(m, "GetInitialSealer")
	sealer, _ := ret[0].(handshake.LongHeaderSealer)
	err, _ := ret[1].(error)
	return sealer, err
}

func (m *mockCryptoSetup) GetInitialOpener() (handshake.LongHeaderOpener, error) {
	ret := m.ctrl.Call(m, "GetInitialOpener")
	opener, _ := ret[0].(handshake.LongHeaderOpener)
	err, _ := ret[1].(error)
	return opener, err
}

func (m *mockCryptoSetup) GetHandshakeSealer() (handshake.LongHeaderSealer, error) {
	ret := m.ctrl.Call(m, "GetHandshakeSealer")
	sealer, _ := ret[0].(handshake.LongHeaderSealer)
	err, _ := ret[1].(error)
	return sealer, err
}

func (m *mockCryptoSetup) GetHandshakeOpener() (handshake.LongHeaderOpener, error) {
	ret := m.ctrl.Call(m, "GetHandshakeOpener")
	opener, _ := ret[0].(handshake.LongHeaderOpener)
	err, _ := ret[1].(error)
	return opener, err
}

func (m *mockCryptoSetup) Get0RTTSealer() (handshake.LongHeaderSealer, error) {
	ret := m.ctrl.Call(m, "Get0RTTSealer")
	sealer, _ := ret[0].(handshake.LongHeaderSealer)
	err, _ := ret[1].(error)
	return sealer, err
}

func (m *mockCryptoSetup) Get0RTTOpener() (handshake.LongHeaderOpener, error) {
	ret := m.ctrl.Call(m, "Get0RTTOpener")
	opener, _ := ret[0].(handshake.LongHeaderOpener)
	err, _ := ret[1].(error)
	return opener, err
}

func (m *mockCryptoSetup) Get1RTTSealer() (handshake.ShortHeaderSealer, error) {
	ret := m.ctrl.Call(m, "Get1RTTSealer")
	sealer, _ := ret[0].(handshake.ShortHeaderSealer)
	err, _ := ret[1].(error)
	return sealer, err
}

func (m *mockCryptoSetup) Get1RTTOpener() (handshake.ShortHeaderOpener, error) {
	ret := m.ctrl.Call(m, "Get1RTTOpener")
	opener, _ := ret[0].(handshake.ShortHeaderOpener)
	err, _ := ret[1].(error)
	return opener, err
}

var _ handshake.CryptoSetup = &mockCryptoSetup{}

func TestParseReturnsNotReadyWhenMockDeniesKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	cs := newMockCryptoSetup(ctrl)
	ctrl.RecordCall(cs, "GetInitialOpener").Return(nil, errKeysNotAvailable)

	f := NewPacketFactory(cs, protocol.Version1, protocol.SupportedVersions, 8)
	dest, src := testConnIDs()

	raw, err := buildBareInitialHeaderForTest(dest, src)
	require.NoError(t, err)

	_, result := f.Parse(raw, nil)
	require.Equal(t, CreationNotReady, result)
}

// buildBareInitialHeaderForTest serializes a syntactically valid Initial
// header (no real AEAD protection) so Parse gets far enough to ask the
// crypto collaborator for the Initial opener before this test's mock
// denies it.
func buildBareInitialHeaderForTest(dest, src protocol.ConnectionID) ([]byte, error) {
	cs := newFakeCryptoSetup()
	f := NewPacketFactory(cs, protocol.Version1, protocol.SupportedVersions, 8)
	payload := []byte("initial packet payload, padded to satisfy the min-size AEAD sample")
	_, raw, err := f.CreateInitialPacket(dest, src, nil, payload, true, false)
	return raw, err
}
