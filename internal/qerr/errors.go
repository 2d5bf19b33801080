// Package qerr defines the transport and application error types QUIC
// endpoints exchange in CONNECTION_CLOSE frames, and that the packet
// layer returns when it rejects a packet outright.
package qerr

import "fmt"

// TransportErrorCode is an error code defined by the QUIC transport
// specification (RFC 9000 section 20.1).
type TransportErrorCode uint64

const (
	NoError                   TransportErrorCode = 0x0
	InternalError             TransportErrorCode = 0x1
	ConnectionRefused         TransportErrorCode = 0x2
	FlowControlError          TransportErrorCode = 0x3
	StreamLimitError          TransportErrorCode = 0x4
	StreamStateError          TransportErrorCode = 0x5
	FinalSizeError            TransportErrorCode = 0x6
	FrameEncodingError        TransportErrorCode = 0x7
	TransportParameterError   TransportErrorCode = 0x8
	ConnectionIDLimitError    TransportErrorCode = 0x9
	ProtocolViolation         TransportErrorCode = 0xa
	InvalidToken              TransportErrorCode = 0xb
	ApplicationErrorErrorCode TransportErrorCode = 0xc
	CryptoBufferExceeded      TransportErrorCode = 0xd
	KeyUpdateError            TransportErrorCode = 0xe
	AEADLimitReached          TransportErrorCode = 0xf
	NoViablePath              TransportErrorCode = 0x10
)

func (c TransportErrorCode) String() string {
	switch c {
	case NoError:
		return "NO_ERROR"
	case InternalError:
		return "INTERNAL_ERROR"
	case ConnectionRefused:
		return "CONNECTION_REFUSED"
	case FlowControlError:
		return "FLOW_CONTROL_ERROR"
	case StreamLimitError:
		return "STREAM_LIMIT_ERROR"
	case StreamStateError:
		return "STREAM_STATE_ERROR"
	case FinalSizeError:
		return "FINAL_SIZE_ERROR"
	case FrameEncodingError:
		return "FRAME_ENCODING_ERROR"
	case TransportParameterError:
		return "TRANSPORT_PARAMETER_ERROR"
	case ConnectionIDLimitError:
		return "CONNECTION_ID_LIMIT_ERROR"
	case ProtocolViolation:
		return "PROTOCOL_VIOLATION"
	case InvalidToken:
		return "INVALID_TOKEN"
	case ApplicationErrorErrorCode:
		return "APPLICATION_ERROR"
	case CryptoBufferExceeded:
		return "CRYPTO_BUFFER_EXCEEDED"
	case KeyUpdateError:
		return "KEY_UPDATE_ERROR"
	case AEADLimitReached:
		return "AEAD_LIMIT_REACHED"
	case NoViablePath:
		return "NO_VIABLE_PATH"
	default:
		return fmt.Sprintf("unknown error code: 0x%x", uint64(c))
	}
}

// TransportError is sent in a CONNECTION_CLOSE frame of type 0x1c, or
// returned by the packet layer itself when it refuses to hand a packet
// up the stack (e.g. an empty decrypted payload).
type TransportError struct {
	ErrorCode    TransportErrorCode
	FrameType    uint64 // the frame that caused the error, if any
	ErrorMessage string
}

func (e *TransportError) Error() string {
	if e.ErrorMessage == "" {
		return e.ErrorCode.String()
	}
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.ErrorMessage)
}

// ApplicationErrorCode is an application-defined error code sent in a
// CONNECTION_CLOSE frame of type 0x1d. The transport itself attaches no
// meaning to the value.
type ApplicationErrorCode uint64

// ApplicationError is sent in a CONNECTION_CLOSE frame of type 0x1d.
type ApplicationError struct {
	ErrorCode    ApplicationErrorCode
	ErrorMessage string
}

func (e *ApplicationError) Error() string {
	if e.ErrorMessage == "" {
		return fmt.Sprintf("Application error 0x%x", uint64(e.ErrorCode))
	}
	return fmt.Sprintf("Application error 0x%x: %s", uint64(e.ErrorCode), e.ErrorMessage)
}
