package protocol

import (
	"fmt"
	"math"
)

// Version is a QUIC version number.
type Version uint32

// VersionNegotiation is the version used to signal a Version Negotiation packet (version 0).
const VersionNegotiation Version = 0

// VersionUnknown is used in the internal representation for invalid or unknown versions.
const VersionUnknown Version = math.MaxUint32

// SupportedVersions is the list of versions this packet layer negotiates.
// A connection that needs a different version list passes it to
// NewPacketFactory; this is the default.
var SupportedVersions = []Version{Version1, Version2}

const (
	// Version1 is RFC 9000.
	Version1 Version = 0x1
	// Version2 is RFC 9369.
	Version2 Version = 0x6b3343cf
)

// IsSupportedVersion says if the version is present in the list of supported versions.
func IsSupportedVersion(supported []Version, v Version) bool {
	for _, s := range supported {
		if s == v {
			return true
		}
	}
	return false
}

func (vn Version) String() string {
	switch vn {
	case VersionNegotiation:
		return "Version Negotiation"
	case Version1:
		return "v1"
	case Version2:
		return "v2"
	default:
		return fmt.Sprintf("%#x", uint32(vn))
	}
}
