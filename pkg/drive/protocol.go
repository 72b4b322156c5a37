package drive

import (
	"fmt"
	"strings"
)

// Protocol identifies the backend that produced an entry.
type Protocol int

const (
	ProtocolWebDAV Protocol = iota + 1
	ProtocolSMB
	ProtocolNFS
)

// String returns the lower-case protocol name used in configuration files,
// URLs and metrics labels.
func (p Protocol) String() string {
	switch p {
	case ProtocolWebDAV:
		return "webdav"
	case ProtocolSMB:
		return "smb"
	case ProtocolNFS:
		return "nfs"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// DefaultPort returns the port assumed when a configuration leaves it unset.
// NFS returns 0: the server port is resolved through the portmapper.
func (p Protocol) DefaultPort() int {
	switch p {
	case ProtocolWebDAV:
		return 80
	case ProtocolSMB:
		return 445
	default:
		return 0
	}
}

// ParseProtocol parses a protocol name case-insensitively.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "webdav", "dav", "http", "https":
		return ProtocolWebDAV, nil
	case "smb", "smb2", "cifs":
		return ProtocolSMB, nil
	case "nfs", "nfs3":
		return ProtocolNFS, nil
	default:
		return 0, NewInvalidConfigError(fmt.Sprintf("unknown protocol %q", s), nil)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Protocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Protocol) UnmarshalText(text []byte) error {
	parsed, err := ParseProtocol(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
