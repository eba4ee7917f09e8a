package wire

import (
	"fmt"
	"strings"
)

// Side identifies one of the two vats of a two-party network. It is the vat
// ID of the two-party protocol.
type Side uint8

const (
	// SideServer is the vat that listens for the connection.
	SideServer Side = 0
	// SideClient is the vat that initiates the connection.
	SideClient Side = 1
)

// String returns the side name.
func (s Side) String() string {
	switch s {
	case SideServer:
		return "SERVER"
	case SideClient:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}

// IsValid reports whether s is one of the two defined sides.
func (s Side) IsValid() bool {
	return s == SideServer || s == SideClient
}

// Peer returns the opposite side.
func (s Side) Peer() Side {
	if s == SideServer {
		return SideClient
	}
	return SideServer
}

// ParseSide parses "server" or "client", case-insensitively.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "server":
		return SideServer, nil
	case "client":
		return SideClient, nil
	default:
		return 0, fmt.Errorf("unknown side: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid side: %d", s)
	}
	return []byte(strings.ToLower(s.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Side) UnmarshalText(text []byte) error {
	v, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
