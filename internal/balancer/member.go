package balancer

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// ErrInvalidMember is returned when an address or port cannot form a member line.
var ErrInvalidMember = errors.New("invalid balancer member")

// memberIndent is the fixed indentation of a member line.
const memberIndent = "    "

// Member is a validated backend address and port.
type Member struct {
	addr netip.Addr
	port uint16
}

// NewMember validates address and port. The address must be an IP
// address; the port must be in 1-65535.
func NewMember(address string, port int32) (Member, error) {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return Member{}, fmt.Errorf("%w: address %q: %v", ErrInvalidMember, address, err)
	}
	if addr.Zone() != "" {
		return Member{}, fmt.Errorf("%w: address %q has a zone", ErrInvalidMember, address)
	}
	if port < 1 || port > 65535 {
		return Member{}, fmt.Errorf("%w: port %d out of range", ErrInvalidMember, port)
	}
	return Member{addr: addr.Unmap(), port: uint16(port)}, nil
}

// HostPort returns the member's host:port, bracketing IPv6 addresses.
func (m Member) HostPort() string {
	return net.JoinHostPort(m.addr.String(), strconv.Itoa(int(m.port)))
}

// URL returns the member URL as written into the configuration.
func (m Member) URL() string {
	return "http://" + m.HostPort()
}

// Line returns the exact configuration line for the member.
func (m Member) Line() string {
	return memberIndent + `BalancerMember "` + m.URL() + `"`
}

// String makes Member satisfy the fmt.Stringer interface.
func (m Member) String() string { return m.HostPort() }
