package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/smartfs/smartfs"
)

// Authority is the parsed [userinfo "@"] host [":" port] component of a URI
// (RFC 3986 section 3.2). The zero value has no host; build one with
// NewAuthority.
type Authority struct {
	username string
	password string
	host     string
	port     uint16
}

// NewAuthority parses an authority string of the form [user[:pass]@]host[:port].
// The host may be a name, an IPv4 address, or a bracketed IPv6 literal.
// Parse failures wrap smartfs.ErrInvalidLocation so a bad authority surfaces
// through backend NewFile/NewLocation the same way a bad path does.
func NewAuthority(authority string) (Authority, error) {
	if authority == "" {
		return Authority{}, fmt.Errorf("%w: authority may not be empty", smartfs.ErrInvalidLocation)
	}

	// url.Parse treats input with leading slashes as scheme-relative, which
	// is exactly an authority followed by an optional path
	u, err := url.Parse("//" + authority)
	if err != nil {
		return Authority{}, fmt.Errorf("%w: %v", smartfs.ErrInvalidLocation, err)
	}
	if u.Hostname() == "" {
		return Authority{}, fmt.Errorf("%w: authority %q has no host", smartfs.ErrInvalidLocation, authority)
	}

	var port uint16
	if p := u.Port(); p != "" {
		val, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return Authority{}, fmt.Errorf("%w: port %q out of range", smartfs.ErrInvalidLocation, p)
		}
		port = uint16(val)
	}

	password, _ := u.User.Password()
	return Authority{
		username: u.User.Username(),
		password: password,
		host:     u.Hostname(),
		port:     port,
	}, nil
}

// Username returns the userinfo username. May be an empty string.
func (a Authority) Username() string {
	return a.username
}

// Password returns the userinfo password. May be an empty string. Passing
// credentials in a URI is deprecated by RFC 3986; backend options are the
// supported channel.
func (a Authority) Password() string {
	return a.password
}

// Host returns the host without brackets or port, ie "host.com" or "::1".
func (a Authority) Host() string {
	return a.host
}

// Port returns the port, or 0 when the authority did not carry one.
func (a Authority) Port() uint16 {
	return a.port
}

// HostPortStr returns host joined with the port when one is set, ie
// "host.com:1234". IPv6 hosts are re-bracketed so the result parses back.
func (a Authority) HostPortStr() string {
	host := a.host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if a.port == 0 {
		return host
	}
	return fmt.Sprintf("%s:%d", host, a.port)
}

// String renders the authority as [username@]host[:port]. The password is
// never included; RFC 3986 section 3.2.1 forbids rendering userinfo data
// after the first colon.
func (a Authority) String() string {
	if a.username == "" {
		return a.HostPortStr()
	}
	return a.username + "@" + a.HostPortStr()
}
