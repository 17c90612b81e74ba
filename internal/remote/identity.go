package remote

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/imamik/boringsvc/internal/config"
)

// ErrMissingHost is returned when a host record has no host field.
var ErrMissingHost = errors.New("host entry missing host field")

// Defaults are the connection settings used when a host entry leaves them out.
type Defaults struct {
	User string
	Port int
}

// Identity is the canonical form of a host target.
type Identity struct {
	User  string
	Host  string
	Port  int
	Label string
}

// String returns "user@host".
func (i Identity) String() string {
	return i.User + "@" + i.Host
}

// DisplayName returns the label when one is set, otherwise the host.
func (i Identity) DisplayName() string {
	if i.Label != "" {
		return i.Label
	}
	return i.Host
}

// Address returns the dialable host:port.
func (i Identity) Address() string {
	port := i.Port
	if port == 0 {
		port = config.DefaultSSHPort
	}
	return net.JoinHostPort(i.Host, strconv.Itoa(port))
}

// Normalize turns a configured host target into an Identity, filling user
// and port from defaults. A bare host of the form "user@host" keeps its user.
func Normalize(target config.HostTarget, defaults Defaults) (Identity, error) {
	host := strings.TrimSpace(target.Host)
	if host == "" {
		return Identity{}, ErrMissingHost
	}

	user := target.User
	if u, h, ok := strings.Cut(host, "@"); ok {
		if user == "" {
			user = u
		}
		host = h
	}
	if user == "" {
		user = defaults.User
	}
	if user == "" {
		user = config.DefaultUser
	}

	port := target.Port
	if port == 0 {
		port = defaults.Port
	}
	if port == 0 {
		port = config.DefaultSSHPort
	}

	return Identity{
		User:  user,
		Host:  host,
		Port:  port,
		Label: target.Label,
	}, nil
}
