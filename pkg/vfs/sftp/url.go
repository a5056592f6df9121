package sftp

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPort is used when the profile URL names no port.
const DefaultPort = 22

// Location is a parsed sftp profile URL.
type Location struct {
	Host string
	Port int
	User string
	// Path is the remote base directory: absolute, or relative to the login home.
	Path string
}

// Addr returns host:port.
func (l Location) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

// String renders the location without the base path.
func (l Location) String() string {
	return fmt.Sprintf("%s@%s", l.User, l.Addr())
}

// ParseURL parses sftp://user@host[:port][/path].
//
//	sftp://joe@myserver.com/data     → "data", relative to the login home
//	sftp://joe@myserver.com//srv/data → "/srv/data"
//	sftp://joe@myserver.com          → ".", the login home
//
//nolint:cyclop // Complexity from URL validation (scheme, user, host, port, path)
func ParseURL(raw string) (Location, error) {
	u, err := url.Parse(raw) //nolint:varnamelen // u is idiomatic for URL
	if err != nil {
		return Location{}, fmt.Errorf("invalid SFTP URL: %w", err)
	}

	if u.Scheme != "sftp" {
		return Location{}, fmt.Errorf("expected sftp:// scheme, got %q", raw) //nolint:err113 // validation with input
	}

	if u.User == nil || u.User.Username() == "" {
		return Location{}, fmt.Errorf("SFTP URL must include username (sftp://user@host/path)") //nolint:err113,perfsprint,lll // format guidance
	}

	host := u.Hostname()
	if host == "" {
		return Location{}, fmt.Errorf("SFTP URL must include host") //nolint:err113,perfsprint // validation error
	}

	port := DefaultPort

	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil || p <= 0 || p > 65535 {
			return Location{}, fmt.Errorf("invalid port number %q", portStr) //nolint:err113 // validation with input
		}

		port = p
	}

	base := u.Path

	switch {
	case base == "" || base == "/":
		base = "."
	case strings.HasPrefix(base, "//"):
		base = base[1:]
	default:
		base = strings.TrimPrefix(base, "/")
	}

	return Location{
		Host: host,
		Port: port,
		User: u.User.Username(),
		Path: base,
	}, nil
}
