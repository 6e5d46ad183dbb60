package transport

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// ResolveBaseURL derives the service address from the page origin: same
// scheme and host, with devPort replacing the origin port when non-zero.
func ResolveBaseURL(origin string, devPort int) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return "", fmt.Errorf("invalid origin %q: need scheme and host", origin)
	}
	host, port := u.Hostname(), u.Port()
	if devPort != 0 {
		port = strconv.Itoa(devPort)
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	} else if u.Hostname() != u.Host {
		// bracketed IPv6 literal without a port
		host = "[" + host + "]"
	}
	return u.Scheme + "://" + host, nil
}
