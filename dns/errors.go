package dns

import (
	"errors"
	"net"
	"strings"
)

// IsHostNotFound reports whether err carries a DNS "no such host" answer.
func IsHostNotFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}

// IsHostNotFoundFor reports whether err is a "no such host" answer for host.
// Names are compared case-insensitively and without a trailing dot.
func IsHostNotFoundFor(err error, host string) bool {
	var dnsErr *net.DNSError
	if !errors.As(err, &dnsErr) || !dnsErr.IsNotFound {
		return false
	}
	return sameHost(dnsErr.Name, host)
}

// IsDNSError reports whether any DNS failure is in the chain.
func IsDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func sameHost(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "."), strings.TrimSuffix(b, "."))
}
