package supervisor

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	"dpulogin/dns"
	"dpulogin/portal"
	"dpulogin/probe"
)

// ErrorKind is the cycle-level category of a failure. Every kind is
// recoverable; it only picks the log severity.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindTransientNetwork
	KindDNSUnresolved
	KindHostUnresolvable
	KindConfigurationMissing
	KindUnexpected
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransientNetwork:
		return "transient_network"
	case KindDNSUnresolved:
		return "dns_unresolved"
	case KindHostUnresolvable:
		return "host_unresolvable"
	case KindConfigurationMissing:
		return "configuration_missing"
	default:
		return "unexpected"
	}
}

// ClassifyError maps err onto an ErrorKind by walking its chain. A "no such
// host" answer for gatewayHost is HostUnresolvable; any other DNS failure is
// DNSUnresolved.
func ClassifyError(err error, gatewayHost string) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, portal.ErrMissingCredentials):
		return KindConfigurationMissing
	case gatewayHost != "" && dns.IsHostNotFoundFor(err, gatewayHost):
		return KindHostUnresolvable
	case dns.IsDNSError(err):
		return KindDNSUnresolved
	case isTransient(err):
		return KindTransientNetwork
	default:
		return KindUnexpected
	}
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, probe.ErrNoReply) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
