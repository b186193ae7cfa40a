// Package dns resolves hosts for the connectivity probe and tells a
// "no such host" answer apart from other resolution failures.
package dns

import (
	"context"
	"fmt"
	"net"
	"time"
)

// DefaultTimeout bounds a lookup when the caller does not choose one.
const DefaultTimeout = 3 * time.Second

// Resolver performs bounded host lookups, optionally pinned to one nameserver
type Resolver struct {
	resolver *net.Resolver
	timeout  time.Duration
}

// NewResolver creates a resolver. An empty nameserver ("host:port") uses the
// system configuration.
func NewResolver(nameserver string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r := &Resolver{resolver: net.DefaultResolver, timeout: timeout}
	if nameserver != "" {
		r.resolver = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, nameserver)
			},
		}
	}
	return r
}

// LookupHost resolves host to its addresses. An answer without addresses is
// reported as a not-found DNS error.
func (r *Resolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := r.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("resolve %s: %w", host, &net.DNSError{
			Err:        "no addresses",
			Name:       host,
			IsNotFound: true,
		})
	}
	return addrs, nil
}

// NetResolver exposes the underlying resolver so dialers can share it.
func (r *Resolver) NetResolver() *net.Resolver {
	return r.resolver
}
