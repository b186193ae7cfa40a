package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dpulogin/dns/dnstest"
)

func TestResolverAgainstStub(t *testing.T) {
	srv, err := dnstest.NewServer(map[string]string{"www.google.com": "10.0.0.7"})
	require.NoError(t, err)
	defer srv.Close()

	r := NewResolver(srv.Addr(), time.Second)

	addrs, err := r.LookupHost(context.Background(), "www.google.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.7"}, addrs)

	_, err = r.LookupHost(context.Background(), "giris.dpu.edu.tr")
	require.Error(t, err)
	assert.True(t, IsHostNotFound(err))
	assert.True(t, IsHostNotFoundFor(err, "GIRIS.dpu.edu.tr."))
	assert.False(t, IsHostNotFoundFor(err, "www.google.com"))
}

func TestResolverHonorsCanceledContext(t *testing.T) {
	srv, err := dnstest.NewServer(nil)
	require.NoError(t, err)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewResolver(srv.Addr(), time.Second).LookupHost(ctx, "www.google.com")
	require.Error(t, err)
	assert.False(t, IsHostNotFound(err))
}

func TestClassifiersUnwrapChains(t *testing.T) {
	notFound := &net.DNSError{Err: "no such host", Name: "giris.dpu.edu.tr", IsNotFound: true}
	wrapped := &url.Error{Op: "Post", URL: "https://giris.dpu.edu.tr:6082/", Err: &net.OpError{Op: "dial", Net: "tcp", Err: notFound}}

	tests := []struct {
		name     string
		err      error
		notFound bool
		forHost  bool
		dnsErr   bool
	}{
		{"nil", nil, false, false, false},
		{"plain", errors.New("boom"), false, false, false},
		{"not found", notFound, true, true, true},
		{"wrapped not found", fmt.Errorf("login: %w", wrapped), true, true, true},
		{"timeout", &net.DNSError{Err: "i/o timeout", Name: "giris.dpu.edu.tr", IsTimeout: true}, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsHostNotFound(tt.err))
			assert.Equal(t, tt.forHost, IsHostNotFoundFor(tt.err, "giris.dpu.edu.tr"))
			assert.Equal(t, tt.dnsErr, IsDNSError(tt.err))
		})
	}
}
