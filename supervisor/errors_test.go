package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"dpulogin/portal"
	"dpulogin/probe"
)

const gatewayHost = "giris.dpu.edu.tr"

func dialErr(err error) error {
	return &url.Error{
		Op:  "Post",
		URL: "https://giris.dpu.edu.tr:6082/php/uid.php",
		Err: &net.OpError{Op: "dial", Net: "tcp", Err: err},
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"missing credentials", fmt.Errorf("%w: DPU_PASS not set", portal.ErrMissingCredentials), KindConfigurationMissing},
		{
			"gateway not found",
			fmt.Errorf("login request: %w", dialErr(&net.DNSError{Err: "no such host", Name: gatewayHost, IsNotFound: true})),
			KindHostUnresolvable,
		},
		{
			"gateway not found, trailing dot",
			dialErr(&net.DNSError{Err: "no such host", Name: "GIRIS.dpu.edu.tr.", IsNotFound: true}),
			KindHostUnresolvable,
		},
		{
			"other host not found",
			&net.DNSError{Err: "no such host", Name: "www.google.com", IsNotFound: true},
			KindDNSUnresolved,
		},
		{
			"gateway dns timeout",
			dialErr(&net.DNSError{Err: "i/o timeout", Name: gatewayHost, IsTimeout: true}),
			KindDNSUnresolved,
		},
		{"connection refused", dialErr(os.NewSyscallError("connect", syscall.ECONNREFUSED)), KindTransientNetwork},
		{"deadline", fmt.Errorf("login request: %w", context.DeadlineExceeded), KindTransientNetwork},
		{"no echo reply", fmt.Errorf("ping 1.1.1.1: %w", probe.ErrNoReply), KindTransientNetwork},
		{"eof", fmt.Errorf("read: %w", io.EOF), KindTransientNetwork},
		{"plain op error", &net.OpError{Op: "read", Net: "tcp", Err: errors.New("weird")}, KindTransientNetwork},
		{"unknown", errors.New("stopped after 10 redirects"), KindUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err, gatewayHost))
		})
	}
}

func TestClassifyErrorWithoutGatewayHost(t *testing.T) {
	err := &net.DNSError{Err: "no such host", Name: gatewayHost, IsNotFound: true}
	assert.Equal(t, KindDNSUnresolved, ClassifyError(err, ""))
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "host_unresolvable", KindHostUnresolvable.String())
	assert.Equal(t, "configuration_missing", KindConfigurationMissing.String())
	assert.Equal(t, "unexpected", ErrorKind(99).String())
}
