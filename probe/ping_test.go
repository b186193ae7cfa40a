package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

func marshalEcho(t *testing.T, typ ipv4.ICMPType, id, seq int) []byte {
	t.Helper()
	msg := icmp.Message{Type: typ, Body: &icmp.Echo{ID: id, Seq: seq, Data: echoPayload}}
	b, err := msg.Marshal(nil)
	require.NoError(t, err)
	return b
}

func TestIsEchoReply(t *testing.T) {
	reply := marshalEcho(t, ipv4.ICMPTypeEchoReply, 42, 7)

	assert.True(t, isEchoReply(reply, 7, 42, true))
	assert.True(t, isEchoReply(reply, 7, 99, false))
	assert.False(t, isEchoReply(reply, 7, 99, true))
	assert.False(t, isEchoReply(reply, 8, 42, true))
	assert.False(t, isEchoReply(marshalEcho(t, ipv4.ICMPTypeEcho, 42, 7), 7, 42, true))
	assert.False(t, isEchoReply([]byte{0x00}, 7, 42, true))
}

func TestPingRejectsHostnames(t *testing.T) {
	err := NewICMPPinger(time.Second).Ping(context.Background(), "one.one.one.one")
	assert.Error(t, err)
}

func TestPingLoopback(t *testing.T) {
	conn, _, err := listenICMP()
	if err != nil {
		t.Skipf("icmp sockets unavailable: %v", err)
	}
	conn.Close()

	err = NewICMPPinger(time.Second).Ping(context.Background(), "127.0.0.1")
	require.NoError(t, err)
}

func TestPingCanceled(t *testing.T) {
	conn, _, err := listenICMP()
	if err != nil {
		t.Skipf("icmp sockets unavailable: %v", err)
	}
	conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	// TEST-NET-1 never answers.
	err = NewICMPPinger(5*time.Second).Ping(ctx, "192.0.2.1")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPingSocketFailureWarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	p := NewICMPPinger(time.Second, WithPingLogger(zerolog.New(&buf)))
	p.listen = func() (*icmp.PacketConn, bool, error) {
		return nil, false, errors.New("socket: operation not permitted")
	}

	for i := 0; i < 3; i++ {
		err := p.Ping(context.Background(), "1.1.1.1")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoSocket)
		assert.NotErrorIs(t, err, ErrNoReply)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Contains(t, line["message"], "icmp socket")
	assert.Equal(t, "socket: operation not permitted", line["error"])
}
