package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// protocolICMP is the IANA protocol number passed to icmp.ParseMessage.
const protocolICMP = 1

var (
	// ErrNoReply is returned when no matching echo reply arrives in time.
	ErrNoReply = errors.New("no echo reply")
	// ErrNoSocket is returned when neither a datagram nor a raw ICMP socket
	// can be opened, usually for lack of permission.
	ErrNoSocket = errors.New("cannot open icmp socket")
)

var echoPayload = []byte("dpulogin-reachability")

// Pinger sends one echo request and waits for its reply.
type Pinger interface {
	Ping(ctx context.Context, target string) error
}

// ICMPPinger pings with a single ICMP echo per call. It prefers an
// unprivileged datagram socket and falls back to a raw socket.
type ICMPPinger struct {
	timeout time.Duration
	id      int
	seq     atomic.Uint32
	listen  func() (*icmp.PacketConn, bool, error)

	logger       zerolog.Logger
	socketWarned atomic.Bool
}

// PingerOption configures an ICMPPinger.
type PingerOption func(*ICMPPinger)

// WithPingLogger sets the logger used to report socket failures.
func WithPingLogger(logger zerolog.Logger) PingerOption {
	return func(p *ICMPPinger) {
		p.logger = logger
	}
}

// NewICMPPinger returns a pinger that waits at most timeout for a reply.
func NewICMPPinger(timeout time.Duration, opts ...PingerOption) *ICMPPinger {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	p := &ICMPPinger{
		timeout: timeout,
		id:      os.Getpid() & 0xffff,
		listen:  listenICMP,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ping sends an echo request to target (an IPv4 literal).
func (p *ICMPPinger) Ping(ctx context.Context, target string) error {
	ip := net.ParseIP(target).To4()
	if ip == nil {
		return fmt.Errorf("ping %s: not an IPv4 address", target)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, privileged, err := p.listen()
	if err != nil {
		if p.socketWarned.CompareAndSwap(false, true) {
			p.logger.Warn().Err(err).
				Msg("cannot open an icmp socket, every probe will report offline; allow ping_group_range or grant CAP_NET_RAW")
		}
		return fmt.Errorf("ping %s: %w: %w", target, ErrNoSocket, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("ping %s: %w", target, err)
	}
	// Unblock ReadFrom as soon as the caller cancels.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	seq := int(p.seq.Add(1) & 0xffff)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: p.id, Seq: seq, Data: echoPayload},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("ping %s: marshal: %w", target, err)
	}

	var dst net.Addr = &net.UDPAddr{IP: ip}
	if privileged {
		dst = &net.IPAddr{IP: ip}
	}
	if _, err := conn.WriteTo(wb, dst); err != nil {
		return fmt.Errorf("ping %s: send: %w", target, err)
	}

	rb := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(rb)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if cause := ctx.Err(); cause != nil && !errors.Is(cause, context.DeadlineExceeded) {
					return fmt.Errorf("ping %s: %w", target, cause)
				}
				return fmt.Errorf("ping %s: %w: %w", target, ErrNoReply, err)
			}
			return fmt.Errorf("ping %s: receive: %w", target, err)
		}

		if isEchoReply(rb[:n], seq, p.id, privileged) && peerIP(peer).Equal(ip) {
			return nil
		}
	}
}

// listenICMP opens a datagram ICMP socket when the kernel allows it for this
// user, otherwise a raw one.
func listenICMP() (*icmp.PacketConn, bool, error) {
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err == nil {
		return conn, false, nil
	}
	conn, rawErr := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if rawErr != nil {
		return nil, false, errors.Join(err, rawErr)
	}
	return conn, true, nil
}

// isEchoReply checks type and sequence. Datagram sockets get their echo id
// rewritten by the kernel, so the id only matters on raw sockets.
func isEchoReply(b []byte, seq, id int, checkID bool) bool {
	rm, err := icmp.ParseMessage(protocolICMP, b)
	if err != nil || rm.Type != ipv4.ICMPTypeEchoReply {
		return false
	}
	echo, ok := rm.Body.(*icmp.Echo)
	if !ok || echo.Seq != seq {
		return false
	}
	return !checkID || echo.ID == id
}

func peerIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP
	case *net.IPAddr:
		return a.IP
	default:
		return nil
	}
}
