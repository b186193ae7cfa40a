// Package dnstest provides a stub DNS server for tests. It answers A queries
// for a fixed set of names and NXDOMAIN for everything else, the way a
// captive gateway answers before the client has logged in.
package dnstest

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Server is a UDP DNS server bound to the loopback interface.
type Server struct {
	conn     *net.UDPConn
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.RWMutex
	records map[string]net.IP

	queries atomic.Int64
}

// NewServer starts a server that knows records (name -> IPv4 address).
func NewServer(records map[string]string) (*Server, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, fmt.Errorf("failed to start DNS server: %w", err)
	}

	s := &Server{
		conn:     conn,
		stopChan: make(chan struct{}),
		records:  make(map[string]net.IP, len(records)),
	}
	for name, ip := range records {
		s.Set(name, ip)
	}

	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Addr returns the "host:port" the server listens on.
func (s *Server) Addr() string {
	return s.conn.LocalAddr().String()
}

// Set adds or replaces a record.
func (s *Server) Set(name, ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[normalize(name)] = net.ParseIP(ip).To4()
}

// Delete removes a record so the name answers NXDOMAIN.
func (s *Server) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, normalize(name))
}

// Queries returns the number of requests received so far.
func (s *Server) Queries() int64 {
	return s.queries.Load()
}

// Resolver returns a resolver that sends every query to this server.
func (s *Server) Resolver() *net.Resolver {
	addr := s.Addr()
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: time.Second}
			return d.DialContext(ctx, "udp4", addr)
		},
	}
}

// Close stops the server and waits for the serve loop to exit.
func (s *Server) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopChan)
		err = s.conn.Close()
		s.wg.Wait()
	})
	return err
}

func (s *Server) lookup(name string) (net.IP, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ip, ok := s.records[normalize(name)]
	return ip, ok
}

// serve handles incoming DNS requests until Close.
func (s *Server) serve() {
	defer s.wg.Done()
	buffer := make([]byte, 512) // Standard DNS UDP packet size

	for {
		n, clientAddr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			select {
			case <-s.stopChan:
				return
			default:
				continue
			}
		}
		s.queries.Add(1)

		request := make([]byte, n)
		copy(request, buffer[:n])
		if response := s.handleDNSRequest(request); response != nil {
			_, _ = s.conn.WriteToUDP(response, clientAddr)
		}
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}
