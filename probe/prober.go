// Package probe classifies network connectivity as offline, restricted by a
// captive portal, or online.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxBodyBytes caps how much of the connectivity test response is read.
const maxBodyBytes = 64 << 10

// Well-known probe targets.
const (
	DefaultPingTarget   = "1.1.1.1"
	DefaultDNSHost      = "www.google.com"
	DefaultCheckURL     = "http://www.msftconnecttest.com/connecttest.txt"
	DefaultCheckMarker  = "Microsoft"
	DefaultPingTimeout  = 2 * time.Second
	DefaultCheckTimeout = 3 * time.Second
)

// HostResolver resolves names for the DNS stage.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Config holds the probe targets.
type Config struct {
	PingTarget   string
	DNSHost      string
	CheckURL     string
	CheckMarker  string
	CheckTimeout time.Duration
}

// DefaultConfig returns the targets used by OS captive portal detectors.
func DefaultConfig() Config {
	return Config{
		PingTarget:   DefaultPingTarget,
		DNSHost:      DefaultDNSHost,
		CheckURL:     DefaultCheckURL,
		CheckMarker:  DefaultCheckMarker,
		CheckTimeout: DefaultCheckTimeout,
	}
}

// Prober runs the ping, DNS and HTTP stages in order and stops at the first
// one that fails.
type Prober struct {
	cfg      Config
	pinger   Pinger
	resolver HostResolver
	client   *http.Client
	logger   zerolog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Prober) {
		p.logger = logger
	}
}

// WithTransport replaces the HTTP transport of the connectivity test.
func WithTransport(rt http.RoundTripper) Option {
	return func(p *Prober) {
		p.client.Transport = rt
	}
}

// New creates a prober.
func New(cfg Config, pinger Pinger, resolver HostResolver, opts ...Option) (*Prober, error) {
	if pinger == nil {
		return nil, errors.New("probe: pinger required")
	}
	if resolver == nil {
		return nil, errors.New("probe: resolver required")
	}
	if cfg.PingTarget == "" || cfg.DNSHost == "" {
		return nil, errors.New("probe: ping target and dns host required")
	}
	if _, err := url.ParseRequestURI(cfg.CheckURL); err != nil {
		return nil, fmt.Errorf("probe: check url: %w", err)
	}
	if cfg.CheckMarker == "" {
		return nil, errors.New("probe: check marker required")
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = DefaultCheckTimeout
	}

	p := &Prober{
		cfg:      cfg,
		pinger:   pinger,
		resolver: resolver,
		logger:   zerolog.Nop(),
		client: &http.Client{
			Timeout: cfg.CheckTimeout,
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				DisableKeepAlives: true,
			},
			// A portal answers the test URL with a redirect to itself.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Classify runs one probe. Failures are part of the returned Report, never a
// separate error.
func (p *Prober) Classify(ctx context.Context) Report {
	// 1. Raw IP reachability.
	if err := p.pinger.Ping(ctx, p.cfg.PingTarget); err != nil {
		p.logger.Trace().Err(err).Str("target", p.cfg.PingTarget).Msg("cannot ping, offline")
		return Report{Result: Offline, Tier: TierPing, Err: err}
	}

	// 2. Name resolution.
	if _, err := p.resolver.LookupHost(ctx, p.cfg.DNSHost); err != nil {
		p.logger.Trace().Err(err).Str("host", p.cfg.DNSHost).Msg("internet check failed at dns")
		return Report{Result: Offline, Tier: TierDNS, Err: err}
	}

	// 3. Captive portal check.
	return p.checkGate(ctx)
}

func (p *Prober) checkGate(ctx context.Context) Report {
	report := Report{Result: Restricted, Tier: TierHTTP}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.CheckURL, nil)
	if err != nil {
		report.Err = err
		return report
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Trace().Err(err).Str("url", p.cfg.CheckURL).Msg("connectivity test failed")
		report.Err = err
		return report
	}
	defer resp.Body.Close()

	report.StatusCode = resp.StatusCode
	report.Location = resp.Header.Get("Location")

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		p.logger.Trace().Err(err).Int("status", resp.StatusCode).Msg("connectivity test body unreadable")
		report.Err = fmt.Errorf("read connectivity test body: %w", err)
		return report
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if success && strings.Contains(string(body), p.cfg.CheckMarker) {
		report.Result = Online
		return report
	}

	p.logger.Trace().
		Int("status", resp.StatusCode).
		Str("location", report.Location).
		Bool("marker", strings.Contains(string(body), p.cfg.CheckMarker)).
		Msg("connectivity test intercepted")
	return report
}
