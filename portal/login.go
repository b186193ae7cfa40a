// Package portal submits credentials to the captive gateway's login form.
package portal

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config describes the gateway endpoint and the HTTP session used to reach it.
type Config struct {
	LoginURL  string
	UserAgent string
	Timeout   time.Duration

	// InsecureSkipVerify accepts the gateway's self-signed certificate.
	InsecureSkipVerify bool
	// Resolver, when set, resolves the gateway host instead of the system resolver.
	Resolver *net.Resolver
}

// DefaultConfig returns the DPU gateway settings.
func DefaultConfig() Config {
	return Config{
		LoginURL:  DefaultLoginURL,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
	}
}

// Outcome is what a login attempt reports back.
type Outcome struct {
	StatusCode int
	// Location is the final response's Location header, or the last
	// redirect followed when the final response has none.
	Location string
	// Redirects counts the hops that were followed.
	Redirects int
	Success   bool
}

// Client performs login attempts. Each attempt gets a fresh session.
type Client struct {
	cfg      Config
	loginURL *url.URL
	logger   zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient validates cfg and returns a client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.LoginURL)
	if err != nil {
		return nil, fmt.Errorf("portal: login url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("portal: login url must be http or https, got %q", cfg.LoginURL)
	}
	if u.Hostname() == "" {
		return nil, errors.New("portal: login url has no host")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{cfg: cfg, loginURL: u, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Host returns the gateway host name.
func (c *Client) Host() string {
	return c.loginURL.Hostname()
}

// Login posts the credentials once. Blank credentials fail with
// ErrMissingCredentials before anything touches the network.
func (c *Client) Login(ctx context.Context, creds Credentials) (Outcome, error) {
	if err := creds.Validate(); err != nil {
		return Outcome{}, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("cookie jar: %w", err)
	}
	transport := c.newTransport()
	defer transport.CloseIdleConnections()

	var (
		redirects int
		lastHop   string
	)
	client := &http.Client{
		Jar:       jar,
		Transport: transport,
		Timeout:   c.cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			redirects++
			lastHop = req.URL.String()
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL.String(), strings.NewReader(creds.Form().Encode()))
	if err != nil {
		return Outcome{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	c.logger.Debug().Str("url", c.loginURL.Redacted()).Str("user", creds.Username).Msg("submitting login form")

	resp, err := client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection is reusable until CloseIdleConnections.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	location := resp.Header.Get("Location")
	if location == "" {
		location = lastHop
	}
	return Outcome{
		StatusCode: resp.StatusCode,
		Location:   location,
		Redirects:  redirects,
		Success:    resp.StatusCode < http.StatusBadRequest,
	}, nil
}

// newTransport builds a per-attempt transport with gzip decompression
// enabled and, when configured, a pinned resolver.
func (c *Client) newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DisableCompression = false
	t.DialContext = (&net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
		Resolver:  c.cfg.Resolver,
	}).DialContext
	if c.cfg.InsecureSkipVerify {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return t
}
