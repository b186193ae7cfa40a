// Package config defines the daemon configuration and loads it with viper.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"

	"dpulogin/dns"
	"dpulogin/logging"
	"dpulogin/portal"
	"dpulogin/probe"
	"dpulogin/supervisor"
)

// Config is the root configuration. Credentials are not part of it; they
// come from DPU_USER and DPU_PASS only.
type Config struct {
	// Interval is the pause between two cycles.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`

	Probe   ProbeConfig   `mapstructure:"probe" yaml:"probe"`
	Gateway GatewayConfig `mapstructure:"gateway" yaml:"gateway"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ---- PROBE ----

type ProbeConfig struct {
	PingTarget  string        `mapstructure:"ping_target" yaml:"ping_target"`
	PingTimeout time.Duration `mapstructure:"ping_timeout" yaml:"ping_timeout"`

	DNSHost    string        `mapstructure:"dns_host" yaml:"dns_host"`
	DNSServer  string        `mapstructure:"dns_server" yaml:"dns_server"` // host:port, empty = system
	DNSTimeout time.Duration `mapstructure:"dns_timeout" yaml:"dns_timeout"`

	CheckURL     string        `mapstructure:"check_url" yaml:"check_url"`
	CheckMarker  string        `mapstructure:"check_marker" yaml:"check_marker"`
	CheckTimeout time.Duration `mapstructure:"check_timeout" yaml:"check_timeout"`
}

// ---- GATEWAY ----

type GatewayConfig struct {
	LoginURL           string        `mapstructure:"login_url" yaml:"login_url"`
	UserAgent          string        `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout            time.Duration `mapstructure:"timeout" yaml:"timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level        string `mapstructure:"level" yaml:"level"`
	Format       string `mapstructure:"format" yaml:"format"`
	File         string `mapstructure:"file" yaml:"file"`
	EnableCaller bool   `mapstructure:"enable_caller" yaml:"enable_caller"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Interval: supervisor.DefaultInterval,
		Probe: ProbeConfig{
			PingTarget:   probe.DefaultPingTarget,
			PingTimeout:  probe.DefaultPingTimeout,
			DNSHost:      probe.DefaultDNSHost,
			DNSTimeout:   dns.DefaultTimeout,
			CheckURL:     probe.DefaultCheckURL,
			CheckMarker:  probe.DefaultCheckMarker,
			CheckTimeout: probe.DefaultCheckTimeout,
		},
		Gateway: GatewayConfig{
			LoginURL:  portal.DefaultLoginURL,
			UserAgent: portal.DefaultUserAgent,
			Timeout:   portal.DefaultTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Validate checks configuration correctness. It does not mutate c.
func (c *Config) Validate() error {
	var errs []error

	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be > 0, got %s", c.Interval))
	}

	if net.ParseIP(c.Probe.PingTarget).To4() == nil {
		errs = append(errs, fmt.Errorf("probe.ping_target must be an IPv4 address, got %q", c.Probe.PingTarget))
	}
	if c.Probe.DNSHost == "" {
		errs = append(errs, errors.New("probe.dns_host is required"))
	}
	if c.Probe.DNSServer != "" {
		if _, _, err := net.SplitHostPort(c.Probe.DNSServer); err != nil {
			errs = append(errs, fmt.Errorf("probe.dns_server must be host:port: %w", err))
		}
	}
	if err := checkURL(c.Probe.CheckURL); err != nil {
		errs = append(errs, fmt.Errorf("probe.check_url: %w", err))
	}
	if c.Probe.CheckMarker == "" {
		errs = append(errs, errors.New("probe.check_marker is required"))
	}
	if err := checkURL(c.Gateway.LoginURL); err != nil {
		errs = append(errs, fmt.Errorf("gateway.login_url: %w", err))
	}

	for name, d := range map[string]time.Duration{
		"probe.ping_timeout":  c.Probe.PingTimeout,
		"probe.dns_timeout":   c.Probe.DNSTimeout,
		"probe.check_timeout": c.Probe.CheckTimeout,
		"gateway.timeout":     c.Gateway.Timeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %s", name, d))
		}
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch c.Logging.Format {
	case "", "auto", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be auto, json or console, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ProbeSettings converts to the prober's settings. Ping and DNS timeouts
// belong to the pinger and resolver and are not part of it.
func (c *Config) ProbeSettings() probe.Config {
	return probe.Config{
		PingTarget:   c.Probe.PingTarget,
		DNSHost:      c.Probe.DNSHost,
		CheckURL:     c.Probe.CheckURL,
		CheckMarker:  c.Probe.CheckMarker,
		CheckTimeout: c.Probe.CheckTimeout,
	}
}

// PortalSettings converts to the login client's settings. resolver may be nil.
func (c *Config) PortalSettings(resolver *net.Resolver) portal.Config {
	return portal.Config{
		LoginURL:           c.Gateway.LoginURL,
		UserAgent:          c.Gateway.UserAgent,
		Timeout:            c.Gateway.Timeout,
		InsecureSkipVerify: c.Gateway.InsecureSkipVerify,
		Resolver:           resolver,
	}
}

// LoggingSettings converts to the logging package's settings.
func (c *Config) LoggingSettings() logging.Config {
	return logging.Config{
		Level:        c.Logging.Level,
		Format:       c.Logging.Format,
		File:         c.Logging.File,
		EnableCaller: c.Logging.EnableCaller,
	}
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
