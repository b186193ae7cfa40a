package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DPULOGIN_INTERVAL or
// DPULOGIN_GATEWAY_LOGIN_URL.
const EnvPrefix = "DPULOGIN"

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Set overrides a key. Overrides win over the file and the environment.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// Load loads configuration with precedence
// defaults < config file < env vars < Set overrides.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	l.setupViper(cfg)

	if err := l.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Logging.File = expandTilde(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// ConfigFileUsed returns the config file that was loaded, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) setupViper(cfg *Config) {
	v := l.v

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		v.AddConfigPath(filepath.Join(xdgConfig, "dpulogin"))
	}
	if homeDir, _ := os.UserHomeDir(); homeDir != "" {
		v.AddConfigPath(filepath.Join(homeDir, ".config", "dpulogin"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	l.setDefaults(cfg)
}

// setDefaults registers every key so AutomaticEnv sees it during Unmarshal.
func (l *Loader) setDefaults(cfg *Config) {
	v := l.v

	v.SetDefault("interval", cfg.Interval)

	// Probe
	v.SetDefault("probe.ping_target", cfg.Probe.PingTarget)
	v.SetDefault("probe.ping_timeout", cfg.Probe.PingTimeout)
	v.SetDefault("probe.dns_host", cfg.Probe.DNSHost)
	v.SetDefault("probe.dns_server", cfg.Probe.DNSServer)
	v.SetDefault("probe.dns_timeout", cfg.Probe.DNSTimeout)
	v.SetDefault("probe.check_url", cfg.Probe.CheckURL)
	v.SetDefault("probe.check_marker", cfg.Probe.CheckMarker)
	v.SetDefault("probe.check_timeout", cfg.Probe.CheckTimeout)

	// Gateway
	v.SetDefault("gateway.login_url", cfg.Gateway.LoginURL)
	v.SetDefault("gateway.user_agent", cfg.Gateway.UserAgent)
	v.SetDefault("gateway.timeout", cfg.Gateway.Timeout)
	v.SetDefault("gateway.insecure_skip_verify", cfg.Gateway.InsecureSkipVerify)

	// Logging
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.enable_caller", cfg.Logging.EnableCaller)
}

// loadConfigFile reads the config file. A missing file is only an error when
// it was set explicitly.
func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadDefault loads configuration with default search paths.
func LoadDefault() (*Config, error) {
	return NewLoader().Load()
}

func expandTilde(path string) string {
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
