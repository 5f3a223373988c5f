package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GriffinCanCode/boxfs/internal/logging"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Root    RootConfig    `yaml:"root" toml:"root" json:"root"`
	Archive ArchiveConfig `yaml:"archive" toml:"archive" json:"archive"`
	Fetch   FetchConfig   `yaml:"fetch" toml:"fetch" json:"fetch"`
	Logging LogConfig     `yaml:"logging" toml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics" json:"metrics"`
}

// RootConfig names the confined root directory.
type RootConfig struct {
	Path string `envconfig:"BOXFS_ROOT" default:"." yaml:"path" toml:"path" json:"path"`
}

// ArchiveConfig holds the archive capability switches.
type ArchiveConfig struct {
	Native     bool   `envconfig:"BOXFS_NATIVE_ARCHIVE" default:"true" yaml:"native" toml:"native" json:"native"`
	AllowShell bool   `envconfig:"BOXFS_ALLOW_SHELL" default:"true" yaml:"allow_shell" toml:"allow_shell" json:"allow_shell"`
	TarBinary  string `envconfig:"BOXFS_TAR_BIN" default:"tar" yaml:"tar_binary" toml:"tar_binary" json:"tar_binary"`
}

// FetchConfig holds outbound HTTP settings.
type FetchConfig struct {
	AllowNetwork bool     `envconfig:"BOXFS_ALLOW_NETWORK" default:"true" yaml:"allow_network" toml:"allow_network" json:"allow_network"`
	RichClient   bool     `envconfig:"BOXFS_RICH_HTTP" default:"true" yaml:"rich_client" toml:"rich_client" json:"rich_client"`
	Timeout      Duration `envconfig:"FETCH_TIMEOUT" default:"300s" yaml:"timeout" toml:"timeout" json:"timeout"`
	MaxRedirects int      `envconfig:"FETCH_MAX_REDIRECTS" default:"10" yaml:"max_redirects" toml:"max_redirects" json:"max_redirects"`
	InsecureTLS  bool     `envconfig:"FETCH_INSECURE_TLS" default:"false" yaml:"insecure_tls" toml:"insecure_tls" json:"insecure_tls"`
	UserAgent    string   `envconfig:"FETCH_USER_AGENT" default:"boxfs/1.0" yaml:"user_agent" toml:"user_agent" json:"user_agent"`
	RateLimit    float64  `envconfig:"FETCH_RATE_LIMIT" default:"0" yaml:"rate_limit" toml:"rate_limit" json:"rate_limit"`

	BreakerThreshold uint32   `envconfig:"FETCH_BREAKER_THRESHOLD" default:"5" yaml:"breaker_threshold" toml:"breaker_threshold" json:"breaker_threshold"`
	BreakerCooldown  Duration `envconfig:"FETCH_BREAKER_COOLDOWN" default:"30s" yaml:"breaker_cooldown" toml:"breaker_cooldown" json:"breaker_cooldown"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level" json:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development" json:"development"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Namespace string `envconfig:"METRICS_NAMESPACE" default:"boxfs" yaml:"namespace" toml:"namespace" json:"namespace"`
}

// Duration is a time.Duration written as "300s" in files and the environment.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile loads the environment configuration and overlays the file at path. The format
// follows the extension: .yaml/.yml, .toml or .json. Keys missing from the file keep their
// environment or default value.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".json":
		err = sonic.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config file format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Root: RootConfig{
			Path: ".",
		},
		Archive: ArchiveConfig{
			Native:     true,
			AllowShell: true,
			TarBinary:  "tar",
		},
		Fetch: FetchConfig{
			AllowNetwork: true,
			RichClient:   true,
			Timeout:      Duration(300 * time.Second),
			MaxRedirects: 10,
			UserAgent:    "boxfs/1.0",

			BreakerThreshold: 5,
			BreakerCooldown:  Duration(30 * time.Second),
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Metrics: MetricsConfig{
			Namespace: "boxfs",
		},
	}
}

// Validate checks values that cannot be caught by parsing alone.
func (c *Config) Validate() error {
	if c.Root.Path == "" {
		return fmt.Errorf("root path is required")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.Fetch.MaxRedirects < 0 {
		return fmt.Errorf("fetch max redirects cannot be negative")
	}
	if c.Fetch.RateLimit < 0 {
		return fmt.Errorf("fetch rate limit cannot be negative")
	}
	if c.Fetch.BreakerCooldown <= 0 {
		return fmt.Errorf("fetch breaker cooldown must be positive")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}
