// Package config provides configuration management for the Lookout CLI.
// Values come from an optional YAML config file overlaid by environment
// variables, with sensible defaults for everything.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for every tunable.
const (
	// DefaultBackendURL is the base origin of the orchestration backend.
	DefaultBackendURL = "http://localhost:3001"

	// DefaultPollInterval is the cadence of history snapshot fetches.
	DefaultPollInterval = 2 * time.Second

	// DefaultBufferSize is the capacity of the live event buffer.
	DefaultBufferSize = 100

	// DefaultHTTPTimeout bounds every outbound REST request.
	DefaultHTTPTimeout = 10 * time.Second

	// DefaultStreamRetries is the reconnect attempt cap for the live stream.
	DefaultStreamRetries = 5

	// DefaultStubPort is the listen port of the local stub backend.
	DefaultStubPort = 3001
)

// Config holds all configuration for the Lookout CLI.
type Config struct {
	// BackendURL is the base origin of the backend, e.g. http://host:port
	BackendURL string `yaml:"backend_url"`

	// PollInterval is the history poller cadence
	PollInterval time.Duration `yaml:"poll_interval"`

	// BufferSize is the live event buffer capacity
	BufferSize int `yaml:"buffer_size"`

	// HTTPTimeout is the per-request timeout for REST calls
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// StreamRetries caps reconnect attempts for the live stream
	StreamRetries int `yaml:"stream_retries"`

	// StubPort is the listen port used by `lookout stub`
	StubPort int `yaml:"stub_port"`
}

// New builds a Config from the optional file named by LOOKOUT_CONFIG and
// the LOOKOUT_* environment variables. Environment values win over the
// file; the file wins over defaults.
func New() (*Config, error) {
	cfg := &Config{
		BackendURL:    DefaultBackendURL,
		PollInterval:  DefaultPollInterval,
		BufferSize:    DefaultBufferSize,
		HTTPTimeout:   DefaultHTTPTimeout,
		StreamRetries: DefaultStreamRetries,
		StubPort:      DefaultStubPort,
	}

	if path := os.Getenv("LOOKOUT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays values from a YAML config file. Zero values in the
// file leave the current value untouched.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if file.BackendURL != "" {
		c.BackendURL = file.BackendURL
	}
	if file.PollInterval > 0 {
		c.PollInterval = file.PollInterval
	}
	if file.BufferSize > 0 {
		c.BufferSize = file.BufferSize
	}
	if file.HTTPTimeout > 0 {
		c.HTTPTimeout = file.HTTPTimeout
	}
	if file.StreamRetries > 0 {
		c.StreamRetries = file.StreamRetries
	}
	if file.StubPort > 0 {
		c.StubPort = file.StubPort
	}
	return nil
}

// loadEnv overlays values from LOOKOUT_* environment variables.
func (c *Config) loadEnv() error {
	if v := os.Getenv("LOOKOUT_BACKEND_URL"); v != "" {
		c.BackendURL = v
	}

	interval, err := parseDurationEnv("LOOKOUT_POLL_INTERVAL", c.PollInterval)
	if err != nil {
		return err
	}
	c.PollInterval = interval

	timeout, err := parseDurationEnv("LOOKOUT_HTTP_TIMEOUT", c.HTTPTimeout)
	if err != nil {
		return err
	}
	c.HTTPTimeout = timeout

	bufferSize, err := parseIntEnv("LOOKOUT_BUFFER_SIZE", c.BufferSize)
	if err != nil {
		return err
	}
	c.BufferSize = bufferSize

	retries, err := parseIntEnv("LOOKOUT_STREAM_RETRIES", c.StreamRetries)
	if err != nil {
		return err
	}
	c.StreamRetries = retries

	stubPort, err := parseIntEnv("LOOKOUT_STUB_PORT", c.StubPort)
	if err != nil {
		return err
	}
	c.StubPort = stubPort

	return nil
}

// Validate checks the assembled configuration for consistency.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend URL cannot be empty")
	}
	if !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		return fmt.Errorf("backend URL must start with http:// or https://, got: %s", c.BackendURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got: %s", c.PollInterval)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive, got: %d", c.BufferSize)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive, got: %s", c.HTTPTimeout)
	}
	if c.StreamRetries < 0 {
		return fmt.Errorf("stream retries cannot be negative, got: %d", c.StreamRetries)
	}
	if c.StubPort < 1 || c.StubPort > 65535 {
		return fmt.Errorf("stub port must be between 1 and 65535, got: %d", c.StubPort)
	}
	return nil
}

// parseDurationEnv parses a duration environment variable. Plain integers
// are taken as seconds, so LOOKOUT_POLL_INTERVAL=2 and =2s are equivalent.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("%s must be positive, got: %d", key, secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got: %s", key, d)
	}
	return d, nil
}

// parseIntEnv parses a non-negative integer environment variable.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s cannot be negative, got: %d", key, n)
	}
	return n, nil
}
