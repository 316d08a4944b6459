package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every LOOKOUT_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LOOKOUT_CONFIG",
		"LOOKOUT_BACKEND_URL",
		"LOOKOUT_POLL_INTERVAL",
		"LOOKOUT_HTTP_TIMEOUT",
		"LOOKOUT_BUFFER_SIZE",
		"LOOKOUT_STREAM_RETRIES",
		"LOOKOUT_STUB_PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestNewDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultBufferSize, cfg.BufferSize)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, DefaultStreamRetries, cfg.StreamRetries)
	assert.Equal(t, DefaultStubPort, cfg.StubPort)
}

func TestNewEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOKOUT_BACKEND_URL", "http://backend.internal:8080")
	t.Setenv("LOOKOUT_POLL_INTERVAL", "500ms")
	t.Setenv("LOOKOUT_BUFFER_SIZE", "250")
	t.Setenv("LOOKOUT_STREAM_RETRIES", "0")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "http://backend.internal:8080", cfg.BackendURL)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 250, cfg.BufferSize)
	assert.Equal(t, 0, cfg.StreamRetries, "zero retries means no reconnect attempts")
}

func TestNewBareIntegerDurationsAreSeconds(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOKOUT_POLL_INTERVAL", "5")
	t.Setenv("LOOKOUT_HTTP_TIMEOUT", "30")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestNewConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "lookout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"backend_url: http://file.example:9000\nbuffer_size: 42\n"), 0o644))
	t.Setenv("LOOKOUT_CONFIG", path)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "http://file.example:9000", cfg.BackendURL)
	assert.Equal(t, 42, cfg.BufferSize)
	// Unset file fields keep their defaults.
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
}

func TestNewEnvWinsOverFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "lookout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend_url: http://file.example:9000\n"), 0o644))
	t.Setenv("LOOKOUT_CONFIG", path)
	t.Setenv("LOOKOUT_BACKEND_URL", "http://env.example:9001")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "http://env.example:9001", cfg.BackendURL)
}

func TestNewRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad scheme", "LOOKOUT_BACKEND_URL", "localhost:3001"},
		{"unparseable interval", "LOOKOUT_POLL_INTERVAL", "soon"},
		{"negative interval", "LOOKOUT_POLL_INTERVAL", "-2s"},
		{"negative buffer", "LOOKOUT_BUFFER_SIZE", "-1"},
		{"zero buffer", "LOOKOUT_BUFFER_SIZE", "0"},
		{"port out of range", "LOOKOUT_STUB_PORT", "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := New()
			assert.Error(t, err)
		})
	}
}

func TestNewMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOKOUT_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		BackendURL:    "https://host",
		PollInterval:  time.Second,
		BufferSize:    10,
		HTTPTimeout:   time.Second,
		StreamRetries: 0,
		StubPort:      3001,
	}
	require.NoError(t, cfg.Validate())

	cfg.StreamRetries = -1
	assert.Error(t, cfg.Validate())
}
