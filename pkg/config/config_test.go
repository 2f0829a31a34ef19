package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.Signaling.PingInterval)
	assert.Equal(t, []string{"*"}, cfg.Signaling.AllowedOrigins)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MODE", "test")
	t.Setenv("ADDR", ":9999")
	t.Setenv("PING_INTERVAL", "5s")
	t.Setenv("SEND_BUFFER", "8")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LIMIT_PER_SEC", "0")

	require.NoError(t, Load())
	cfg := GlobalConfig
	assert.Equal(t, "test", cfg.Mode)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Signaling.PingInterval)
	assert.Equal(t, 8, cfg.Signaling.SendBuffer)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Signaling.AllowedOrigins)
	assert.Zero(t, cfg.Signaling.RateLimitPerSec)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("MODE", "staging")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.staging"), []byte("SERVER_NAME=from-file\nPING_INTERVAL=12\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("SERVER_NAME")
		os.Unsetenv("PING_INTERVAL")
	})

	require.NoError(t, Load())
	assert.Equal(t, "from-file", GlobalConfig.ServerName)
	assert.Equal(t, 12*time.Second, GlobalConfig.Signaling.PingInterval)
}

func writeKeyPair(t *testing.T) (cert, key string) {
	t.Helper()
	dir := t.TempDir()
	cert = filepath.Join(dir, "server.crt")
	key = filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o600))
	require.NoError(t, os.WriteFile(key, []byte("key"), 0o600))
	return cert, key
}

func TestValidate_TLS(t *testing.T) {
	cert, key := writeKeyPair(t)
	cfg := Default()
	cfg.SSLEnabled = true
	cfg.SSLCertFile = cert
	cfg.SSLKeyFile = key
	require.NoError(t, cfg.Validate())

	cfg.SSLKeyFile = ""
	assert.Error(t, cfg.Validate())

	// paths are ignored while TLS is off
	cfg.SSLEnabled = false
	assert.NoError(t, cfg.Validate())
}

func TestLoad_TLSFromEnv(t *testing.T) {
	cert, key := writeKeyPair(t)
	t.Chdir(t.TempDir())
	t.Setenv("SSL_ENABLED", "true")
	t.Setenv("SSL_CERT_FILE", cert)
	t.Setenv("SSL_KEY_FILE", key)

	require.NoError(t, Load())
	assert.True(t, GlobalConfig.SSLEnabled)
	assert.Equal(t, cert, GlobalConfig.SSLCertFile)
	assert.Equal(t, key, GlobalConfig.SSLKeyFile)

	t.Setenv("SSL_KEY_FILE", filepath.Join(t.TempDir(), "absent.key"))
	assert.Error(t, Load())
}

func TestLoad_InvalidTURN(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ICE_SERVERS", "turn:turn.example:3478")

	assert.Error(t, Load())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"zero ping", func(c *Config) { c.Signaling.PingInterval = 0 }},
		{"zero write wait", func(c *Config) { c.Signaling.WriteWait = 0 }},
		{"zero message size", func(c *Config) { c.Signaling.MaxMessageSize = 0 }},
		{"zero send buffer", func(c *Config) { c.Signaling.SendBuffer = 0 }},
		{"negative rate", func(c *Config) { c.Signaling.RateLimitPerSec = -1 }},
		{"zero burst", func(c *Config) { c.Signaling.RateLimitBurst = 0 }},
		{"no ice", func(c *Config) { c.ICE.URLs = nil }},
		{"tls without files", func(c *Config) { c.SSLEnabled = true }},
		{"tls missing cert", func(c *Config) {
			c.SSLEnabled = true
			c.SSLCertFile = filepath.Join(os.TempDir(), "lingsignal-missing.crt")
			c.SSLKeyFile = filepath.Join(os.TempDir(), "lingsignal-missing.key")
		}},
		{"tls cert is dir", func(c *Config) {
			c.SSLEnabled = true
			c.SSLCertFile = os.TempDir()
			c.SSLKeyFile = os.TempDir()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
