package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("BOTASAURUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Server.TLSEnabled())

	assert.Empty(t, cfg.Gateway.APIKeys)
	assert.Equal(t, 60, cfg.Gateway.RateLimit)
	assert.Equal(t, time.Minute, cfg.Gateway.RateWindow)
	assert.Equal(t, 10, cfg.Gateway.Workers)
	assert.Equal(t, 60*time.Second, cfg.Gateway.UpstreamTimeout)

	assert.Equal(t, "chrome_120", cfg.Engine.ClientProfile)
	assert.True(t, cfg.Engine.FollowRedirects)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 9090, cfg.Metrics.Port)

	assert.Same(t, cfg, GetConfig())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8443
  tls_cert_file: cert.crt
  tls_key_file: cert.key
gateway:
  api_keys: ["test-key-123", " another-key-456 ", ""]
  rate_limit: 5
  rate_window: 10s
engine:
  client_profile: firefox_117
`), 0o600))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 8443, cfg.Server.Port)
	assert.True(t, cfg.Server.TLSEnabled())
	assert.Equal(t, []string{"test-key-123", "another-key-456"}, cfg.Gateway.APIKeys)
	assert.Equal(t, 5, cfg.Gateway.RateLimit)
	assert.Equal(t, 10*time.Second, cfg.Gateway.RateWindow)
	assert.Equal(t, "firefox_117", cfg.Engine.ClientProfile)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BOTASAURUS_GATEWAY_API_KEYS", "k1,k2")
	t.Setenv("BOTASAURUS_GATEWAY_WORKERS", "3")
	t.Setenv("BOTASAURUS_GATEWAY_UPSTREAM_TIMEOUT", "15s")

	cfg, err := Load(newViper())
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Gateway.APIKeys)
	assert.Equal(t, 3, cfg.Gateway.Workers)
	assert.Equal(t, 15*time.Second, cfg.Gateway.UpstreamTimeout)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	v := newViper()
	v.Set("gateway.workers", 0)
	v.Set("server.tls_cert_file", "only-cert.pem")

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway.workers")
	assert.Contains(t, err.Error(), "tls_key_file")
}

func TestRedactedMasksKeys(t *testing.T) {
	cfg := &Config{Gateway: GatewayConfig{APIKeys: []string{"test-key-123", "abc"}}}
	redacted := cfg.Redacted()

	assert.Equal(t, []string{"test****", "****"}, redacted.Gateway.APIKeys)
	assert.Equal(t, "test-key-123", cfg.Gateway.APIKeys[0])
}
