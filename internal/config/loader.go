// Package config loads the gateway configuration from viper into typed
// structs.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers every known key on v. Keys must be registered for
// environment variables to be picked up by AllSettings.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.tls_cert_file", "")
	v.SetDefault("server.tls_key_file", "")

	v.SetDefault("gateway.api_keys", []string{})
	v.SetDefault("gateway.rate_limit", 60)
	v.SetDefault("gateway.rate_window", "60s")
	v.SetDefault("gateway.workers", 10)
	v.SetDefault("gateway.upstream_timeout", "60s")
	v.SetDefault("gateway.staging_dir", "")
	v.SetDefault("gateway.max_upload_bytes", 32<<20)
	v.SetDefault("gateway.max_body_bytes", 10<<20)

	v.SetDefault("engine.client_profile", "chrome_120")
	v.SetDefault("engine.timeout", "60s")
	v.SetDefault("engine.follow_redirects", true)
	v.SetDefault("engine.insecure_skip_verify", false)
	v.SetDefault("engine.proxy_url", "")
	v.SetDefault("engine.max_body_bytes", 32<<20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)
}

// Load decodes the settings held by v into a Config and validates it. It is
// safe to call again on reload.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Gateway.APIKeys = cleanKeys(cfg.Gateway.APIKeys)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		problems = append(problems, "server.tls_cert_file and server.tls_key_file must be set together")
	}
	if c.Gateway.RateLimit <= 0 {
		problems = append(problems, "gateway.rate_limit must be positive")
	}
	if c.Gateway.RateWindow <= 0 {
		problems = append(problems, "gateway.rate_window must be positive")
	}
	if c.Gateway.Workers <= 0 {
		problems = append(problems, "gateway.workers must be positive")
	}
	if c.Gateway.UpstreamTimeout <= 0 {
		problems = append(problems, "gateway.upstream_timeout must be positive")
	}
	if c.Gateway.MaxUploadBytes < 0 || c.Gateway.MaxBodyBytes < 0 || c.Engine.MaxBodyBytes < 0 {
		problems = append(problems, "size limits must not be negative")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// Redacted returns a copy safe to print: API keys are masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Gateway.APIKeys = make([]string, len(c.Gateway.APIKeys))
	for i, key := range c.Gateway.APIKeys {
		out.Gateway.APIKeys[i] = maskKey(key)
	}
	return &out
}

// GetConfig returns the most recently loaded configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath(configName string) string {
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

func cleanKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			out = append(out, key)
		}
	}
	return out
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
