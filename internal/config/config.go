package config

import (
	"time"
)

// Config is the complete gateway configuration. Values come from defaults,
// then the config file, then BOTASAURUS_* environment variables, then flags.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Gateway GatewayConfig `mapstructure:"gateway" yaml:"gateway"`
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Health  HealthConfig  `mapstructure:"health" yaml:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string `mapstructure:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file" yaml:"tls_key_file"`
}

// TLSEnabled reports whether both certificate and key are configured.
func (s ServerConfig) TLSEnabled() bool {
	return s.TLSCertFile != "" && s.TLSKeyFile != ""
}

// GatewayConfig controls admission, staging and dispatch.
type GatewayConfig struct {
	// APIKeys is the allow-list checked against X-API-Key.
	APIKeys []string `mapstructure:"api_keys" yaml:"api_keys"`

	RateLimit       int           `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateWindow      time.Duration `mapstructure:"rate_window" yaml:"rate_window"`
	Workers         int           `mapstructure:"workers" yaml:"workers"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout" yaml:"upstream_timeout"`

	// StagingDir receives uploaded files; empty uses the OS temp dir.
	StagingDir     string `mapstructure:"staging_dir" yaml:"staging_dir"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
	MaxBodyBytes   int64  `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// EngineConfig configures the outbound TLS client.
type EngineConfig struct {
	ClientProfile      string        `mapstructure:"client_profile" yaml:"client_profile"`
	Timeout            time.Duration `mapstructure:"timeout" yaml:"timeout"`
	FollowRedirects    bool          `mapstructure:"follow_redirects" yaml:"follow_redirects"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	ProxyURL           string        `mapstructure:"proxy_url" yaml:"proxy_url"`
	MaxBodyBytes       int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`

	// Profile selects the logging complexity level (simple, structured)
	Profile string `mapstructure:"profile" yaml:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the dedicated Prometheus exporter port. The main server
	// proxies it at /metrics.
	Port int `mapstructure:"port" yaml:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}
