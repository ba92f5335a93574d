// Package appid holds the identity of the gateway binary: the names used for
// CLI help, config discovery, environment variables and telemetry.
package appid

import (
	"context"
	"os"
	"strings"
)

// Identity describes the application.
type Identity struct {
	Vendor      string
	BinaryName  string
	ConfigName  string
	EnvPrefix   string
	Description string
}

// EnvBinaryName overrides the reported binary name, for repackaged builds.
const EnvBinaryName = "BOTASAURUS_BINARY_NAME"

var builtin = Identity{
	Vendor:      "botasaurus",
	BinaryName:  "botasaurus-server",
	ConfigName:  "botasaurus",
	EnvPrefix:   "BOTASAURUS_",
	Description: "API-key gated request gateway with browser TLS fingerprints",
}

// Get returns a copy of the application identity.
func Get(ctx context.Context) (*Identity, error) {
	identity := builtin
	if name := strings.TrimSpace(os.Getenv(EnvBinaryName)); name != "" {
		identity.BinaryName = name
	}
	return &identity, nil
}

// TelemetryNamespace is the metric prefix derived from the config name.
func (i *Identity) TelemetryNamespace() string {
	if i == nil {
		return ""
	}
	name := i.ConfigName
	if name == "" {
		name = i.BinaryName
	}
	return strings.NewReplacer("-", "_", ".", "_").Replace(strings.ToLower(name))
}

// EnvKey prefixes name with the identity's env prefix.
func (i *Identity) EnvKey(name string) string {
	prefix := i.EnvPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return prefix + name
}
