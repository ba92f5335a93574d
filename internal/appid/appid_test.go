package appid

import (
	"context"
	"testing"
)

func TestGetReturnsBuiltinIdentity(t *testing.T) {
	t.Setenv(EnvBinaryName, "")

	identity, err := Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if identity.BinaryName != "botasaurus-server" {
		t.Fatalf("unexpected binary name %q", identity.BinaryName)
	}
	if identity.EnvPrefix == "" || identity.ConfigName == "" {
		t.Fatalf("expected env prefix and config name to be set")
	}
}

func TestGetHonorsBinaryNameOverride(t *testing.T) {
	t.Setenv(EnvBinaryName, "gateway")

	identity, err := Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if identity.BinaryName != "gateway" {
		t.Fatalf("expected override, got %q", identity.BinaryName)
	}

	again, _ := Get(context.Background())
	again.BinaryName = "mutated"
	if fresh, _ := Get(context.Background()); fresh.BinaryName != "gateway" {
		t.Fatalf("Get must return a copy")
	}
}

func TestTelemetryNamespaceAndEnvKey(t *testing.T) {
	identity := &Identity{ConfigName: "Bota-Saurus", EnvPrefix: "BOTA"}
	if got := identity.TelemetryNamespace(); got != "bota_saurus" {
		t.Fatalf("unexpected namespace %q", got)
	}
	if got := identity.EnvKey("API_KEYS"); got != "BOTA_API_KEYS" {
		t.Fatalf("unexpected env key %q", got)
	}
}
