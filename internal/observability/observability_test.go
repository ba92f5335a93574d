package observability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yaelahrip/botasaurus-requests/internal/observability"
)

func TestInitCLILogger(t *testing.T) {
	require.NoError(t, observability.InitCLILogger("test-service", true))
	require.NotNil(t, observability.CLILogger)
	observability.CLILogger.Debug("verbose message", zap.String("mode", "test"))
}

func TestInitServerLoggerProfiles(t *testing.T) {
	for _, profile := range []string{"structured", "simple", ""} {
		err := observability.InitServerLogger(observability.LoggerOptions{
			Service:   "test-service",
			Level:     "debug",
			Profile:   profile,
			Namespace: "botasaurus",
		})
		require.NoError(t, err, profile)
		require.NotNil(t, observability.ServerLogger)
		observability.ServerLogger.Info("structured message", zap.String("profile", profile))
	}
}

func TestReloadServerLogLevelReplacesLogger(t *testing.T) {
	require.NoError(t, observability.InitServerLogger(observability.LoggerOptions{Service: "reload", Level: "info"}))
	before := observability.ServerLogger

	require.NoError(t, observability.ReloadServerLogLevel("INFO"))
	assert.Same(t, before, observability.ServerLogger)

	require.NoError(t, observability.ReloadServerLogLevel("debug"))
	assert.NotSame(t, before, observability.ServerLogger)
}

func TestStopMetricsWithoutExporter(t *testing.T) {
	observability.PrometheusExporter = nil
	require.NoError(t, observability.StopMetrics())
	assert.Nil(t, observability.TelemetrySystem)
}
