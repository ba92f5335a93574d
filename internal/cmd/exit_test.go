package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"

	errwrap "github.com/yaelahrip/botasaurus-requests/internal/errors"
)

func TestWriteFatalPlainError(t *testing.T) {
	var buf bytes.Buffer
	code := writeFatal(&buf, foundry.ExitConfigInvalid, "Invalid configuration", errors.New("gateway.workers must be positive"))

	assert.Equal(t, int(foundry.ExitConfigInvalid), code)
	assert.Contains(t, buf.String(), "FATAL: Invalid configuration: gateway.workers must be positive")
	assert.Contains(t, buf.String(), "Exit Code:")
}

func TestWriteFatalEnvelope(t *testing.T) {
	var buf bytes.Buffer
	writeFatal(&buf, foundry.ExitFailure, "Command execution failed", errwrap.NewConfigInvalidError("bad value"))

	assert.Contains(t, buf.String(), "[CONFIG_INVALID]: bad value")
}

func TestExitWithCodeStderrUsesCatalogCode(t *testing.T) {
	var got int
	original := osExit
	osExit = func(code int) { got = code }
	t.Cleanup(func() { osExit = original })

	ExitWithCodeStderr(foundry.ExitConfigInvalid, "bad", nil)
	assert.Equal(t, int(foundry.ExitConfigInvalid), got)
}
