package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate(now *time.Time) (*Gate, *MemoryWindowStore) {
	store := NewMemoryWindowStore()
	gate := NewGate([]string{"test-key-123", "another-key-456"}, store, 60, time.Minute)
	gate.Clock = func() time.Time { return *now }
	return gate, store
}

func TestGateRejectsUnknownKeysWithoutTouchingWindows(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	gate, store := newTestGate(&now)

	for _, key := range []string{"", "nope", "test-key-12", "test-key-1234"} {
		admission := gate.Admit(context.Background(), key)
		assert.Equal(t, Unauthorized, admission.Decision, "key %q", key)
	}
	assert.Equal(t, 0, store.Keys())
}

func TestGateSixtyFirstRequestIsRateLimited(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	gate, store := newTestGate(&now)

	for i := 0; i < 60; i++ {
		admission := gate.Admit(context.Background(), "test-key-123")
		require.True(t, admission.Allowed(), "request %d", i+1)
		require.Equal(t, 59-i, admission.Remaining)
		now = now.Add(100 * time.Millisecond)
	}

	admission := gate.Admit(context.Background(), "test-key-123")
	require.Equal(t, RateLimited, admission.Decision)
	require.Equal(t, 60, store.Len("test-key-123"))
	require.Greater(t, admission.RetryAfter, time.Duration(0))

	// Other keys have their own window.
	require.True(t, gate.Admit(context.Background(), "another-key-456").Allowed())
}

func TestGateRecoversCapacityOneForOne(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	gate, _ := newTestGate(&now)

	for i := 0; i < 60; i++ {
		require.True(t, gate.Admit(context.Background(), "test-key-123").Allowed())
		now = now.Add(time.Second)
	}
	require.False(t, gate.Admit(context.Background(), "test-key-123").Allowed())

	// Exactly 60s after the oldest entry it still counts.
	now = start.Add(60 * time.Second)
	require.False(t, gate.Admit(context.Background(), "test-key-123").Allowed())

	// Past 60s the oldest entry is evicted, freeing one slot.
	now = start.Add(60*time.Second + time.Millisecond)
	require.True(t, gate.Admit(context.Background(), "test-key-123").Allowed())
	require.False(t, gate.Admit(context.Background(), "test-key-123").Allowed())

	// The second oldest entry expires one second later.
	now = start.Add(61*time.Second + time.Millisecond)
	require.True(t, gate.Admit(context.Background(), "test-key-123").Allowed())
}

func TestGateRetryAfterPointsPastOldestEntry(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	gate, _ := newTestGate(&now)

	for i := 0; i < 60; i++ {
		require.True(t, gate.Admit(context.Background(), "test-key-123").Allowed())
	}
	now = start.Add(20 * time.Second)

	admission := gate.Admit(context.Background(), "test-key-123")
	require.Equal(t, RateLimited, admission.Decision)
	require.Equal(t, 41*time.Second, admission.RetryAfter)

	now = now.Add(admission.RetryAfter)
	require.True(t, gate.Admit(context.Background(), "test-key-123").Allowed())
}

func TestNewGateDefaultsAndDedup(t *testing.T) {
	gate := NewGate([]string{" a ", "a", "", "b"}, nil, 0, 0)
	assert.Equal(t, 2, gate.KeyCount())
	assert.Equal(t, DefaultRateLimit, gate.Limit)
	assert.Equal(t, DefaultRateWindow, gate.Window)
	assert.True(t, gate.Admit(context.Background(), "a").Allowed())
}

func TestGateReplaceKeys(t *testing.T) {
	gate := NewGate([]string{"old-key"}, nil, 0, 0)
	require.True(t, gate.Admit(context.Background(), "old-key").Allowed())

	gate.ReplaceKeys([]string{"new-key", " "})
	assert.Equal(t, 1, gate.KeyCount())
	assert.Equal(t, Unauthorized, gate.Admit(context.Background(), "old-key").Decision)
	assert.True(t, gate.Admit(context.Background(), "new-key").Allowed())
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", MaskKey("abc"))
	assert.Equal(t, "test****", MaskKey("test-key-123"))
}
