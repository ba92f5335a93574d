package gateway

import (
	"context"
	"crypto/subtle"
	"strings"
	"sync"
	"time"
)

// Default admission parameters.
const (
	DefaultRateLimit  = 60
	DefaultRateWindow = time.Minute
)

// Decision is the outcome of an admission check.
type Decision int

const (
	Admit Decision = iota
	Unauthorized
	RateLimited
)

func (d Decision) String() string {
	switch d {
	case Admit:
		return "admitted"
	case Unauthorized:
		return "unauthorized"
	case RateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Admission is the typed result handed from the guard to the endpoint.
type Admission struct {
	Decision   Decision
	Key        string
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Allowed reports whether the request may proceed.
func (a Admission) Allowed() bool {
	return a.Decision == Admit
}

// Gate validates API keys against a fixed allow-list and applies the
// per-key sliding-window quota.
type Gate struct {
	mu     sync.RWMutex
	keys   []string
	Store  WindowStore
	Limit  int
	Window time.Duration
	Clock  func() time.Time
}

// NewGate builds a gate over the allow-list. Blank keys are ignored.
func NewGate(keys []string, store WindowStore, limit int, window time.Duration) *Gate {
	if store == nil {
		store = NewMemoryWindowStore()
	}
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &Gate{
		keys:   normalizeKeys(keys),
		Store:  store,
		Limit:  limit,
		Window: window,
	}
}

// ReplaceKeys swaps the allow-list. Windows of keys that remain allowed are
// kept; a removed key is rejected from the next request on.
func (g *Gate) ReplaceKeys(keys []string) {
	allowed := normalizeKeys(keys)
	g.mu.Lock()
	g.keys = allowed
	g.mu.Unlock()
}

// KeyCount returns the size of the allow-list.
func (g *Gate) KeyCount() int {
	if g == nil {
		return 0
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.keys)
}

func normalizeKeys(keys []string) []string {
	allowed := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		allowed = append(allowed, key)
	}
	return allowed
}

// Admit checks key and, when it is allowed and under quota, records the
// request in its window before returning. Unknown keys never touch the
// window table.
func (g *Gate) Admit(ctx context.Context, key string) Admission {
	if g == nil || !g.known(key) {
		return Admission{Decision: Unauthorized}
	}

	now := g.now()
	admitted, remaining, oldest := g.Store.TryAdmit(key, now, g.Window, g.Limit)
	if !admitted {
		return Admission{
			Decision:   RateLimited,
			Key:        key,
			Limit:      g.Limit,
			RetryAfter: retryAfter(oldest, g.Window, now),
		}
	}

	return Admission{
		Decision:  Admit,
		Key:       key,
		Limit:     g.Limit,
		Remaining: remaining,
	}
}

func (g *Gate) known(key string) bool {
	if key == "" {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	found := 0
	for _, candidate := range g.keys {
		found |= subtle.ConstantTimeCompare([]byte(candidate), []byte(key))
	}
	return found == 1
}

func (g *Gate) now() time.Time {
	if g != nil && g.Clock != nil {
		return g.Clock()
	}
	return time.Now()
}

// retryAfter is the whole number of seconds after which the oldest logged
// request has strictly left the window.
func retryAfter(oldest time.Time, window time.Duration, now time.Time) time.Duration {
	if oldest.IsZero() {
		return time.Second
	}
	wait := oldest.Add(window).Sub(now)
	if wait < 0 {
		return time.Second
	}
	return wait.Truncate(time.Second) + time.Second
}

// MaskKey shortens an API key for logs.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + strings.Repeat("*", 4)
}
