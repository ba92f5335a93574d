package gateway

import (
	"sync"
	"time"
)

// WindowStore holds the per-key sliding-window logs. Implementations must
// make TryAdmit atomic per key: evict, count, and append happen as one step.
type WindowStore interface {
	// TryAdmit evicts timestamps older than window, then records now and
	// returns true when fewer than limit timestamps remain. The returned
	// remaining count reflects the log after the decision; oldest is the
	// earliest surviving timestamp (zero when the log is empty).
	TryAdmit(key string, now time.Time, window time.Duration, limit int) (admitted bool, remaining int, oldest time.Time)
}

// MemoryWindowStore keeps every window in process memory. Windows are
// created lazily and never destroyed; each is bounded by the limit.
type MemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]*keyWindow
}

type keyWindow struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// NewMemoryWindowStore returns an empty in-memory store.
func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{windows: make(map[string]*keyWindow)}
}

// TryAdmit implements WindowStore.
func (s *MemoryWindowStore) TryAdmit(key string, now time.Time, window time.Duration, limit int) (bool, int, time.Time) {
	w := s.window(key)

	w.mu.Lock()
	defer w.mu.Unlock()

	evict := 0
	for evict < len(w.timestamps) && now.Sub(w.timestamps[evict]) > window {
		evict++
	}
	if evict > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[evict:]...)
	}

	if len(w.timestamps) >= limit {
		return false, 0, w.timestamps[0]
	}

	w.timestamps = append(w.timestamps, now)
	return true, limit - len(w.timestamps), w.timestamps[0]
}

// Len returns the number of timestamps currently logged for key without
// evicting anything.
func (s *MemoryWindowStore) Len(key string) int {
	s.mu.Lock()
	w, ok := s.windows[key]
	s.mu.Unlock()
	if !ok {
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timestamps)
}

// Keys returns the number of keys with a window.
func (s *MemoryWindowStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *MemoryWindowStore) window(key string) *keyWindow {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		w = &keyWindow{}
		s.windows[key] = w
	}
	return w
}
