package postprocessing

import (
	"sync"
	"time"
)

// CooldownTable suppresses repeated alerts for the same key within a window
type CooldownTable struct {
	mu       sync.Mutex
	window   time.Duration
	lastSent map[string]time.Time
}

func NewCooldownTable(window time.Duration) *CooldownTable {
	return &CooldownTable{
		window:   window,
		lastSent: make(map[string]time.Time),
	}
}

// Window returns the cooldown window
func (t *CooldownTable) Window() time.Duration {
	return t.window
}

// ShouldEmit reports whether an alert for key may be emitted at now, and if so
// records now against key. A suppressed call leaves the record untouched.
func (t *CooldownTable) ShouldEmit(key string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.lastSent[key]; ok && now.Sub(last) <= t.window {
		return false
	}
	t.lastSent[key] = now
	return true
}

// Evict drops entries last emitted more than maxAge before now and returns
// how many were removed.
func (t *CooldownTable) Evict(now time.Time, maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, last := range t.lastSent {
		if now.Sub(last) > maxAge {
			delete(t.lastSent, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (t *CooldownTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastSent)
}
