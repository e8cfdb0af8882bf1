package alerting

import (
	"sync"
	"time"
)

// Cooldown suppresses repeat alerts for the same key within a window.
type Cooldown struct {
	window time.Duration
	mu     sync.Mutex
	last   map[string]time.Time
}

// NewCooldown returns a gate that allows one alert per key per window.
// A non-positive window never suppresses anything.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{window: window, last: make(map[string]time.Time)}
}

// Allow reports whether key may alert at ts and, if so, starts a new window.
func (c *Cooldown) Allow(key string, ts time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.last[key]; ok && c.window > 0 && ts.Sub(prev) < c.window {
		return false
	}
	c.last[key] = ts
	return true
}
