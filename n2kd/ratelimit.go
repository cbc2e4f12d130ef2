package n2kd

import (
	"fmt"
	"time"
)

// rateLimitWindow is the suppression window after a sentence of the same
// (src, kind) has been sent (spec §4.G "Rate limiting").
const rateLimitWindow = 1 * time.Second

// RateLimiter enforces at most one emission per (src, sentence-kind) per
// second when enabled. The zero value is disabled: its Allow always reports
// true.
type RateLimiter struct {
	enabled bool
	last    map[string]time.Time
}

// NewRateLimiter returns a RateLimiter that suppresses repeats when enabled
// is true, matching the server's --rate-limit flag.
func NewRateLimiter(enabled bool) *RateLimiter {
	return &RateLimiter{enabled: enabled, last: make(map[string]time.Time)}
}

// Allow reports whether a sentence of the given kind from src may be sent
// now, and records the emission if so.
func (r *RateLimiter) Allow(src uint8, kind string, now time.Time) bool {
	if !r.enabled {
		return true
	}
	key := fmt.Sprintf("%s/%d", kind, src)
	if last, ok := r.last[key]; ok && now.Sub(last) < rateLimitWindow {
		return false
	}
	r.last[key] = now
	return true
}
