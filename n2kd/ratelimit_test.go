package n2kd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterDisabledAlwaysAllows(t *testing.T) {
	r := NewRateLimiter(false)
	now := time.Now()
	require.True(t, r.Allow(1, "MWV", now))
	require.True(t, r.Allow(1, "MWV", now))
}

func TestRateLimiterSuppressesWithinWindow(t *testing.T) {
	r := NewRateLimiter(true)
	now := time.Now()
	require.True(t, r.Allow(1, "MWV", now))
	require.False(t, r.Allow(1, "MWV", now.Add(500*time.Millisecond)))
	require.True(t, r.Allow(1, "MWV", now.Add(1100*time.Millisecond)))
}

func TestRateLimiterDistinguishesKindsAndSources(t *testing.T) {
	r := NewRateLimiter(true)
	now := time.Now()
	require.True(t, r.Allow(1, "MWV", now))
	require.True(t, r.Allow(2, "MWV", now))
	require.True(t, r.Allow(1, "HDG", now))
}
