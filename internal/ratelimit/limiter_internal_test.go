package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRemainingTracksCurrentWindow(t *testing.T) {
	current := time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)
	limiter, err := NewFixedWindowLimiter(DefaultConfig(), WithClock(func() time.Time { return current }))
	require.NoError(t, err)

	require.Equal(t, DefaultMaxAttempts, limiter.remaining("203.0.113.10"))
	require.True(t, limiter.TryConsume("203.0.113.10"))
	require.Equal(t, DefaultMaxAttempts-1, limiter.remaining("203.0.113.10"))

	for limiter.TryConsume("203.0.113.10") {
	}
	require.Zero(t, limiter.remaining("203.0.113.10"))
	require.Equal(t, DefaultMaxAttempts, limiter.remaining("198.51.100.20"))

	require.True(t, limiter.TryConsume(""))
	require.Equal(t, DefaultMaxAttempts-1, limiter.remaining("  "), "blank keys share the unknown bucket")

	current = current.Add(DefaultWindow + time.Second)
	require.Equal(t, DefaultMaxAttempts, limiter.remaining("203.0.113.10"))
}
