package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedWindowLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewFixedWindowLimiter(2, 5*time.Second)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("u1")
	assert.True(t, ok)
	ok, _ = rl.Allow("u1")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	ok, retry := rl.Allow("u1")
	assert.False(t, ok)
	assert.Equal(t, 3*time.Second, retry)

	ok, _ = rl.Allow("u2")
	assert.True(t, ok, "keys are limited independently")

	now = now.Add(3 * time.Second)
	ok, _ = rl.Allow("u1")
	assert.True(t, ok, "window resets")
}

func TestSweepDropsExpiredWindows(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewFixedWindowLimiter(1, time.Second)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(500 * time.Millisecond)
	rl.Allow("b")
	now = now.Add(600 * time.Millisecond)

	assert.Equal(t, 1, rl.Sweep())
	assert.Len(t, rl.clients, 1)
}
