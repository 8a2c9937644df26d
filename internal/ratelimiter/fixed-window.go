package ratelimiter

import (
	"sync"
	"time"
)

// Limiter admits or rejects a request for a client key. The duration is how
// long the caller should wait before retrying.
type Limiter interface {
	Allow(key string) (bool, time.Duration)
	// Sweep forgets expired windows and reports how many were dropped.
	Sweep() int
}

type Config struct {
	RequestsPerTimeFrame int
	TimeFrame            time.Duration
	Enabled              bool
}

type FixedWindowRateLimiter struct {
	sync.Mutex
	clients map[string]*clientWindow // key: user id, or remote address for anonymous callers
	limit   int
	window  time.Duration
	now     func() time.Time
}

type clientWindow struct {
	count   int
	resetAt time.Time
}

func NewFixedWindowLimiter(limit int, w time.Duration) *FixedWindowRateLimiter {
	return &FixedWindowRateLimiter{
		clients: make(map[string]*clientWindow),
		limit:   limit,
		window:  w,
		now:     time.Now,
	}
}

func (rl *FixedWindowRateLimiter) Allow(key string) (bool, time.Duration) {
	rl.Lock()
	defer rl.Unlock()

	now := rl.now()
	w, ok := rl.clients[key]
	if !ok || !now.Before(w.resetAt) {
		rl.clients[key] = &clientWindow{count: 1, resetAt: now.Add(rl.window)}
		return true, 0
	}
	if w.count < rl.limit {
		w.count++
		return true, 0
	}
	return false, w.resetAt.Sub(now)
}

// Sweep drops expired windows so idle clients do not accumulate.
func (rl *FixedWindowRateLimiter) Sweep() int {
	rl.Lock()
	defer rl.Unlock()

	now := rl.now()
	n := 0
	for k, w := range rl.clients {
		if !now.Before(w.resetAt) {
			delete(rl.clients, k)
			n++
		}
	}
	return n
}
