package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// RateLimiter decides whether a request identified by key may proceed
// within the current window.
type RateLimiter interface {
	Allow(key string) (allowed bool, remaining int, resetAt time.Time)
	Limit() int
}

type windowEntry struct {
	count   *atomic.Int64
	resetAt time.Time
}

// fixedWindowLimiter counts requests per key in fixed windows. Entries
// whose window has passed are swept periodically.
type fixedWindowLimiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	limit   int
	window  time.Duration
}

func newFixedWindowLimiter(limit int, window time.Duration) *fixedWindowLimiter {
	l := &fixedWindowLimiter{
		entries: make(map[string]*windowEntry),
		limit:   limit,
		window:  window,
	}
	go l.sweep()
	return l
}

func (l *fixedWindowLimiter) Limit() int { return l.limit }

func (l *fixedWindowLimiter) Allow(key string) (bool, int, time.Time) {
	now := time.Now()

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		e = &windowEntry{count: atomic.NewInt64(0), resetAt: now.Add(l.window)}
		l.entries[key] = e
	}
	l.mu.Unlock()

	n := e.count.Inc()
	remaining := l.limit - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return n <= int64(l.limit), remaining, e.resetAt
}

func (l *fixedWindowLimiter) sweep() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		l.mu.Lock()
		for key, e := range l.entries {
			if now.After(e.resetAt) {
				delete(l.entries, key)
			}
		}
		l.mu.Unlock()
	}
}

// rateLimit wraps a handler with per-client-IP limiting and sets the
// RateLimit-* response headers.
func rateLimit(limiter RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr + "|" + r.URL.Path
		allowed, remaining, resetAt := limiter.Allow(key)

		resetSecs := int(time.Until(resetAt).Seconds())
		if resetSecs < 0 {
			resetSecs = 0
		}
		w.Header().Set("RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		w.Header().Set("RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("RateLimit-Reset", strconv.Itoa(resetSecs))

		if !allowed {
			respondWithError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		next(w, r)
	}
}
