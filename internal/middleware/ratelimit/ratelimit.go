// Package ratelimit provides a per-client in-memory rate limiter for the
// invoice API's mutating endpoints.
package ratelimit

import (
	"net/http"
	"sync"
	"time"
)

// Config holds rate limiter settings.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

// Limiter counts requests per client over a fixed one-minute window. State
// for idle clients is dropped by a background cleanup goroutine.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	limit int
	stop  chan struct{}
	once  sync.Once
}

type window struct {
	startedAt time.Time
	count     int
}

// NewLimiter starts the limiter and its cleanup loop. Call Stop when done.
func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config = DefaultConfig()
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}

	rl := &Limiter{
		windows: make(map[string]*window),
		limit:   config.RequestsPerMinute,
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop(config.CleanupInterval)
	return rl
}

// Allow reports whether the client identified by key may make another
// request in its current window.
func (rl *Limiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w := rl.windows[key]
	if w == nil || now.Sub(w.startedAt) > time.Minute {
		rl.windows[key] = &window{startedAt: now, count: 1}
		return true
	}
	w.count++
	return w.count <= rl.limit
}

// ActiveClients returns the number of currently tracked clients.
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
func (rl *Limiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.dropIdle()
		case <-rl.stop:
			return
		}
	}
}

// dropIdle forgets clients whose window started long enough ago that their
// count no longer matters.
func (rl *Limiter) dropIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for key, w := range rl.windows {
		if w.startedAt.Before(cutoff) {
			delete(rl.windows, key)
		}
	}
}

// Middleware creates HTTP middleware that rate-limits mutating requests.
// Reads pass through untouched; only methods in limitMethods count against
// the client's budget.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, limitMethods ...string) func(http.Handler) http.Handler {
	limited := make(map[string]bool, len(limitMethods))
	for _, m := range limitMethods {
		limited[m] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(limited) > 0 && !limited[r.Method] {
				next.ServeHTTP(w, r)
				return
			}

			if !rl.Allow(extractIP(r)) {
				w.Header().Set("Retry-After", "60")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded, try again later"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
