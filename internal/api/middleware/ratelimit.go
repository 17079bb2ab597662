package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateBucket tracks request counts per key within a time window.
type rateBucket struct {
	count   int
	resetAt time.Time
}

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// ByIP keys on the client address. chi's RealIP middleware sets RemoteAddr.
func ByIP(r *http.Request) string {
	return r.RemoteAddr
}

// ByUser keys on the authenticated username and falls back to the client
// address. Use it behind AuthMiddleware.
func ByUser(r *http.Request) string {
	if claims := GetClaims(r); claims != nil {
		return "user:" + claims.Username
	}
	return r.RemoteAddr
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*rateBucket
	limit       int
	window      time.Duration
	key         KeyFunc
	nextCleanup time.Time
	now         func() time.Time
}

// NewRateLimiter allows limit requests per window for each key (ByIP when nil).
func NewRateLimiter(limit int, window time.Duration, key KeyFunc) *RateLimiter {
	if key == nil {
		key = ByIP
	}
	return &RateLimiter{
		buckets: make(map[string]*rateBucket),
		limit:   limit,
		window:  window,
		key:     key,
		now:     time.Now,
	}
}

// cleanupLocked drops expired buckets at most once per window.
func (rl *RateLimiter) cleanupLocked(now time.Time) {
	if now.Before(rl.nextCleanup) {
		return
	}
	for key, b := range rl.buckets {
		if now.After(b.resetAt) {
			delete(rl.buckets, key)
		}
	}
	rl.nextCleanup = now.Add(rl.window)
}

// RateLimitEntry is one key's current window.
type RateLimitEntry struct {
	Key     string    `json:"key"`
	Count   int       `json:"count"`
	ResetAt time.Time `json:"reset_at"`
}

// RateLimitStatus is returned by the admin API.
type RateLimitStatus struct {
	Limit   int              `json:"limit"`
	Window  string           `json:"window"`
	Entries []RateLimitEntry `json:"entries"`
}

// Status returns the live windows, for the admin API.
func (rl *RateLimiter) Status() RateLimitStatus {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entries := make([]RateLimitEntry, 0, len(rl.buckets))
	now := rl.now()
	for key, b := range rl.buckets {
		if now.Before(b.resetAt) {
			entries = append(entries, RateLimitEntry{
				Key:     key,
				Count:   b.count,
				ResetAt: b.resetAt,
			})
		}
	}
	return RateLimitStatus{
		Limit:   rl.limit,
		Window:  rl.window.String(),
		Entries: entries,
	}
}

// Handler returns an http.Handler middleware that enforces the rate limit.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.key(r)

		rl.mu.Lock()
		now := rl.now()
		rl.cleanupLocked(now)
		b, exists := rl.buckets[key]
		if !exists || now.After(b.resetAt) {
			b = &rateBucket{resetAt: now.Add(rl.window)}
			rl.buckets[key] = b
		}
		b.count++
		allowed := b.count <= rl.limit
		retryAfter := int(b.resetAt.Sub(now).Seconds()) + 1
		rl.mu.Unlock()

		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, "too many requests, try again later", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
