package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter counts requests per key in fixed windows.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	now     func() time.Time
	buckets map[string]rateEntry
}

type rateEntry struct {
	count   int
	expires time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		window:  window,
		limit:   limit,
		now:     time.Now,
		buckets: make(map[string]rateEntry),
	}
}

// Allow reports whether key may make another request in the current window.
// A nil limiter allows everything.
func (rl *RateLimiter) Allow(key string) bool {
	if rl == nil {
		return true
	}
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry := rl.buckets[key]
	if now.After(entry.expires) {
		entry = rateEntry{expires: now.Add(rl.window)}
	}
	allowed := entry.count < rl.limit
	if allowed {
		entry.count++
	}
	rl.buckets[key] = entry

	if len(rl.buckets) > rl.limit*50 {
		rl.sweepLocked(now)
	}
	return allowed
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	for k, v := range rl.buckets {
		if now.After(v.expires) {
			delete(rl.buckets, k)
		}
	}
}

// Limit answers 429 once the client IP has used up its window.
func Limit(rl *RateLimiter, next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	retry := strconv.Itoa(int(rl.window.Seconds()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientIP(r)) {
			w.Header().Set("Retry-After", retry)
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP prefers proxy headers over the socket address.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); xrip != "" {
		return xrip
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
