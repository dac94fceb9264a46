// Package middleware contains HTTP middleware for the tmplq API.
package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tmplq/pkg/api"
)

// RateLimiter throttles requests per client address with a token bucket.
type RateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	limiters sync.Map // client key -> *cachedLimiter

	sweepMu   sync.Mutex
	nextSweep time.Time
}

// RateLimitOption configures a RateLimiter.
type RateLimitOption func(*RateLimiter)

// WithTTL sets how long a client's limiter is kept before it is replaced.
// Expired limiters are swept at most once per ttl.
func WithTTL(ttl time.Duration) RateLimitOption {
	return func(rl *RateLimiter) { rl.ttl = ttl }
}

// WithNow overrides the time source.
func WithNow(now func() time.Time) RateLimitOption {
	return func(rl *RateLimiter) { rl.now = now }
}

// NewRateLimiter allows perSecond requests per client with the given burst.
// A perSecond of 0 disables limiting.
func NewRateLimiter(perSecond float64, burst int, opts ...RateLimitOption) *RateLimiter {
	rl := &RateLimiter{
		limit: rate.Limit(perSecond),
		burst: burst,
		ttl:   5 * time.Minute,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Middleware returns the rate limiting middleware.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// RateLimit=0 means unlimited
			if rl.limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			now := rl.now()
			res := rl.limiterFor(clientKey(r)).ReserveN(now, 1)
			if !res.OK() {
				tooManyRequests(w, 1)
				return
			}
			if delay := res.DelayFrom(now); delay > 0 {
				res.CancelAt(now)
				tooManyRequests(w, int(math.Ceil(delay.Seconds())))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tooManyRequests(w http.ResponseWriter, retryAfter int) {
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Error: "Too many requests",
		Code:  "rate_limited",
	})
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	now := rl.now()
	rl.sweep(now)
	if v, ok := rl.limiters.Load(key); ok {
		cached := v.(*cachedLimiter)
		if now.Before(cached.expiresAt) {
			return cached.limiter
		}
		// expired, need to create new
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters.Store(key, &cachedLimiter{
		limiter:   limiter,
		expiresAt: now.Add(rl.ttl),
	})
	return limiter
}

// sweep drops expired limiters so clients that stop sending do not pin memory.
func (rl *RateLimiter) sweep(now time.Time) {
	if !rl.sweepMu.TryLock() {
		return
	}
	defer rl.sweepMu.Unlock()
	if now.Before(rl.nextSweep) {
		return
	}
	rl.nextSweep = now.Add(rl.ttl)

	rl.limiters.Range(func(k, v any) bool {
		if !now.Before(v.(*cachedLimiter).expiresAt) {
			rl.limiters.CompareAndDelete(k, v)
		}
		return true
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
