package httpapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an unused limiter is kept. A bucket idle for a
// full minute has refilled, so dropping it afterwards loses no state.
const limiterIdleTTL = 5 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterRegistry keeps one token bucket per client IP and sweeps out the
// ones nobody has used for limiterIdleTTL.
type limiterRegistry struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterRegistry(perMinute int) *limiterRegistry {
	return &limiterRegistry{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		ttl:      limiterIdleTTL,
		now:      time.Now,
	}
}

func (r *limiterRegistry) allow(key string) bool {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastSweep) >= r.ttl {
		r.sweep(now)
	}

	e, ok := r.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// sweep drops idle entries. Callers hold r.mu.
func (r *limiterRegistry) sweep(now time.Time) {
	for k, e := range r.limiters {
		if now.Sub(e.lastSeen) >= r.ttl {
			delete(r.limiters, k)
		}
	}
	r.lastSweep = now
}

func (r *limiterRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// RateLimit allows perMinute requests per client IP, with bursts of the same
// size. Zero or less disables limiting. The key is the address resolved by
// ClientIP, so forwarding headers only count when the proxy is trusted.
func RateLimit(perMinute int) Middleware {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return rateLimit(newLimiterRegistry(perMinute), perMinute)
}

func rateLimit(reg *limiterRegistry, perMinute int) Middleware {
	retryAfter := strconv.Itoa(int((time.Minute / time.Duration(perMinute)).Seconds()) + 1)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !reg.allow(clientIP(r)) {
				w.Header().Set("Retry-After", retryAfter)
				writeErr(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
