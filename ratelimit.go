package bridge

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	Rate            float64                   // requests per second
	Burst           int                       // max burst
	KeyFunc         func(req *Request) string // default: client address from forwarding headers
	CleanupInterval time.Duration             // how often to prune idle limiters (default: 1m)
	MaxIdle         time.Duration             // remove limiters idle longer than this (default: 5m)
}

// ClientAddr returns the first X-Forwarded-For entry, then X-Real-Ip, then
// "unknown". The neutral request carries no socket address.
func ClientAddr(req *Request) string {
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := req.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	return "unknown"
}

// RateLimit returns middleware that applies per-key token bucket rate
// limiting. Rejected requests get 429 with a Retry-After header.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientAddr
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 5 * time.Minute
	}

	retryAfter := "1"
	if cfg.Rate > 0 {
		retryAfter = strconv.Itoa(max(1, int(math.Ceil(1/cfg.Rate))))
	}

	var (
		mu          sync.Mutex
		limiters    = make(map[string]*limiterEntry)
		lastCleanup time.Time
	)

	return Before("rate_limit", func(req *Request) (*Request, error) {
		key := cfg.KeyFunc(req)

		mu.Lock()
		now := time.Now()

		// Lazy cleanup of expired limiters.
		if now.Sub(lastCleanup) >= cleanupInterval {
			for k, e := range limiters {
				if now.Sub(e.lastSeen) > maxIdle {
					delete(limiters, k)
				}
			}
			lastCleanup = now
		}

		entry, ok := limiters[key]
		if !ok {
			entry = &limiterEntry{
				limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
			}
			limiters[key] = entry
		}
		entry.lastSeen = now
		mu.Unlock()

		if !entry.limiter.Allow() {
			return nil, &Fault{
				Kind:    KindMiddleware,
				Status:  http.StatusTooManyRequests,
				Message: "rate limit exceeded",
				Header:  Header{"Retry-After": retryAfter},
			}
		}
		return req, nil
	})
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}
