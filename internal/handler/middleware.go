package handler

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// limiterIdleTTL é quanto tempo um IP sem requisições mantém seu limiter.
const limiterIdleTTL = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterStore holds one token bucket per client IP.
type rateLimiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiterStore(limit rate.Limit, burst int) *rateLimiterStore {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiterStore{
		limiters: make(map[string]*ipLimiter),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
}

func (s *rateLimiterStore) allow(ip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > limiterIdleTTL {
		for k, l := range s.limiters {
			if now.Sub(l.lastSeen) > limiterIdleTTL {
				delete(s.limiters, k)
			}
		}
		s.lastSweep = now
	}

	l, ok := s.limiters[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[ip] = l
	}
	l.lastSeen = now
	return l.limiter.AllowN(now, 1)
}

// RateLimitMiddleware limits requests per client IP.
// Must run after middleware.RealIP so RemoteAddr carries the real client.
// A non-positive perSecond disables the limit.
func RateLimitMiddleware(perSecond float64, burst int, logger *zap.Logger) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	store := newRateLimiterStore(rate.Limit(perSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !store.allow(ip) {
				logger.Warn("rate limit exceeded",
					zap.String("ip", ip),
					zap.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
