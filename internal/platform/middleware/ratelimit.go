package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/ehr/carequeue/internal/platform/auth"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig matches the RATE_LIMIT_RPS and RATE_LIMIT_BURST
// defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 50,
		BurstSize:         100,
	}
}

// limiterStore holds one limiter per caller key.
type limiterStore struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	config   RateLimitConfig
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	return &limiterStore{
		limiters: make(map[string]*rate.Limiter),
		config:   cfg,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.RLock()
	lim, ok := s.limiters[key]
	s.mu.RUnlock()
	if ok {
		return lim
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if lim, ok := s.limiters[key]; ok {
		return lim
	}
	lim = rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.BurstSize)
	s.limiters[key] = lim
	return lim
}

// retryAfter is the whole number of seconds until one token is available,
// at least 1.
func retryAfter(lim *rate.Limiter, rps float64) int {
	if rps <= 0 {
		return 1
	}
	secs := math.Ceil((1 - lim.Tokens()) / rps)
	return max(int(secs), 1)
}

// RateLimit applies a token bucket per caller. Limiters are never evicted;
// the key space is bounded by the number of staff accounts and client IPs.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newLimiterStore(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Authenticated callers get their own bucket; anonymous ones share by IP.
			key := c.RealIP()
			if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
				key = "user:" + uid
			}

			lim := store.get(key)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limitHeader)
			if !lim.Allow() {
				h.Set("Retry-After", strconv.Itoa(retryAfter(lim, cfg.RequestsPerSecond)))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(int(lim.Tokens()), 0)))
			return next(c)
		}
	}
}
