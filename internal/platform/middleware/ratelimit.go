package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/clinica/clinica/internal/platform/apperr"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// IdleTTL is how long an unused visitor entry survives the sweeper.
	IdleTTL time.Duration
	// Stop ends the sweeper goroutine when closed.
	Stop <-chan struct{}
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 20,
		BurstSize:         40,
		IdleTTL:           3 * time.Minute,
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorStore holds one limiter per client key.
type visitorStore struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
}

func newVisitorStore(cfg RateLimitConfig) *visitorStore {
	return &visitorStore{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.BurstSize,
	}
}

func (s *visitorStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// sweep drops visitors idle for longer than ttl and returns how many remain.
func (s *visitorStore) sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, v := range s.visitors {
		if time.Since(v.lastSeen) > ttl {
			delete(s.visitors, key)
		}
	}
	return len(s.visitors)
}

func (s *visitorStore) runSweeper(ttl time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(ttl)
		case <-stop:
			return
		}
	}
}

// retryAfter reports whole seconds until the limiter can grant one token.
func retryAfter(l *rate.Limiter) int {
	r := l.Reserve()
	if !r.OK() {
		return 1
	}
	delay := r.Delay()
	r.Cancel()
	if delay <= 0 || delay == rate.InfDuration {
		return 1
	}
	return int(math.Ceil(delay.Seconds()))
}

// RateLimit returns a per-client token bucket middleware keyed by client IP,
// or by username once the session middleware has identified the caller.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newVisitorStore(cfg)
	if cfg.IdleTTL > 0 {
		go store.runSweeper(cfg.IdleTTL, cfg.Stop)
	}
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if username, ok := c.Get("username").(string); ok && username != "" {
				key = username + ":" + key
			}

			limiter := store.get(key)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limitHeader)
			if !limiter.Allow() {
				h.Set("Retry-After", strconv.Itoa(retryAfter(limiter)))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, apperr.Response{
					Message: "muitas requisições, tente novamente em instantes",
					Code:    "RATE_LIMITED",
				})
			}
			return next(c)
		}
	}
}
