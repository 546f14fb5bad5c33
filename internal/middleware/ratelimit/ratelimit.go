// Package ratelimit throttles requests per client IP with a token bucket.
package ratelimit

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const idleTTL = 5 * time.Minute

// Limiter keeps one bucket per IP in echo's memory store, which drops idle
// buckets during its own periodic cleanup.
type Limiter struct {
	store *middleware.RateLimiterMemoryStore
	mw    echo.MiddlewareFunc
}

func New(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     burst,
		ExpiresIn: idleTTL,
	})
	return &Limiter{
		store: store,
		mw: middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: store,
			IdentifierExtractor: func(c echo.Context) (string, error) {
				if ip := c.RealIP(); ip != "" {
					return ip, nil
				}
				return "unknown", nil
			},
			DenyHandler: func(c echo.Context, _ string, _ error) error {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			},
		}),
	}
}

// Allow reports whether one more request from key fits in its bucket.
func (l *Limiter) Allow(key string) bool {
	ok, err := l.store.Allow(key)
	return err == nil && ok
}

func (l *Limiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return l.mw(next)
}
