package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/httpserver/helpers"
)

type RateLimitMiddleware struct {
	rateLimiter ports.RateLimiter
	logger      *logrus.Logger
}

func NewRateLimitMiddleware(rateLimiter ports.RateLimiter, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter, logger: logger}
}

// Handler limits per principal. It must run after RequireAuth.
func (r *RateLimitMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if r.rateLimiter == nil {
				return next(c)
			}
			principal, ok := helpers.GetPrincipalRaw(c)
			if !ok || principal.ID == "" {
				return next(c)
			}

			allowed, remaining, limit, reset, rlErr := r.rateLimiter.Allow(c.Request().Context(), principal.ID)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if rlErr != nil {
				if r.logger != nil {
					r.logger.WithError(rlErr).WithField("principal", principal.ID).Warn("rate limiter error; allowing request (fail-open)")
				}
				return next(c)
			}

			if !allowed {
				if secs := int(time.Until(reset).Seconds()) + 1; secs > 0 {
					h.Set("Retry-After", strconv.Itoa(secs))
				}
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
