package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type LoggingMiddleware struct {
	logger *logrus.Logger
}

func NewLoggingMiddleware(logger *logrus.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

func (m *LoggingMiddleware) RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if m.logger == nil {
				return err
			}
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			fields := logrus.Fields{
				"method":     c.Request().Method,
				"path":       c.Path(),
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
				"cache":      c.Response().Header().Get("X-Cache"),
			}
			entry := m.logger.WithFields(fields)
			if status >= 500 {
				entry.WithError(err).Warn("request failed")
			} else {
				entry.Debug("request served")
			}
			return err
		}
	}
}
