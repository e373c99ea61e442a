package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/failure"
	"github.com/labstack/echo/v4"
)

// retryAfter is advertised on transient backend failures.
const retryAfter = 2 * time.Second

// StatusFor maps a gateway failure to its HTTP status.
func StatusFor(err error) int {
	var fe *failure.Error
	if !errors.As(err, &fe) {
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	}
	switch fe.Kind {
	case failure.KindUnauthorized:
		return http.StatusUnauthorized
	case failure.KindForbidden:
		return http.StatusForbidden
	case failure.KindInvalidRequest:
		return http.StatusBadRequest
	case failure.KindRateLimited:
		return http.StatusTooManyRequests
	case failure.KindUnavailable:
		return http.StatusServiceUnavailable
	case failure.KindTimeout:
		return http.StatusGatewayTimeout
	case failure.KindRejected:
		switch fe.Code {
		case failure.CodeNotFound:
			return http.StatusNotFound
		case failure.CodeConflict:
			return http.StatusConflict
		default:
			return http.StatusUnprocessableEntity
		}
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) failureResponse(c echo.Context, err error) error {
	code := StatusFor(err)
	switch code {
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	}
	if code == http.StatusInternalServerError {
		s.logger.WithError(err).Error("unclassified gateway error")
		return echo.NewHTTPError(code, "internal error")
	}
	var fe *failure.Error
	msg := http.StatusText(code)
	if errors.As(err, &fe) && fe.Message != "" {
		msg = fe.Message
	}
	return echo.NewHTTPError(code, msg)
}
