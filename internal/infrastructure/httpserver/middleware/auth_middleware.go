package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/auth"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/failure"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/httpserver/helpers"
)

// TokenVerifier resolves a bearer token to a principal.
type TokenVerifier interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *logrus.Logger
}

func NewAuthMiddleware(verifier TokenVerifier, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// RequireAuth verifies the bearer token and sets the principal in context. Nothing
// downstream, cache included, runs for an unauthenticated request.
func (m *AuthMiddleware) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := helpers.GetJWTTokenFromContext(c)
			if err != nil {
				return err
			}

			principal, err := m.verifier.Authenticate(c.Request().Context(), tokenString)
			if err != nil {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path, "error": err.Error()}).Warn("token verification failed")
				}
				if errors.Is(err, failure.ErrUnauthorized) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
				}
				return echo.NewHTTPError(http.StatusServiceUnavailable, "identity provider unavailable")
			}

			helpers.SetPrincipal(c, principal)
			if m.logger != nil {
				m.logger.WithFields(logrus.Fields{"principal": principal.ID, "scopes": principal.Scopes}).Debug("token verified and principal context set")
			}
			return next(c)
		}
	}
}
