package helpers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/auth"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
)

const HeaderIdempotencyKey = "Idempotency-Key"

func GetPrincipalFromContext(c echo.Context) (auth.Principal, error) {
	p, ok := GetPrincipalRaw(c)
	if !ok || p.ID == "" {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid principal context")
	}
	return p, nil
}

func GetJWTTokenFromContext(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "empty token")
	}
	return token, nil
}

// GetIdempotencyKey returns the client supplied key, or "" to let the gateway mint one.
func GetIdempotencyKey(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
}

// RequestParams flattens the query string, keeping the first value of repeated names.
// Named path parameters other than id are added on top and win over the query.
func RequestParams(c echo.Context) resource.Params {
	q := c.QueryParams()
	out := make(resource.Params, len(q))
	for name, values := range q {
		if len(values) > 0 && values[0] != "" {
			out[name] = values[0]
		}
	}
	for _, name := range c.ParamNames() {
		if name == "id" {
			continue
		}
		if v := c.Param(name); v != "" {
			out[name] = v
		}
	}
	return out
}
