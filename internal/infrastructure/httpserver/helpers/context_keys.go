package helpers

import (
	"github.com/labstack/echo/v4"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/auth"
)

type ctxKey string

const (
	keyPrincipal ctxKey = "principal"
)

func SetPrincipal(c echo.Context, p auth.Principal) { c.Set(string(keyPrincipal), p) }
func GetPrincipalRaw(c echo.Context) (auth.Principal, bool) {
	v := c.Get(string(keyPrincipal))
	p, ok := v.(auth.Principal)
	return p, ok
}
