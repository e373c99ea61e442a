package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Scopes understood by the gateway.
const (
	ScopeCatalogWrite = "catalog:write"
	ScopeVendorsWrite = "vendors:write"
	ScopeCart         = "cart"
	ScopeOrders       = "orders"
	ScopeProfile      = "profile"
	ScopeAdmin        = "admin"
)

// Principal is the verified caller identity.
type Principal struct {
	ID     string   `json:"id"`
	Email  string   `json:"email,omitempty"`
	Scopes []string `json:"scopes"`
}

// HasScope reports whether the principal holds scope. The admin scope grants every scope.
func (p Principal) HasScope(scope string) bool {
	if scope == "" {
		return true
	}
	return slices.Contains(p.Scopes, scope) || slices.Contains(p.Scopes, ScopeAdmin)
}

// Claims represents the JWT claims issued by the identity provider.
type Claims struct {
	Email  string   `json:"email,omitempty"`
	Scopes []string `json:"scopes"`

	jwt.RegisteredClaims
}

// Principal converts verified claims.
func (c *Claims) Principal() Principal {
	return Principal{ID: c.Subject, Email: c.Email, Scopes: c.Scopes}
}
