package services_test

import (
	"context"
	"testing"
	"time"

	config "github.com/avatarctic/commerce-gateway/configs"
	"github.com/avatarctic/commerce-gateway/internal/application/services"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/auth"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/failure"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-enough-entropy"

func newAuthenticator() *services.JWTAuthenticator {
	return services.NewJWTAuthenticator(&config.JWTConfig{Secret: testSecret, Issuer: "idp.test", Audience: "gateway"}, quietLogger())
}

func validClaims() jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Issuer:    "idp.test",
		Audience:  jwt.ClaimStrings{"gateway"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
}

func TestJWTAuthenticator_Verify(t *testing.T) {
	a := newAuthenticator()
	p := auth.Principal{ID: "u1", Email: "u1@shop.test", Scopes: []string{auth.ScopeCart, auth.ScopeOrders}}
	token, err := services.IssueToken(testSecret, p, validClaims())
	require.NoError(t, err)

	got, err := a.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestJWTAuthenticator_Rejects(t *testing.T) {
	a := newAuthenticator()
	p := auth.Principal{ID: "u1"}

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "someone-else"

	wrongAudience := validClaims()
	wrongAudience.Audience = jwt.ClaimStrings{"billing"}

	cases := map[string]func() string{
		"garbage": func() string { return "not-a-jwt" },
		"expired": func() string {
			s, err := services.IssueToken(testSecret, p, expired)
			require.NoError(t, err)
			return s
		},
		"missing expiry": func() string {
			s, err := services.IssueToken(testSecret, p, noExpiry)
			require.NoError(t, err)
			return s
		},
		"wrong secret": func() string {
			s, err := services.IssueToken("another-secret", p, validClaims())
			require.NoError(t, err)
			return s
		},
		"wrong issuer": func() string {
			s, err := services.IssueToken(testSecret, p, wrongIssuer)
			require.NoError(t, err)
			return s
		},
		"wrong audience": func() string {
			s, err := services.IssueToken(testSecret, p, wrongAudience)
			require.NoError(t, err)
			return s
		},
		"unsigned": func() string {
			tok := jwt.NewWithClaims(jwt.SigningMethodNone, &auth.Claims{RegisteredClaims: validClaims()})
			s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)
			return s
		},
		"missing subject": func() string {
			s, err := services.IssueToken(testSecret, auth.Principal{}, validClaims())
			require.NoError(t, err)
			return s
		},
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Verify(context.Background(), token())
			require.ErrorIs(t, err, failure.ErrUnauthorized)
		})
	}
}
