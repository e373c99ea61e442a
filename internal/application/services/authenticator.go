package services

import (
	"context"
	"fmt"

	config "github.com/avatarctic/commerce-gateway/configs"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/auth"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/failure"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// JWTAuthenticator verifies HMAC-signed access tokens issued by the identity provider.
type JWTAuthenticator struct {
	secret []byte
	opts   []jwt.ParserOption
	logger *logrus.Logger
}

func NewJWTAuthenticator(cfg *config.JWTConfig, logger *logrus.Logger) *JWTAuthenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &JWTAuthenticator{secret: []byte(cfg.Secret), opts: opts, logger: logger}
}

func (a *JWTAuthenticator) Verify(ctx context.Context, tokenString string) (auth.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &auth.Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC (prevent alg confusion)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, a.opts...)
	if err != nil {
		if a.logger != nil {
			a.logger.WithError(err).Debug("token rejected")
		}
		return auth.Principal{}, failure.Wrap(failure.KindUnauthorized, "invalid token", err)
	}
	if !token.Valid {
		return auth.Principal{}, failure.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(*auth.Claims)
	if !ok || claims.Subject == "" {
		return auth.Principal{}, failure.Unauthorized("invalid token claims")
	}
	return claims.Principal(), nil
}

// IssueToken signs claims for p. Used by tests and local tooling; production tokens come
// from the identity provider.
func IssueToken(secret string, p auth.Principal, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = p.ID
	c := &auth.Claims{Email: p.Email, Scopes: p.Scopes, RegisteredClaims: claims}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return s, nil
}
