package ports

import (
	"context"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/auth"
)

// Authenticator verifies bearer tokens issued by the identity provider.
// It returns a failure of kind Unauthorized for bad, expired or revoked tokens.
type Authenticator interface {
	Verify(ctx context.Context, token string) (auth.Principal, error)
}
