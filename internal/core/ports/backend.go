package ports

import (
	"context"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
)

// BackendRequest addresses one read or write on the system of record.
type BackendRequest struct {
	Resource resource.Type
	Action   string
	// Subject is the principal the resource belongs to (cart, orders, profile).
	Subject string
	ID      string
	Params  resource.Params
	// Body is the mutation payload of writes.
	Body any
	// IdempotencyKey is passed through on writes so blind retries cannot duplicate mutations.
	IdempotencyKey string
}

// BackendClient is the only component that reaches the system of record.
// Failures are failure.Error values of kind Unavailable, Timeout or Rejected.
type BackendClient interface {
	// Read fills out, a pointer to the typed result of the action.
	Read(ctx context.Context, req BackendRequest, out any) error
	// Write applies a mutation and fills out with the resulting resource.
	Write(ctx context.Context, req BackendRequest, out any) error
}
