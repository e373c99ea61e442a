package ports

import (
	"context"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
)

// CacheValue is what the fetcher stores: a typed, versioned payload.
// Version is the invalidation sequence observed when the backend read began.
type CacheValue struct {
	Resource resource.Type `msgpack:"resource"`
	Payload  []byte        `msgpack:"payload"`
	Version  uint64        `msgpack:"version"`
}

// CacheEntry is a stored value with its lifetime.
type CacheEntry struct {
	Key       string    `msgpack:"key"`
	CreatedAt time.Time `msgpack:"created_at"`
	ExpiresAt time.Time `msgpack:"expires_at"`
	CacheValue
}

// Live reports whether the entry has not expired at now.
func (e *CacheEntry) Live(now time.Time) bool {
	return e != nil && now.Before(e.ExpiresAt)
}

// CacheStore is the key-value store with per-entry expiry and explicit invalidation.
// Implementations must be safe for concurrent use. Errors mean the store is unreachable;
// callers degrade to the backend instead of failing the request.
type CacheStore interface {
	// Get returns the live entry for key. Expired entries are reported as absent.
	Get(ctx context.Context, key string) (*CacheEntry, bool, error)
	// Put stores value under key for ttl, overwriting unconditionally.
	Put(ctx context.Context, key string, value CacheValue, ttl time.Duration) error
	// Invalidate removes the keys matched by pattern and returns how many were removed.
	// Removing an absent key is not an error.
	Invalidate(ctx context.Context, pattern resource.Pattern) (int, error)
	// SweepExpired drops expired entries and returns how many were removed.
	SweepExpired(ctx context.Context) (int, error)
}

// Codec serializes typed results for the cache.
type Codec interface {
	Name() string
	Encode(v any) ([]byte, error)
	// Decode fills out, which must be a pointer.
	Decode(data []byte, out any) error
}
