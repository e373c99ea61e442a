package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/auth"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/failure"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
	"github.com/avatarctic/commerce-gateway/internal/core/ports"
)

// CacheStoreMock is a lightweight mock for CacheStore
type CacheStoreMock struct {
	GetFn          func(ctx context.Context, key string) (*ports.CacheEntry, bool, error)
	PutFn          func(ctx context.Context, key string, value ports.CacheValue, ttl time.Duration) error
	InvalidateFn   func(ctx context.Context, pattern resource.Pattern) (int, error)
	SweepExpiredFn func(ctx context.Context) (int, error)
}

func (m *CacheStoreMock) Get(ctx context.Context, key string) (*ports.CacheEntry, bool, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	return nil, false, nil
}
func (m *CacheStoreMock) Put(ctx context.Context, key string, value ports.CacheValue, ttl time.Duration) error {
	if m.PutFn != nil {
		return m.PutFn(ctx, key, value, ttl)
	}
	return nil
}
func (m *CacheStoreMock) Invalidate(ctx context.Context, pattern resource.Pattern) (int, error) {
	if m.InvalidateFn != nil {
		return m.InvalidateFn(ctx, pattern)
	}
	return 0, nil
}
func (m *CacheStoreMock) SweepExpired(ctx context.Context) (int, error) {
	if m.SweepExpiredFn != nil {
		return m.SweepExpiredFn(ctx)
	}
	return 0, nil
}

// BackendClientMock is a lightweight mock for BackendClient
type BackendClientMock struct {
	ReadFn  func(ctx context.Context, req ports.BackendRequest, out any) error
	WriteFn func(ctx context.Context, req ports.BackendRequest, out any) error
}

func (m *BackendClientMock) Read(ctx context.Context, req ports.BackendRequest, out any) error {
	if m.ReadFn != nil {
		return m.ReadFn(ctx, req, out)
	}
	return failure.NotFound("not found")
}
func (m *BackendClientMock) Write(ctx context.Context, req ports.BackendRequest, out any) error {
	if m.WriteFn != nil {
		return m.WriteFn(ctx, req, out)
	}
	return nil
}

// AuthenticatorMock is a lightweight mock for Authenticator
type AuthenticatorMock struct {
	VerifyFn func(ctx context.Context, token string) (auth.Principal, error)
}

func (m *AuthenticatorMock) Verify(ctx context.Context, token string) (auth.Principal, error) {
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, token)
	}
	return auth.Principal{}, failure.Unauthorized("invalid token")
}

// StaticAuthenticator maps tokens to principals.
func StaticAuthenticator(principals map[string]auth.Principal) *AuthenticatorMock {
	return &AuthenticatorMock{VerifyFn: func(ctx context.Context, token string) (auth.Principal, error) {
		p, ok := principals[token]
		if !ok {
			return auth.Principal{}, failure.Unauthorized("invalid token")
		}
		return p, nil
	}}
}

// EventSinkMock records emitted events.
type EventSinkMock struct {
	mu     sync.Mutex
	events []ports.Event
}

func (m *EventSinkMock) Emit(ev ports.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

// Events returns a copy of everything emitted so far.
func (m *EventSinkMock) Events() []ports.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.Event(nil), m.events...)
}

// Last returns the most recent event.
func (m *EventSinkMock) Last() (ports.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return ports.Event{}, false
	}
	return m.events[len(m.events)-1], true
}

// RateLimiterMock is a lightweight mock for RateLimiter
type RateLimiterMock struct {
	AllowFn func(ctx context.Context, subject string) (bool, int, int, time.Time, error)
}

func (m *RateLimiterMock) Allow(ctx context.Context, subject string) (bool, int, int, time.Time, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, subject)
	}
	return true, 100, 100, time.Now().Add(time.Minute), nil
}

// RateLimitRepositoryMock is a lightweight mock for RateLimitRepository
type RateLimitRepositoryMock struct {
	IncrementWindowFn func(ctx context.Context, subject string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error)
}

func (m *RateLimitRepositoryMock) IncrementWindow(ctx context.Context, subject string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	if m.IncrementWindowFn != nil {
		return m.IncrementWindowFn(ctx, subject, window, keyPrefix, ttl)
	}
	return 1, time.Now().Truncate(window), nil
}
