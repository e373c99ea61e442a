package health

import (
	"context"

	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	"github.com/go-redis/redis/v8"
)

// Pinger is anything that can check its own dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.UniversalClient }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// backendHealthChecker pings the system of record.
type backendHealthChecker struct{ p Pinger }

func (b *backendHealthChecker) Name() string                    { return "backend" }
func (b *backendHealthChecker) Check(ctx context.Context) error { return b.p.Ping(ctx) }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.UniversalClient) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewBackendHealthChecker creates a health checker for the backend client.
func NewBackendHealthChecker(p Pinger) ports.HealthChecker { return &backendHealthChecker{p: p} }
