package health_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/avatarctic/commerce-gateway/internal/infrastructure/health"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

func TestRedisHealthChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	hc := health.NewRedisHealthChecker(client)
	require.Equal(t, "redis", hc.Name())
	require.NoError(t, hc.Check(context.Background()))

	mr.Close()
	require.Error(t, hc.Check(context.Background()))
}

func TestBackendHealthChecker(t *testing.T) {
	require.NoError(t, health.NewBackendHealthChecker(pinger{}).Check(context.Background()))
	require.Error(t, health.NewBackendHealthChecker(pinger{err: errors.New("down")}).Check(context.Background()))
}
