package cache_test

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/infrastructure/cache"
	"github.com/avatarctic/commerce-gateway/test/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestRunSweeper_SweepsUntilCancelled(t *testing.T) {
	var sweeps atomic.Int32
	store := &mocks.CacheStoreMock{SweepExpiredFn: func(ctx context.Context) (int, error) {
		sweeps.Add(1)
		return 1, nil
	}}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cache.RunSweeper(ctx, store, 5*time.Millisecond, logger)
		close(done)
	}()

	require.Eventually(t, func() bool { return sweeps.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRunSweeper_DisabledReturnsImmediately(t *testing.T) {
	cache.RunSweeper(context.Background(), &mocks.CacheStoreMock{}, 0, logrus.New())
}
