package cache

import (
	"context"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// RunSweeper drops expired entries every interval until ctx is done.
func RunSweeper(ctx context.Context, store ports.CacheStore, interval time.Duration, logger *logrus.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sctx, cancel := context.WithTimeout(ctx, interval)
			n, err := store.SweepExpired(sctx)
			cancel()
			if err != nil {
				logger.WithError(err).Warn("cache sweep failed")
				continue
			}
			if n > 0 {
				logger.WithField("removed", n).Debug("expired cache entries swept")
			}
		}
	}
}
