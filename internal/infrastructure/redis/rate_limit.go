package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimitRepository implements rate limiting counter storage with Redis.
type RateLimitRepository struct {
	r   redis.Cmdable
	now func() time.Time
}

func NewRateLimitRepository(r redis.Cmdable) *RateLimitRepository {
	return &RateLimitRepository{r: r, now: time.Now}
}

// IncrementWindow increments a per-principal counter for a fixed window.
func (repo *RateLimitRepository) IncrementWindow(ctx context.Context, subject string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	windowStart := repo.now().Truncate(window)
	key := WindowKey(keyPrefix, subject, windowStart)
	pipe := repo.r.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, windowStart, err
	}
	return int(incr.Val()), windowStart, nil
}

// WindowKey names the counter of subject for the window starting at start.
func WindowKey(prefix, subject string, start time.Time) string {
	return fmt.Sprintf("%s:%s:%d", prefix, subject, start.Unix())
}
