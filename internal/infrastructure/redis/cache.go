package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"
)

const scanCount = 500

// CacheStore implements ports.CacheStore on Redis. Entries are msgpack envelopes stored with
// a native expiry, so several gateway instances can share one store.
type CacheStore struct {
	r redis.Cmdable
	// optional key prefix to namespace entries
	prefix string
	now    func() time.Time
}

var _ ports.CacheStore = (*CacheStore)(nil)

func NewCacheStore(r redis.Cmdable, prefix string) *CacheStore {
	return &CacheStore{r: r, prefix: prefix, now: time.Now}
}

func (c *CacheStore) namespaced(key string) string { return c.prefix + key }

func (c *CacheStore) Get(ctx context.Context, key string) (*ports.CacheEntry, bool, error) {
	val, err := c.r.Get(ctx, c.namespaced(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var e ports.CacheEntry
	if err := msgpack.Unmarshal(val, &e); err != nil {
		// Foreign or corrupt entry: report absent so the caller refetches and overwrites.
		return nil, false, nil
	}
	if !e.Live(c.now()) {
		return nil, false, nil
	}
	return &e, true, nil
}

func (c *CacheStore) Put(ctx context.Context, key string, value ports.CacheValue, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := c.now()
	b, err := msgpack.Marshal(&ports.CacheEntry{Key: key, CreatedAt: now, ExpiresAt: now.Add(ttl), CacheValue: value})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return c.r.Set(ctx, c.namespaced(key), b, ttl).Err()
}

func (c *CacheStore) Invalidate(ctx context.Context, pattern resource.Pattern) (int, error) {
	if !pattern.IsPrefix() {
		n, err := c.r.Del(ctx, c.namespaced(string(pattern))).Result()
		return int(n), err
	}
	match := GlobEscape(c.namespaced(pattern.Prefix())) + "*"
	removed := 0
	var cursor uint64
	for {
		keys, next, err := c.r.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := c.r.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

// SweepExpired is a no-op: Redis expires keys itself.
func (c *CacheStore) SweepExpired(ctx context.Context) (int, error) { return 0, nil }

// GlobEscape quotes the metacharacters of Redis MATCH patterns.
func GlobEscape(s string) string {
	if !strings.ContainsAny(s, `*?[]\^`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
