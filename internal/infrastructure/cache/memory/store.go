package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	"github.com/viccon/sturdyc"
)

// Config sizes the in-process store.
type Config struct {
	// Capacity is the maximum number of entries. Must be greater than 0.
	Capacity int
	// NumShards splits the keyspace for concurrent access. Default: 64
	NumShards int
	// MaxTTL bounds every entry; per-entry expiry is enforced on read.
	MaxTTL time.Duration
	// EvictionPercentage is evicted when capacity is reached. Default: 10
	EvictionPercentage int
}

func DefaultConfig() Config {
	return Config{Capacity: 100000, NumShards: 64, MaxTTL: 24 * time.Hour, EvictionPercentage: 10}
}

func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("memory store: capacity must be greater than 0")
	}
	if c.NumShards <= 0 {
		return fmt.Errorf("memory store: shards must be greater than 0")
	}
	if c.MaxTTL <= 0 {
		return fmt.Errorf("memory store: max ttl must be greater than 0")
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return fmt.Errorf("memory store: eviction percentage must be between 1 and 100")
	}
	return nil
}

// Store is a sharded in-process CacheStore backed by sturdyc.
type Store struct {
	client *sturdyc.Client[ports.CacheEntry]
	now    func() time.Time
}

var _ ports.CacheStore = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[ports.CacheEntry](cfg.Capacity, cfg.NumShards, cfg.MaxTTL, cfg.EvictionPercentage)
	return &Store{client: client, now: time.Now}, nil
}

func (s *Store) Get(ctx context.Context, key string) (*ports.CacheEntry, bool, error) {
	e, ok := s.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.Live(s.now()) {
		s.client.Delete(key)
		return nil, false, nil
	}
	return &e, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value ports.CacheValue, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := s.now()
	s.client.Set(key, ports.CacheEntry{Key: key, CreatedAt: now, ExpiresAt: now.Add(ttl), CacheValue: value})
	return nil
}

func (s *Store) Invalidate(ctx context.Context, pattern resource.Pattern) (int, error) {
	if !pattern.IsPrefix() {
		if _, ok := s.client.Get(string(pattern)); !ok {
			return 0, nil
		}
		s.client.Delete(string(pattern))
		return 1, nil
	}
	n := 0
	for _, key := range s.client.ScanKeys() {
		if pattern.Match(key) {
			s.client.Delete(key)
			n++
		}
	}
	return n, nil
}

func (s *Store) SweepExpired(ctx context.Context) (int, error) {
	now := s.now()
	n := 0
	for _, key := range s.client.ScanKeys() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if e, ok := s.client.Get(key); ok && !e.Live(now) {
			s.client.Delete(key)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries, expired ones included until swept.
func (s *Store) Len() int { return s.client.Size() }

// SetClock replaces the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) { s.now = now }
