package services

import (
	"context"
	"sync"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiterService implements RateLimiter with a fixed window per principal.
type RateLimiterService struct {
	repo            ports.RateLimitRepository
	defaultLimit    int
	burstMultiplier float64
	window          time.Duration
	keyPrefix       string
	logger          *logrus.Logger
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
type RateLimiterConfig struct {
	DefaultRequestsPerMinute int
	BurstMultiplier          float64
	Window                   time.Duration
	KeyPrefix                string
}

func (cfg *RateLimiterConfig) withDefaults() RateLimiterConfig {
	out := RateLimiterConfig{DefaultRequestsPerMinute: 120, BurstMultiplier: 2.0, Window: time.Minute, KeyPrefix: "ratelimit:principal"}
	if cfg == nil {
		return out
	}
	if cfg.DefaultRequestsPerMinute > 0 {
		out.DefaultRequestsPerMinute = cfg.DefaultRequestsPerMinute
	}
	if cfg.BurstMultiplier > 0 {
		out.BurstMultiplier = cfg.BurstMultiplier
	}
	if cfg.Window > 0 {
		out.Window = cfg.Window
	}
	if cfg.KeyPrefix != "" {
		out.KeyPrefix = cfg.KeyPrefix
	}
	return out
}

func NewRateLimiterService(repo ports.RateLimitRepository, cfg *RateLimiterConfig, logger *logrus.Logger) *RateLimiterService {
	c := cfg.withDefaults()
	return &RateLimiterService{repo: repo, defaultLimit: c.DefaultRequestsPerMinute, burstMultiplier: c.BurstMultiplier, window: c.Window, keyPrefix: c.KeyPrefix, logger: logger}
}

func (s *RateLimiterService) Allow(ctx context.Context, subject string) (bool, int, int, time.Time, error) {
	limit := s.defaultLimit
	ttl := s.window * 2 // retain overlap window
	count, windowStart, err := s.repo.IncrementWindow(ctx, subject, s.window, s.keyPrefix, ttl)
	reset := windowStart.Add(s.window)
	burst := int(float64(limit) * s.burstMultiplier)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"principal": subject}).WithError(err).Error("rate limiter: failed to increment window")
		}
		// fail open
		return true, burst, limit, reset, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"principal": subject, "count": count, "burst": burst, "limit": limit}).Debug("rate limiter window state")
	}
	if count > burst {
		return false, 0, limit, reset, nil
	}
	remaining := burst - count
	return true, remaining, limit, reset, nil
}

// LocalRateLimiter is the in-process token bucket used when no shared counter store is configured.
type LocalRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*localBucket
	limit   int
	burst   int
	every   rate.Limit
	idle    time.Duration
	now     func() time.Time
}

type localBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewLocalRateLimiter(cfg *RateLimiterConfig) *LocalRateLimiter {
	c := cfg.withDefaults()
	burst := int(float64(c.DefaultRequestsPerMinute) * c.BurstMultiplier)
	if burst < 1 {
		burst = 1
	}
	return &LocalRateLimiter{
		buckets: make(map[string]*localBucket),
		limit:   c.DefaultRequestsPerMinute,
		burst:   burst,
		every:   rate.Limit(float64(c.DefaultRequestsPerMinute) / c.Window.Seconds()),
		idle:    c.Window * 2,
		now:     time.Now,
	}
}

func (l *LocalRateLimiter) Allow(ctx context.Context, subject string) (bool, int, int, time.Time, error) {
	now := l.now()
	l.mu.Lock()
	b, ok := l.buckets[subject]
	if !ok {
		b = &localBucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[subject] = b
	}
	b.seen = now
	if len(l.buckets) > 1024 {
		l.evictIdle(now)
	}
	l.mu.Unlock()

	allowed := b.lim.AllowN(now, 1)
	remaining := int(b.lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	// Time until one token is available again.
	reset := now
	if !allowed && l.every > 0 {
		reset = now.Add(time.Duration(float64(time.Second) / float64(l.every)))
	}
	return allowed, remaining, l.limit, reset, nil
}

func (l *LocalRateLimiter) evictIdle(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.seen) > l.idle {
			delete(l.buckets, k)
		}
	}
}
