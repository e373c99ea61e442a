package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/failure"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/operation"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// InvalidationConfig groups coordinator settings.
type InvalidationConfig struct {
	// SettleWindow is how long a tombstone outlives a successful delete. It must cover the
	// longest backend read, so fetches that began before the write cannot store their result.
	SettleWindow time.Duration
	// StaleRetention applies when the delete failed. It should be at least the longest TTL,
	// so entries written before the invalidation are never served again.
	StaleRetention time.Duration
	// Timeout bounds the store deletes of one invalidation.
	Timeout time.Duration
}

// InvalidationReport summarizes one applied rule.
type InvalidationReport struct {
	Patterns []resource.Pattern
	Removed  int
	// Failed lists patterns whose delete failed; their keys are forced to re-validate.
	Failed []resource.Pattern
}

// InvalidationCoordinator applies the invalidation rule of a successful write.
type InvalidationCoordinator struct {
	store     ports.CacheStore
	log       *VersionLog
	fetcher   *CoalescingFetcher
	logger    *logrus.Logger
	settle    time.Duration
	retention time.Duration
	timeout   time.Duration
}

func NewInvalidationCoordinator(store ports.CacheStore, log *VersionLog, fetcher *CoalescingFetcher, cfg *InvalidationConfig, logger *logrus.Logger) *InvalidationCoordinator {
	settle := 10 * time.Second
	retention := time.Hour
	timeout := 2 * time.Second
	if cfg != nil {
		if cfg.SettleWindow > 0 {
			settle = cfg.SettleWindow
		}
		if cfg.StaleRetention > 0 {
			retention = cfg.StaleRetention
		}
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
	}
	if retention < settle {
		retention = settle
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &InvalidationCoordinator{
		store:     store,
		log:       log,
		fetcher:   fetcher,
		logger:    logger,
		settle:    settle,
		retention: retention,
		timeout:   timeout,
	}
}

// Apply resolves rule against bindings and invalidates the matched keys. Store failures never
// fail the write: they are logged and the affected keys stay tombstoned until they expire.
func (c *InvalidationCoordinator) Apply(ctx context.Context, rule *operation.Rule, bindings map[string]string) InvalidationReport {
	var rep InvalidationReport
	if rule == nil || rule.NoCacheImpact {
		return rep
	}
	rep.Patterns = c.resolve(rule.Templates, bindings)
	if len(rep.Patterns) == 0 {
		return rep
	}
	removed, failed := c.Invalidate(ctx, rep.Patterns)
	rep.Removed, rep.Failed = removed, failed
	return rep
}

// Invalidate tombstones patterns, detaches in-flight fetches they match and deletes the keys.
// It returns the number of removed keys and the patterns whose delete failed.
func (c *InvalidationCoordinator) Invalidate(ctx context.Context, patterns []resource.Pattern) (int, []resource.Pattern) {
	version := c.log.Record(patterns, c.settle)
	if c.fetcher != nil {
		c.fetcher.Detach(patterns)
	}

	// The write already happened; finish the cleanup even if the caller went away.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		removed int
		failed  []resource.Pattern
	)
	g, gctx := errgroup.WithContext(dctx)
	for _, p := range patterns {
		g.Go(func() error {
			n, err := c.store.Invalidate(gctx, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, p)
				c.log.Extend(p, version, c.retention)
				c.logger.WithFields(logrus.Fields{"pattern": p, "version": version, "failure": failure.KindInvalidationFailed}).WithError(err).Error("cache invalidation failed, keys forced to re-validate")
				return nil
			}
			removed += n
			return nil
		})
	}
	_ = g.Wait()
	c.logger.WithFields(logrus.Fields{"patterns": patterns, "removed": removed, "version": version}).Debug("cache invalidated")
	return removed, failed
}

// resolve binds every template. A template that cannot be bound is widened to its literal
// prefix, so a misdeclared rule invalidates more rather than less.
func (c *InvalidationCoordinator) resolve(templates []resource.Template, bindings map[string]string) []resource.Pattern {
	out := make([]resource.Pattern, 0, len(templates))
	seen := make(map[resource.Pattern]bool, len(templates))
	for _, t := range templates {
		p, err := t.Resolve(bindings)
		if err != nil {
			p = widen(t)
			c.logger.WithFields(logrus.Fields{"template": t, "pattern": p}).WithError(err).Error("cannot bind invalidation template, widening")
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func widen(t resource.Template) resource.Pattern {
	s := string(t)
	if i := strings.IndexAny(s, "{*"); i >= 0 {
		s = s[:i]
	}
	return resource.Pattern(s + resource.Wildcard)
}
