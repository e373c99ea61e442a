package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/failure"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// Loader reads the value from the system of record.
type Loader func(ctx context.Context) (any, error)

// Decoder turns a cached payload back into the typed result.
type Decoder func(payload []byte) (any, error)

// FetchRequest describes one cacheable read.
type FetchRequest struct {
	Key      string
	Resource resource.Type
	TTL      time.Duration
	Decode   Decoder
	Load     Loader
}

// FetchResult is the value served to one requester.
type FetchResult struct {
	Value   any
	Outcome ports.Outcome
	// Shared is set when the requester joined a fetch started by someone else.
	Shared bool
	// Degraded is set when the store could not be consulted or populated.
	Degraded bool
}

// inflight is the in-flight record of one key. The owner goroutine fills val and err,
// then closes done.
type inflight struct {
	done     chan struct{}
	version  uint64
	waiters  int
	val      any
	err      error
	degraded bool
}

// FetcherConfig groups fetcher settings.
type FetcherConfig struct {
	// BackendTimeout bounds one backend read, independent of requester deadlines.
	BackendTimeout time.Duration
	// StoreTimeout bounds store calls made on behalf of a detached fetch.
	StoreTimeout time.Duration
}

// CoalescingFetcher serves cacheable reads with at most one backend read in flight per key.
//
// Waiters and owners are symmetric: the backend read runs in its own goroutine under the fetch
// timeout, and every requester only waits on it. A requester giving up never cancels the read
// the others are waiting for. Failures are delivered to all waiters and never cached.
type CoalescingFetcher struct {
	store   ports.CacheStore
	codec   ports.Codec
	log     *VersionLog
	logger  *logrus.Logger
	timeout time.Duration
	storeTO time.Duration
	now     func() time.Time

	mu    sync.Mutex
	calls map[string]*inflight
}

func NewCoalescingFetcher(store ports.CacheStore, codec ports.Codec, log *VersionLog, cfg *FetcherConfig, logger *logrus.Logger) *CoalescingFetcher {
	timeout := 5 * time.Second
	storeTO := time.Second
	if cfg != nil {
		if cfg.BackendTimeout > 0 {
			timeout = cfg.BackendTimeout
		}
		if cfg.StoreTimeout > 0 {
			storeTO = cfg.StoreTimeout
		}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &CoalescingFetcher{
		store:   store,
		codec:   codec,
		log:     log,
		logger:  logger,
		timeout: timeout,
		storeTO: storeTO,
		now:     time.Now,
		calls:   make(map[string]*inflight),
	}
}

// Fetch returns the cached value for req.Key, or joins or starts the single backend read for it.
func (f *CoalescingFetcher) Fetch(ctx context.Context, req FetchRequest) (FetchResult, error) {
	v, ok, degraded := f.lookup(ctx, req)
	if ok {
		return FetchResult{Value: v, Outcome: ports.OutcomeHit, Degraded: degraded}, nil
	}

	f.mu.Lock()
	c, shared := f.calls[req.Key]
	if shared {
		c.waiters++
	} else {
		c = &inflight{done: make(chan struct{}), version: f.log.Current(), waiters: 1}
		f.calls[req.Key] = c
		go f.run(ctx, req, c)
	}
	f.mu.Unlock()

	select {
	case <-c.done:
		res := FetchResult{Value: c.val, Outcome: ports.OutcomeMiss, Shared: shared, Degraded: degraded || c.degraded}
		return res, c.err
	case <-ctx.Done():
		f.mu.Lock()
		c.waiters--
		f.mu.Unlock()
		return FetchResult{Outcome: ports.OutcomeMiss, Shared: shared, Degraded: degraded}, contextFailure(ctx.Err())
	}
}

// lookup serves a live, non-stale entry. A store error degrades to a miss.
func (f *CoalescingFetcher) lookup(ctx context.Context, req FetchRequest) (any, bool, bool) {
	entry, ok, err := f.store.Get(ctx, req.Key)
	if err != nil {
		f.logger.WithFields(logrus.Fields{"key": req.Key, "failure": failure.KindCacheDegraded}).WithError(err).Warn("cache read failed, falling back to backend")
		return nil, false, true
	}
	if !ok || !entry.Live(f.now()) {
		return nil, false, false
	}
	if f.log.Stale(req.Key, entry.Version) {
		return nil, false, false
	}
	v, err := req.Decode(entry.Payload)
	if err != nil {
		f.logger.WithFields(logrus.Fields{"key": req.Key, "codec": f.codec.Name()}).WithError(err).Warn("dropping undecodable cache entry")
		_, _ = f.store.Invalidate(ctx, resource.Pattern(req.Key))
		return nil, false, false
	}
	return v, true, false
}

func (f *CoalescingFetcher) run(parent context.Context, req FetchRequest, c *inflight) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), f.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			c.val, c.err = nil, failure.Unavailable("backend read panicked", fmt.Errorf("%v", r))
		}
		f.mu.Lock()
		close(c.done)
		if f.calls[req.Key] == c {
			delete(f.calls, req.Key)
		}
		f.mu.Unlock()
	}()

	// A fetch that finished just before this record was created may already have populated the key.
	if v, ok, _ := f.lookup(ctx, req); ok {
		c.val = v
		return
	}

	v, err := req.Load(ctx)
	if err != nil {
		c.err = normalizeBackendError(err)
		f.logger.WithFields(logrus.Fields{"key": req.Key, "resource": req.Resource}).WithError(c.err).Debug("backend read failed")
		return
	}
	c.val = v
	c.degraded = !f.populate(ctx, req, v, c.version)
}

// populate stores v unless the key was invalidated after version was taken.
// It reports false when the store write failed.
func (f *CoalescingFetcher) populate(ctx context.Context, req FetchRequest, v any, version uint64) bool {
	payload, err := f.codec.Encode(v)
	if err != nil {
		f.logger.WithFields(logrus.Fields{"key": req.Key, "codec": f.codec.Name()}).WithError(err).Error("cannot encode result for cache")
		return true
	}
	sctx, cancel := context.WithTimeout(ctx, f.storeTO)
	defer cancel()
	var putErr error
	stored := f.log.Guard(req.Key, version, func() {
		putErr = f.store.Put(sctx, req.Key, ports.CacheValue{Resource: req.Resource, Payload: payload, Version: version}, req.TTL)
	})
	if !stored {
		f.logger.WithFields(logrus.Fields{"key": req.Key, "version": version}).Debug("skipping cache population for invalidated key")
		return true
	}
	if putErr != nil {
		// The write may still land after a later delete; entries at version stay stale for their TTL.
		f.log.Record([]resource.Pattern{resource.Pattern(req.Key)}, req.TTL)
		f.logger.WithFields(logrus.Fields{"key": req.Key, "failure": failure.KindCacheDegraded}).WithError(putErr).Warn("cache write failed, key forced to re-validate")
		return false
	}
	return true
}

// Detach removes the in-flight records matched by patterns. Requesters arriving afterwards start
// a fresh fetch; current waiters still receive the detached result, which is never stored.
func (f *CoalescingFetcher) Detach(patterns []resource.Pattern) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for key := range f.calls {
		for _, p := range patterns {
			if p.Match(key) {
				delete(f.calls, key)
				n++
				break
			}
		}
	}
	return n
}

// InFlight returns the number of keys with a backend read in progress.
func (f *CoalescingFetcher) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Waiters returns how many requesters currently wait on key.
func (f *CoalescingFetcher) Waiters(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.calls[key]; ok {
		return c.waiters
	}
	return 0
}

func normalizeBackendError(err error) error {
	if failure.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return failure.Timeout("backend read timed out", err)
	}
	return failure.Unavailable("backend read failed", err)
}

func contextFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return failure.Timeout("request deadline exceeded", err)
	}
	return err
}
