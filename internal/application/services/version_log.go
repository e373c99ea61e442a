package services

import (
	"strings"
	"sync"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
)

// pruneEvery bounds how often Record sweeps expired tombstones.
const pruneEvery = time.Second

// tombstone remembers that a key or prefix was invalidated at version until expires.
type tombstone struct {
	version uint64
	expires time.Time
}

// prefixTombstone is a tombstone for a prefix pattern.
type prefixTombstone struct {
	pattern resource.Pattern
	tombstone
}

// VersionLog orders cache population against invalidation.
//
// Every fetch snapshots the current version before its backend read and every invalidated
// pattern is recorded with a newer version. A value read at version v may only be stored, or
// served from the store, when no matching tombstone is newer than v. Population holds the read
// lock across its store write, so a tombstone is either recorded before the check (and the write
// is skipped) or after the write completed (and the subsequent delete removes it).
//
// Exact keys are indexed directly; one key keeps a single tombstone with the highest version and
// the latest expiry seen. Prefix patterns are few and scanned per namespace.
type VersionLog struct {
	mu  sync.RWMutex
	seq uint64
	// exact tombstones by key.
	exact map[string]tombstone
	// prefix tombstones bucketed by namespace; "" holds prefixes without one.
	prefixes  map[string][]prefixTombstone
	lastPrune time.Time
	now       func() time.Time
}

// NewVersionLog starts the sequence at the wall clock so versions stay increasing across
// restarts when a shared store outlives the process.
func NewVersionLog() *VersionLog {
	now := time.Now()
	return &VersionLog{
		seq:       uint64(now.UnixNano()),
		exact:     make(map[string]tombstone),
		prefixes:  make(map[string][]prefixTombstone),
		lastPrune: now,
		now:       time.Now,
	}
}

// Current returns the latest version.
func (l *VersionLog) Current() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}

// Record registers patterns as invalidated and returns the version assigned to them.
func (l *VersionLog) Record(patterns []resource.Pattern, keep time.Duration) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	now := l.now()
	if now.Sub(l.lastPrune) >= pruneEvery {
		l.pruneLocked(now)
	}
	t := tombstone{version: l.seq, expires: now.Add(keep)}
	for _, p := range patterns {
		if !p.IsPrefix() {
			l.exact[string(p)] = merge(l.exact[string(p)], t)
			continue
		}
		ns := namespaceOf(p.Prefix(), true)
		l.prefixes[ns] = append(l.prefixes[ns], prefixTombstone{pattern: p, tombstone: t})
	}
	return l.seq
}

// Extend keeps the tombstone of pattern at version alive for at least keep. Used when the
// store delete failed, so entries written before version are treated as absent until they expire.
func (l *VersionLog) Extend(pattern resource.Pattern, version uint64, keep time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	until := l.now().Add(keep)
	if !pattern.IsPrefix() {
		if t, ok := l.exact[string(pattern)]; ok && t.version >= version && t.expires.Before(until) {
			t.expires = until
			l.exact[string(pattern)] = t
		}
		return
	}
	ts := l.prefixes[namespaceOf(pattern.Prefix(), true)]
	for i := range ts {
		if ts[i].pattern == pattern && ts[i].version == version && ts[i].expires.Before(until) {
			ts[i].expires = until
		}
	}
}

// Stale reports whether a value for key read at version has since been invalidated.
func (l *VersionLog) Stale(key string, version uint64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.staleLocked(key, version)
}

// Guard runs fn under the read lock when key is not stale at version. It reports whether fn ran.
func (l *VersionLog) Guard(key string, version uint64, fn func()) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.staleLocked(key, version) {
		return false
	}
	fn()
	return true
}

// Len returns the number of live tombstones.
func (l *VersionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	now := l.now()
	n := 0
	for _, t := range l.exact {
		if t.live(now) {
			n++
		}
	}
	for _, ts := range l.prefixes {
		for _, t := range ts {
			if t.live(now) {
				n++
			}
		}
	}
	return n
}

func (l *VersionLog) staleLocked(key string, version uint64) bool {
	now := l.now()
	if t, ok := l.exact[key]; ok && t.version > version && t.live(now) {
		return true
	}
	check := func(ts []prefixTombstone) bool {
		for _, t := range ts {
			if t.version > version && t.live(now) && t.pattern.Match(key) {
				return true
			}
		}
		return false
	}
	return check(l.prefixes[namespaceOf(key, false)]) || check(l.prefixes[""])
}

func (l *VersionLog) pruneLocked(now time.Time) {
	for k, t := range l.exact {
		if !t.live(now) {
			delete(l.exact, k)
		}
	}
	for ns, ts := range l.prefixes {
		out := ts[:0]
		for _, t := range ts {
			if t.live(now) {
				out = append(out, t)
			}
		}
		if len(out) == 0 {
			delete(l.prefixes, ns)
			continue
		}
		l.prefixes[ns] = out
	}
	l.lastPrune = now
}

// SetClock replaces the time source.
func (l *VersionLog) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func (t tombstone) live(now time.Time) bool { return now.Before(t.expires) }

// merge keeps the newer version and the later expiry.
func merge(old, t tombstone) tombstone {
	if old.version == 0 {
		return t
	}
	if old.version > t.version {
		t.version = old.version
	}
	if old.expires.After(t.expires) {
		t.expires = old.expires
	}
	return t
}

// namespaceOf returns the first key segment. A prefix without a separator has no namespace.
func namespaceOf(s string, prefix bool) string {
	if i := strings.Index(s, resource.Separator); i >= 0 {
		return s[:i]
	}
	if prefix {
		return ""
	}
	return s
}
