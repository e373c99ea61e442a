package services

import (
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
)

// TTLPolicy maps resource types to cache lifetimes. A non-positive TTL bypasses the cache.
type TTLPolicy struct {
	ttls     map[resource.Type]time.Duration
	fallback time.Duration
}

// DefaultTTLs are the lifetimes used when configuration does not override them.
func DefaultTTLs() map[resource.Type]time.Duration {
	return map[resource.Type]time.Duration{
		resource.Catalog:   30 * time.Minute,
		resource.Product:   time.Hour,
		resource.Category:  time.Hour,
		resource.Variant:   30 * time.Minute,
		resource.Attribute: time.Hour,
		resource.Vendor:    30 * time.Minute,
		resource.Order:     30 * time.Minute,
		resource.User:      3 * time.Minute,
		resource.Cart:      0,
	}
}

// NewTTLPolicy merges overrides onto DefaultTTLs. Types missing from both use fallback.
func NewTTLPolicy(overrides map[resource.Type]time.Duration, fallback time.Duration) *TTLPolicy {
	ttls := DefaultTTLs()
	for t, d := range overrides {
		ttls[t] = d
	}
	return &TTLPolicy{ttls: ttls, fallback: fallback}
}

// TTL returns the lifetime for t.
func (p *TTLPolicy) TTL(t resource.Type) time.Duration {
	if d, ok := p.ttls[t]; ok {
		return d
	}
	return p.fallback
}

// Max returns the longest configured lifetime.
func (p *TTLPolicy) Max() time.Duration {
	max := p.fallback
	for _, d := range p.ttls {
		if d > max {
			max = d
		}
	}
	return max
}
