package configs

import (
	"fmt"
	"os"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/operation"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
	"gopkg.in/yaml.v3"
)

// CachePolicy is the optional YAML override of TTLs and invalidation rules.
//
//	ttl:
//	  catalog: 10m
//	  cart: 0s
//	rules:
//	  order.create:
//	    invalidates: ["cart:{userId}", "orders:{userId}:*"]
//	  vendor.create:
//	    no_cache_impact: true
type CachePolicy struct {
	TTL   map[string]string     `yaml:"ttl"`
	Rules map[string]PolicyRule `yaml:"rules"`
}

type PolicyRule struct {
	Invalidates   []string `yaml:"invalidates"`
	NoCacheImpact bool     `yaml:"no_cache_impact"`
}

// LoadCachePolicy reads path. An empty path yields an empty policy.
func LoadCachePolicy(path string) (*CachePolicy, error) {
	if path == "" {
		return &CachePolicy{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cache policy: %w", err)
	}
	return ParseCachePolicy(data)
}

func ParseCachePolicy(data []byte) (*CachePolicy, error) {
	var p CachePolicy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse cache policy: %w", err)
	}
	return &p, nil
}

// TTLs converts the ttl section.
func (p *CachePolicy) TTLs() (map[resource.Type]time.Duration, error) {
	out := make(map[resource.Type]time.Duration, len(p.TTL))
	for name, raw := range p.TTL {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("cache policy ttl %s: %w", name, err)
		}
		out[resource.Type(name)] = d
	}
	return out, nil
}

// OperationRules converts the rules section. A rule declaring neither templates nor
// no_cache_impact is rejected.
func (p *CachePolicy) OperationRules() (map[operation.Name]*operation.Rule, error) {
	out := make(map[operation.Name]*operation.Rule, len(p.Rules))
	for name, r := range p.Rules {
		rule := &operation.Rule{NoCacheImpact: r.NoCacheImpact}
		for _, t := range r.Invalidates {
			rule.Templates = append(rule.Templates, resource.Template(t))
		}
		if !rule.Declared() {
			return nil, fmt.Errorf("cache policy rule %s: declare invalidates or no_cache_impact", name)
		}
		out[operation.Name(name)] = rule
	}
	return out, nil
}
