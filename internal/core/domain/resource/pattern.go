package resource

import (
	"fmt"
	"strings"
)

// Wildcard marks a prefix pattern when it is the last character of a pattern.
const Wildcard = "*"

// Template is a parametric key pattern such as "orders:{userId}:*".
// Bound values are escaped like key segments.
type Template string

// Resolve substitutes every {name} placeholder. A missing binding is an error: a rule must
// never silently widen or narrow its effect.
func (t Template) Resolve(bindings map[string]string) (Pattern, error) {
	s := string(t)
	var b strings.Builder
	for {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			b.WriteString(s)
			break
		}
		end := strings.IndexByte(s[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("template %q: unterminated placeholder", t)
		}
		name := s[open+1 : open+end]
		v, ok := bindings[name]
		if !ok || v == "" {
			return "", fmt.Errorf("template %q: missing binding %q", t, name)
		}
		b.WriteString(s[:open])
		b.WriteString(Escape(v))
		s = s[open+end+1:]
	}
	p := Pattern(b.String())
	if strings.Contains(p.Prefix(), Wildcard) {
		return "", fmt.Errorf("template %q: wildcard allowed only as suffix", t)
	}
	return p, nil
}

// Pattern is a resolved invalidation target: an exact key, or a prefix when it ends in '*'.
type Pattern string

// IsPrefix reports whether p matches by prefix.
func (p Pattern) IsPrefix() bool { return strings.HasSuffix(string(p), Wildcard) }

// Prefix returns the literal part of p.
func (p Pattern) Prefix() string { return strings.TrimSuffix(string(p), Wildcard) }

// Match reports whether key is covered by p.
func (p Pattern) Match(key string) bool {
	if p.IsPrefix() {
		return strings.HasPrefix(key, p.Prefix())
	}
	return key == string(p)
}
