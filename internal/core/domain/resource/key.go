package resource

import (
	"sort"
	"strings"
)

// Separator joins key segments.
const Separator = ":"

// Key is the logical identity of a cacheable query: a namespace, ordered path segments and
// query parameters. Its String form is canonical: segments are escaped and parameters sorted,
// so identical logical queries map to identical keys and distinct ones never collide.
type Key struct {
	Namespace string
	Segments  []string
	Params    Params
}

// NewKey builds a key from a namespace and path segments.
func NewKey(namespace string, segments ...string) Key {
	return Key{Namespace: namespace, Segments: segments}
}

// WithParams returns a copy of k carrying params (empty values dropped).
func (k Key) WithParams(params Params) Key {
	k.Params = params.Clone()
	return k
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(Escape(k.Namespace))
	for _, s := range k.Segments {
		b.WriteString(Separator)
		b.WriteString(Escape(s))
	}
	if len(k.Params) == 0 {
		return b.String()
	}
	names := make([]string, 0, len(k.Params))
	for name := range k.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(Separator)
		b.WriteString(Escape(name))
		b.WriteByte('=')
		b.WriteString(Escape(k.Params[name]))
	}
	return b.String()
}

const hexDigits = "0123456789ABCDEF"

// Escape percent-encodes every byte outside [A-Za-z0-9._~,-]. The result never contains the
// separator, '=' or glob metacharacters, so prefix matching and Redis MATCH stay exact.
func Escape(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}
	out := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			out = append(out, c)
			continue
		}
		out = append(out, '%', hexDigits[c>>4], hexDigits[c&0x0F])
	}
	return string(out)
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '.', c == '_', c == '~', c == ',', c == '-':
		return true
	}
	return false
}
