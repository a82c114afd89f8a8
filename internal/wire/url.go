package wire

import (
	"strconv"
	"strings"
)

// SplitTarget separates a request-line target into path and query,
// discarding any fragment. The fragment is cut first so that a '#' and
// what follows it are never mistaken for part of the query string.
func SplitTarget(target string) (path, query string) {
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

// HasTraversal reports whether a decoded path contains a "../" or "..\"
// segment anywhere, which is rejected outright rather than normalized.
func HasTraversal(path string) bool {
	return strings.Contains(path, "../") || strings.Contains(path, "..\\") ||
		path == ".." || strings.HasSuffix(path, "/..")
}

// PercentDecode decodes %XX escapes and turns '+' into a space, matching
// application/x-www-form-urlencoded semantics used for both the path and
// the query string. Malformed escapes are passed through verbatim rather
// than rejected — out-of-scope sanitization helpers own stricter policy.
func PercentDecode(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '+':
			b.WriteByte(' ')
		case '%':
			if i+2 < len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					b.WriteByte(byte(v))
					i += 2
					continue
				}
			}
			b.WriteByte('%')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// ParseQuery decodes a raw query string into a flat key/value map. Repeated
// keys keep the first occurrence — this engine never needs multi-valued
// query parameters.
func ParseQuery(raw string) map[string]string {
	out := make(map[string]string)
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		var k, v string
		if i := strings.IndexByte(pair, '='); i >= 0 {
			k, v = pair[:i], pair[i+1:]
		} else {
			k = pair
		}
		k = PercentDecode(k)
		v = PercentDecode(v)
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	return out
}
