package httpcache

import (
	"net/url"
	"sort"
	"strings"
)

// CacheKeyGenerator canonicalizes request targets into storage keys and
// derives variant keys from a response's Vary header, per §4.1.
type CacheKeyGenerator struct{}

// RootKey returns the canonical storage key for req: lowercase scheme and
// host, an explicit default port, and the path plus query exactly as sent.
// RootKey is idempotent: RootKey applied to a URL built from an already
// canonical key string reproduces the same key.
func (CacheKeyGenerator) RootKey(method string, u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" {
		switch scheme {
		case "https":
			port = "443"
		default:
			port = "80"
		}
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	key := scheme + "://" + host + ":" + port + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	if method != "" && method != "GET" {
		key = method + " " + key
	}
	return key
}

// ResolveReference resolves a Content-Location/Location value against the
// request's target, returning nil if it cannot be parsed.
func ResolveReference(base *url.URL, ref string) *url.URL {
	target, err := url.Parse(ref)
	if err != nil {
		return nil
	}
	return base.ResolveReference(target)
}

// SameOrigin reports whether a and b share scheme and host:port.
func SameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}

// VaryUncacheable is the sentinel returned by VariantKey when the stored
// response's Vary header is "*": RFC 7234 §4.1 says such a response can
// never be matched by a subsequent request, so no variant key is generated
// and the response is not cacheable as a variant at all.
const VaryUncacheable = ""

// VariantKey builds the canonicalized variant key for req given the fields
// listed in a stored response's Vary header. Field names are lowercased and
// sorted for determinism; values are percent-encoded. Returns
// (VaryUncacheable, false) if varyHeaderValue is "*".
func VariantKey(reqHeaders Header, varyHeaderValue string) (string, bool) {
	fields := splitCommaList(varyHeaderValue)
	if len(fields) == 0 {
		return "", true // no Vary: no variants, caller uses the root entry directly
	}
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "*" {
			return VaryUncacheable, false
		}
		if f != "" {
			names = append(names, f)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		value, _ := reqHeaders.Get(name)
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
	}
	b.WriteByte('}')
	return b.String(), true
}

func splitCommaList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// VariantStorageKey composes the prefixed storage key for a variant, as
// stored in a root entry's VariantMap: the variant key is prepended to the
// root key so that variant entries sort adjacent to their root in backends
// that iterate keys lexicographically.
func VariantStorageKey(rootKey, variantKey string) string {
	if variantKey == "" {
		return rootKey
	}
	return variantKey + rootKey
}
