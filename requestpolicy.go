package httpcache

import "strings"

// CacheableRequestPolicy decides whether an incoming request is even a
// candidate for cache lookup, per RFC 7234 §5.2.1 and §3.
type CacheableRequestPolicy struct{}

// IsServableFromCache reports whether method/headers permit serving a stored
// response at all. A request with no-cache (including Pragma: no-cache,
// which ParseRequestCacheControl folds into NoCache) or no-store skips the
// lookup entirely and goes to the origin.
func (CacheableRequestPolicy) IsServableFromCache(method string, reqCC RequestCacheControl) bool {
	if method != "GET" && method != "HEAD" {
		return false
	}
	return !reqCC.NoStore && !reqCC.NoCache
}

// IsCacheable reports whether method is one this cache ever stores a
// response for. Only GET and HEAD are cacheable by default; other methods
// may invalidate existing entries (see CacheInvalidator) but are never
// themselves stored.
func (CacheableRequestPolicy) IsCacheable(method string) bool {
	return method == "GET" || method == "HEAD"
}

// IsUnsafe reports whether method is one of the unsafe methods that trigger
// invalidation of a matching stored entry on a non-error response, per RFC
// 7234 §4.4.
func (CacheableRequestPolicy) IsUnsafe(method string) bool {
	switch strings.ToUpper(method) {
	case "POST", "PUT", "DELETE", "PATCH":
		return true
	}
	return false
}
