package httpcache

// defaultCacheableStatusCodes are the status codes RFC 7231 §6.1 marks
// cacheable by default, absent explicit cache-control directives to the
// contrary.
var defaultCacheableStatusCodes = map[int]bool{
	200: true, 203: true, 204: true,
	300: true, 301: true, 308: true,
	404: true, 405: true, 410: true, 414: true, 501: true,
}

// ResponseCachingPolicy decides whether an origin response may be stored,
// per RFC 7234 §3.
type ResponseCachingPolicy struct {
	SharedCache bool
}

// IsCacheable applies the RFC 7234 §3 storage rules to one response. reqCC
// is the cache-control of the request that produced resp; headers are that
// request's headers (needed for the Authorization interaction); respCC is
// resp's own parsed Cache-Control.
func (p ResponseCachingPolicy) IsCacheable(method string, reqCC RequestCacheControl, respCC ResponseCacheControl, status int, headers Header, explicitExpiration bool) bool {
	if respCC.NoStore || reqCC.NoStore {
		return false
	}
	if !(method == "GET" || method == "HEAD") {
		return false
	}
	if p.SharedCache {
		if respCC.Private {
			return false
		}
		if _, hasAuth := headers.Get("Authorization"); hasAuth {
			if !(respCC.Public || respCC.MustRevalidate || respCC.SMaxAge.Present()) {
				return false
			}
		}
	}
	if !defaultCacheableStatusCodes[status] && !explicitExpiration && !respCC.Public {
		return false
	}
	return true
}

// IsGETFullBodyEligible reports whether a 200 GET response may be stored
// with its body, vs. stored only as a directory entry (e.g. a 304 that
// merges into an existing body-bearing entry never needs its own body).
func (ResponseCachingPolicy) IsGETFullBodyEligible(status int) bool {
	return status != 304
}
