package httpcache

import (
	"context"
	"net/http"
	"net/url"
)

// CacheInvalidator removes stored entries that a non-error response to an
// unsafe method makes stale, per RFC 7234 §4.4.
type CacheInvalidator struct {
	Storage CacheStorage
	Keys    CacheKeyGenerator
}

// Invalidate removes the entries for req's effective request URI and for
// any same-origin Location/Content-Location the response carries. It is a
// no-op for error responses (status >= 400), which RFC 7234 §4.4 excludes
// from triggering invalidation.
func (inv CacheInvalidator) Invalidate(ctx context.Context, req *http.Request, resp *http.Response) {
	if resp.StatusCode >= 400 {
		return
	}

	inv.invalidateURI(ctx, req.URL)

	if loc := resp.Header.Get("Location"); loc != "" {
		inv.invalidateHeaderURI(ctx, req.URL, loc)
	}
	if cl := resp.Header.Get("Content-Location"); cl != "" {
		inv.invalidateHeaderURI(ctx, req.URL, cl)
	}
}

func (inv CacheInvalidator) invalidateHeaderURI(ctx context.Context, base *url.URL, headerValue string) {
	target := ResolveReference(base, headerValue)
	if target == nil || !SameOrigin(base, target) {
		return
	}
	inv.invalidateURI(ctx, target)
}

// invalidateURI removes both the GET and (if distinct) HEAD entries for u,
// since either might hold a now-stale representation of the same resource.
func (inv CacheInvalidator) invalidateURI(ctx context.Context, u *url.URL) {
	getKey := inv.Keys.RootKey("GET", u)
	if err := inv.Storage.RemoveEntry(ctx, getKey); err != nil {
		GetLogger().Warn("failed to invalidate cache entry", "key", getKey, "error", err)
	}

	headKey := inv.Keys.RootKey("HEAD", u)
	if headKey != getKey {
		if err := inv.Storage.RemoveEntry(ctx, headKey); err != nil {
			GetLogger().Warn("failed to invalidate HEAD cache entry", "key", headKey, "error", err)
		}
	}
}

// FlushIfMethodMismatch reports whether entry must be treated as a miss for
// a request using method: an entry recorded from a HEAD response carries no
// body and must never satisfy a GET, even though the two share no root key
// collision under CacheKeyGenerator.RootKey's method prefixing. This only
// matters for callers building keys without the method prefix; kept as an
// explicit guard since storage backends may be migrated from a scheme that
// didn't prefix HEAD entries.
func FlushIfMethodMismatch(entry *CacheEntry, method string) bool {
	return entry != nil && entry.RequestMethod == "HEAD" && method == "GET"
}
