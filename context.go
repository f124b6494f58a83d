package httpcache

import (
	"context"
	"net/http"
)

// CacheResponseStatus classifies how a response was produced, mirroring the
// status Apache HttpClient's cache module exposes for observability.
type CacheResponseStatus int

const (
	// CacheModuleResponse means the response did not come from a cache
	// lookup: either the cache itself generated it (e.g. a synthetic 504 for
	// only-if-cached) without consulting the origin, or the request used an
	// unsafe method and was passed through to the origin.
	CacheModuleResponse CacheResponseStatus = iota
	// CacheHit means a stored entry was served without contacting the
	// origin.
	CacheHit
	// CacheMiss means no usable entry existed and the origin was used.
	CacheMiss
	// Validated means a stored entry was revalidated against the origin
	// and served (whether the origin returned 304 or a new representation).
	Validated
	// Failure means the cache could not decide and forwarded the request
	// as if uncached.
	Failure
)

func (s CacheResponseStatus) String() string {
	switch s {
	case CacheModuleResponse:
		return "CACHE_MODULE_RESPONSE"
	case CacheHit:
		return "CACHE_HIT"
	case CacheMiss:
		return "CACHE_MISS"
	case Validated:
		return "VALIDATED"
	case Failure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// HTTPCacheContext carries the per-request state the execution pipeline
// accumulates as it runs: parsed directives, the entry it looked up (if
// any), and the eventual observable outcome. It is attached to the
// request's context.Context so callers (e.g. a metrics Collector) can
// recover it after RoundTrip returns.
type HTTPCacheContext struct {
	RequestCacheControl  RequestCacheControl
	ResponseCacheControl ResponseCacheControl
	CacheEntry           *CacheEntry
	Status               CacheResponseStatus
}

type httpCacheContextKey struct{}

// WithHTTPCacheContext returns a copy of ctx carrying c, replacing any
// HTTPCacheContext already present.
func WithHTTPCacheContext(ctx context.Context, c *HTTPCacheContext) context.Context {
	return context.WithValue(ctx, httpCacheContextKey{}, c)
}

// FromContext recovers the HTTPCacheContext attached to ctx, if any.
func FromContext(ctx context.Context) (*HTTPCacheContext, bool) {
	c, ok := ctx.Value(httpCacheContextKey{}).(*HTTPCacheContext)
	return c, ok
}

// XFromCache is set to "1" on every response this cache served from a
// stored entry (a straight hit or a successful revalidation), mirroring the
// header convention the rest of this ecosystem's caching transports use.
const XFromCache = "X-From-Cache"

// XRevalidated is set to "1" on responses served after a conditional
// request to the origin confirmed (or replaced) a stale entry.
const XRevalidated = "X-Revalidated"

// ResponseStatus returns the CacheResponseStatus recorded for resp's
// request, or Failure if none was recorded.
func ResponseStatus(resp *http.Response) CacheResponseStatus {
	if resp == nil || resp.Request == nil {
		return Failure
	}
	c, ok := FromContext(resp.Request.Context())
	if !ok {
		return Failure
	}
	return c.Status
}
