package httpcache

import "time"

// Suitability is the outcome of checking a stored entry against an
// incoming request, per RFC 7234 §4.
type Suitability int

const (
	// Unsuitable means the entry must not be used at all; a forward request
	// is required and the entry's staleness cannot be masked.
	Unsuitable Suitability = iota
	// NeedsRevalidation means the entry may become the response after a
	// successful conditional revalidation, but cannot be served as-is.
	NeedsRevalidation
	// Suitable means the entry can be served directly.
	Suitable
	// SuitableStale means the entry is stale but within a window (max-stale,
	// stale-while-revalidate) that permits serving it anyway, tagged with a
	// Warning 110 response header.
	SuitableStale
)

// CachedResponseSuitabilityChecker applies RFC 7234 §4's suitability rules.
type CachedResponseSuitabilityChecker struct {
	Validity CacheValidityPolicy
}

// Check decides how entry may be used to satisfy a request carrying reqCC,
// given the stored response's own respCC, at time now.
func (c CachedResponseSuitabilityChecker) Check(entry *CacheEntry, reqCC RequestCacheControl, respCC ResponseCacheControl, now time.Time) Suitability {
	if reqCC.NoCache {
		return NeedsRevalidation
	}
	if respCC.NoCache && len(respCC.NoCacheFields) == 0 {
		return NeedsRevalidation
	}

	fresh := c.Validity.IsFresh(entry, respCC, now)
	currentAge := c.Validity.CurrentAge(entry, now)
	lifetime := c.Validity.FreshnessLifetime(entry, respCC)

	if fresh {
		if reqCC.MaxAge.Present() && currentAge > reqCC.MaxAge.Duration() {
			return NeedsRevalidation
		}
		if reqCC.MinFresh.Present() {
			remaining := lifetime - currentAge
			if remaining < reqCC.MinFresh.Duration() {
				return NeedsRevalidation
			}
		}
		return Suitable
	}

	// Stale. must-revalidate (and proxy-revalidate for shared caches) forbid
	// masking staleness with max-stale or stale-while-revalidate.
	if respCC.MustRevalidate || (c.Validity.SharedCache && respCC.ProxyRevalidate) {
		return NeedsRevalidation
	}

	staleness := currentAge - lifetime
	if reqCC.HasMaxStale {
		if !reqCC.MaxStale.Present() || staleness <= reqCC.MaxStale.Duration() {
			return SuitableStale
		}
	}
	if c.Validity.WithinStaleWhileRevalidate(entry, respCC, now) {
		return SuitableStale
	}
	return NeedsRevalidation
}
