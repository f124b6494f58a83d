package httpcache

import "time"

// clockSource lets tests substitute a virtual time source; see clock_test.go.
type clockSource interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

var clock clockSource = realClock{}

// CacheValidityPolicy implements the RFC 7234 §4.2 age and freshness
// calculations.
type CacheValidityPolicy struct {
	// SharedCache enables s-maxage and the Authorization storage rule.
	SharedCache bool
	// HeuristicCachingEnabled permits §4.2.2 heuristic freshness when no
	// explicit expiration is given.
	HeuristicCachingEnabled bool
	// HeuristicCoefficient scales (Date - Last-Modified) into a heuristic
	// lifetime. RFC 7234 suggests 0.1.
	HeuristicCoefficient float64
	// HeuristicDefaultLifetime is used when heuristics are enabled but no
	// Last-Modified is present.
	HeuristicDefaultLifetime time.Duration
}

// dateHeader returns the entry's Date header, falling back to
// ResponseInstant when the header is missing or unparsable (entries are
// always stored with a Date added at capture time in practice, but the
// fallback keeps the age formula total).
func dateHeader(e *CacheEntry) time.Time {
	if v, ok := e.Headers.Get("Date"); ok {
		if t, ok := ParseHTTPDate(v); ok {
			return t
		}
	}
	return e.ResponseInstant
}

// ApparentAge implements RFC 7234 §4.2.3: apparent_age = max(0, response_time - date_value).
func (CacheValidityPolicy) ApparentAge(e *CacheEntry) time.Duration {
	age := e.ResponseInstant.Sub(dateHeader(e))
	if age < 0 {
		return 0
	}
	return age
}

// ResponseDelay is response_time - request_time, clamped to 0 so a clock
// that runs backwards between the two instants never produces a negative
// age contribution.
func (CacheValidityPolicy) ResponseDelay(e *CacheEntry) time.Duration {
	d := e.ResponseInstant.Sub(e.RequestInstant)
	if d < 0 {
		return 0
	}
	return d
}

// CorrectedInitialAge implements corrected_initial_age = max(apparent_age,
// age_value) + response_delay.
func (p CacheValidityPolicy) CorrectedInitialAge(e *CacheEntry) time.Duration {
	ageValue, _ := ParseAgeHeader(e.Headers.Values("Age"), nil)
	apparent := p.ApparentAge(e)
	base := apparent
	if ageValue > base {
		base = ageValue
	}
	return base + p.ResponseDelay(e)
}

// ResidentTime is now - response_time.
func (CacheValidityPolicy) ResidentTime(e *CacheEntry, now time.Time) time.Duration {
	d := now.Sub(e.ResponseInstant)
	if d < 0 {
		return 0
	}
	return d
}

// CurrentAge implements RFC 7234 §4.2.3 in full.
func (p CacheValidityPolicy) CurrentAge(e *CacheEntry, now time.Time) time.Duration {
	return p.CorrectedInitialAge(e) + p.ResidentTime(e, now)
}

// FreshnessLifetime implements RFC 7234 §4.2.1: s-maxage (shared caches
// only), else max-age, else Expires-Date, else heuristic.
func (p CacheValidityPolicy) FreshnessLifetime(e *CacheEntry, respCC ResponseCacheControl) time.Duration {
	if p.SharedCache && respCC.SMaxAge.Present() {
		return respCC.SMaxAge.Duration()
	}
	if respCC.MaxAge.Present() {
		return respCC.MaxAge.Duration()
	}
	if v, ok := e.Headers.Get("Expires"); ok {
		if expires, ok := ParseHTTPDate(v); ok {
			if life := expires.Sub(dateHeader(e)); life > 0 {
				return life
			}
			return 0
		}
	}
	if p.HeuristicCachingEnabled && isHeuristicCacheable(e.Status) {
		if lm, ok := e.Headers.Get("Last-Modified"); ok {
			if t, ok := ParseHTTPDate(lm); ok {
				if life := dateHeader(e).Sub(t); life > 0 {
					coeff := p.HeuristicCoefficient
					if coeff <= 0 {
						coeff = 0.1
					}
					return time.Duration(float64(life) * coeff)
				}
			}
		}
		return p.HeuristicDefaultLifetime
	}
	return 0
}

// UsedHeuristicFreshness reports whether FreshnessLifetime(e, respCC) would
// be computed from heuristics rather than an explicit expiration, the
// precondition for RFC 7234 §5.5's Warning 113 when age exceeds 1 hour.
func (p CacheValidityPolicy) UsedHeuristicFreshness(e *CacheEntry, respCC ResponseCacheControl) bool {
	if p.SharedCache && respCC.SMaxAge.Present() {
		return false
	}
	if respCC.MaxAge.Present() {
		return false
	}
	if _, ok := e.Headers.Get("Expires"); ok {
		return false
	}
	return p.HeuristicCachingEnabled && isHeuristicCacheable(e.Status)
}

// isHeuristicCacheable reports whether status is a code RFC 7231 §6.1 marks
// cacheable by default, the precondition for heuristic freshness.
func isHeuristicCacheable(status int) bool {
	switch status {
	case 200, 203, 204, 300, 301, 308, 404, 405, 410, 414, 501:
		return true
	}
	return false
}

// IsFresh reports whether e is fresh at now: currentAge < freshnessLifetime.
func (p CacheValidityPolicy) IsFresh(e *CacheEntry, respCC ResponseCacheControl, now time.Time) bool {
	return p.CurrentAge(e, now) < p.FreshnessLifetime(e, respCC)
}

// StaleIfErrorWindow reports the stale-if-error window and whether it
// applies, combining response and request directives (request takes
// precedence when both are present, per RFC 5861).
func (p CacheValidityPolicy) StaleIfErrorWindow(respCC ResponseCacheControl, reqCC RequestCacheControl) (time.Duration, bool) {
	if reqCC.HasStaleIfError {
		if reqCC.StaleIfError.Present() {
			return reqCC.StaleIfError.Duration(), true
		}
		return MaxAge, true
	}
	if respCC.HasStaleIfError {
		if respCC.StaleIfError.Present() {
			return respCC.StaleIfError.Duration(), true
		}
		return MaxAge, true
	}
	return 0, false
}

// WithinStaleIfError reports whether now is still inside e's stale-if-error
// window given respCC/reqCC.
func (p CacheValidityPolicy) WithinStaleIfError(e *CacheEntry, respCC ResponseCacheControl, reqCC RequestCacheControl, now time.Time) bool {
	window, ok := p.StaleIfErrorWindow(respCC, reqCC)
	if !ok {
		return false
	}
	return p.CurrentAge(e, now) < p.FreshnessLifetime(e, respCC)+window
}

// WithinStaleWhileRevalidate reports whether now is still inside e's
// stale-while-revalidate window.
func (p CacheValidityPolicy) WithinStaleWhileRevalidate(e *CacheEntry, respCC ResponseCacheControl, now time.Time) bool {
	if !respCC.StaleWhileRevalidate.Present() {
		return false
	}
	return p.CurrentAge(e, now) < p.FreshnessLifetime(e, respCC)+respCC.StaleWhileRevalidate.Duration()
}
