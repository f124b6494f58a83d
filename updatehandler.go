package httpcache

import (
	"net/http"
	"time"
)

// entityHeaderBlacklist lists headers a 304 response is never allowed to
// update on the stored entry: they describe the representation's bytes,
// which a 304 (by definition) does not carry.
var entityHeaderBlacklist = map[string]bool{
	"content-length":    true,
	"content-md5":       true,
	"content-encoding":  true,
	"transfer-encoding": true,
}

// CacheUpdateHandler merges a 304 Not Modified response into a stored
// CacheEntry, per RFC 7234 §4.3.4.
type CacheUpdateHandler struct{}

// errBadNotModified is returned when a 304 fails the Date-ordering sanity
// check RFC 7234 §4.3.4 implies: a revalidation response must not claim to
// be older than the entry it's revalidating.
var errBadNotModified = &complianceError{"304 response is older than the cached entry it would update"}

// Merge returns a new CacheEntry combining existing with notModified's
// headers, or an error if notModified fails the staleness/ordering check.
// The returned entry keeps existing's Resource, RequestMethod, RequestURI
// and VariantMap untouched; existing is never mutated.
func (CacheUpdateHandler) Merge(existing *CacheEntry, notModified Header, responseInstant, requestInstant time.Time) (*CacheEntry, error) {
	if existingDate, ok := existing.Headers.Get("Date"); ok {
		if newDate, ok := notModified.Get("Date"); ok {
			et, eok := ParseHTTPDate(existingDate)
			nt, nok := ParseHTTPDate(newDate)
			if eok && nok && nt.Before(et) {
				return nil, errBadNotModified
			}
		}
	}

	merged := existing.Clone()
	merged.ResponseInstant = responseInstant
	merged.RequestInstant = requestInstant

	cleaned := stripEntityHeadersFor304(notModified).Without("Warning")

	updated := make(Header, 0, len(merged.Headers))
	replaced := map[string]bool{}
	for _, f := range cleaned {
		name := canonicalHeaderName(f.Name)
		if entityHeaderBlacklist[name] {
			continue
		}
		replaced[name] = true
	}
	for _, f := range merged.Headers {
		name := canonicalHeaderName(f.Name)
		if replaced[name] {
			continue
		}
		updated = append(updated, f)
	}
	for _, f := range cleaned {
		name := canonicalHeaderName(f.Name)
		if entityHeaderBlacklist[name] {
			continue
		}
		updated = append(updated, f)
	}

	// RFC 7234 §4.3.4: the merged representation retains no leftover 1xx
	// Warning codes. The 304's own Warning headers were already dropped
	// above; this removes the 1xx codes still on the stored entry.
	merged.Headers = filterWarningFields(updated)
	return merged, nil
}

func filterWarningFields(h Header) Header {
	out := make(Header, 0, len(h))
	for _, f := range h {
		if canonicalHeaderName(f.Name) == "warning" && warnCodeHasPrefix(f.Value, "1") {
			continue
		}
		out = append(out, f)
	}
	return out
}

// statusFromNotModified reports the HTTP status the generator should report
// after a successful merge: the original entry's status, never 304 itself.
func statusFromNotModified(existing *CacheEntry) int {
	if existing.Status == http.StatusNotModified {
		return http.StatusOK
	}
	return existing.Status
}
