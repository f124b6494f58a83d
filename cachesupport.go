package httpcache

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// DeltaSeconds is a non-negative integer number of seconds, per RFC 7234
// §1.2.1. A negative value means "the directive was absent" throughout this
// package, matching CacheableRequestPolicy's convention.
type DeltaSeconds int64

// NoDelta is the sentinel DeltaSeconds value meaning "absent".
const NoDelta DeltaSeconds = -1

// MaxAge is the RFC 7234 cap applied to any Age value this cache emits.
const MaxAge = 2_147_483_648 * time.Second

// httpDateLayouts are the three date formats RFC 7231 §7.1.1.1 requires a
// recipient to accept, tried in preference order.
var httpDateLayouts = []string{
	time.RFC1123,                 // preferred IMF-fixdate-ish form Go can parse
	"Mon, 02 Jan 2006 15:04:05 GMT",
	time.RFC850,
	time.ANSIC,
}

// ParseHTTPDate parses an HTTP-date value (RFC 7231 §7.1.1.1), trying every
// format a compliant origin might still emit.
func ParseHTTPDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range httpDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatHTTPDate renders t as an RFC 7231 IMF-fixdate.
func FormatHTTPDate(t time.Time) string {
	return t.UTC().Format(http1123)
}

// http1123 matches time.RFC1123 but forces "GMT" instead of "UTC", which is
// what RFC 7231 requires and what most origins send.
const http1123 = "Mon, 02 Jan 2006 15:04:05 GMT"

// ParseDeltaSeconds parses a delta-seconds token (RFC 7234 §1.2.1): a
// non-negative decimal integer. Malformed or negative input yields NoDelta.
func ParseDeltaSeconds(value string) DeltaSeconds {
	value = strings.TrimSpace(value)
	if value == "" {
		return NoDelta
	}
	if strings.ContainsAny(value, ".eE") {
		return NoDelta
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return NoDelta
	}
	return DeltaSeconds(n)
}

// Duration converts d to a time.Duration, or 0 if absent.
func (d DeltaSeconds) Duration() time.Duration {
	if d < 0 {
		return 0
	}
	return time.Duration(d) * time.Second
}

// Present reports whether d represents an actual value rather than absence.
func (d DeltaSeconds) Present() bool { return d >= 0 }

// ParseAgeHeader parses the first Age header value per RFC 7234 §4.2.3. A
// missing, duplicated-but-invalid, or out-of-range value is treated as
// absent and logged, never as an error that blocks caching.
func ParseAgeHeader(values []string, log *slog.Logger) (time.Duration, bool) {
	if len(values) == 0 {
		return 0, false
	}
	first := strings.TrimSpace(values[0])
	if len(values) > 1 && log != nil {
		log.Warn("multiple Age headers, using first", "count", len(values), "value", first)
	}
	n, err := strconv.ParseInt(first, 10, 64)
	if err != nil || n < 0 {
		if log != nil {
			log.Warn("invalid Age header, ignoring", "value", first)
		}
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

// FormatAge clamps age to MaxAge and renders it as an Age header value.
func FormatAge(age time.Duration) string {
	if age < 0 {
		age = 0
	}
	if age > MaxAge {
		age = MaxAge
	}
	return strconv.FormatInt(int64(age/time.Second), 10)
}

// warnCodeHasPrefix reports whether warning has a warn-code beginning with
// prefix (e.g. "11" matches both 110 and 111), per RFC 7234 §5.5.
func warnCodeHasPrefix(warning, prefix string) bool {
	warning = strings.TrimSpace(warning)
	return strings.HasPrefix(warning, prefix)
}

// FilterWarnings1xx removes Warning header values whose warn-code starts
// with "1" (the one-shot codes that must not survive a merge), returning the
// remaining values in order.
func FilterWarnings1xx(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if !warnCodeHasPrefix(v, "1") {
			out = append(out, v)
		}
	}
	return out
}
