package httpcache

import (
	"log/slog"
	"strings"
)

const (
	directiveMaxAge               = "max-age"
	directiveMaxStale             = "max-stale"
	directiveMinFresh             = "min-fresh"
	directiveNoCache              = "no-cache"
	directiveNoStore              = "no-store"
	directiveOnlyIfCached         = "only-if-cached"
	directiveStaleIfError         = "stale-if-error"
	directivePublic               = "public"
	directivePrivate              = "private"
	directiveNoTransform          = "no-transform"
	directiveMustRevalidate       = "must-revalidate"
	directiveProxyRevalidate      = "proxy-revalidate"
	directiveSMaxAge              = "s-maxage"
	directiveStaleWhileRevalidate = "stale-while-revalidate"
)

// rawDirectives parses a Cache-Control header value into a lowercased
// directive->value map. Duplicate directives keep their first occurrence;
// RFC 7234 doesn't define a resolution but "first wins, log the rest"
// matches how the rest of this cache treats repeated headers.
func rawDirectives(value string, log *slog.Logger) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, val, _ := strings.Cut(part, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		val = strings.Trim(strings.TrimSpace(val), `"`)
		if _, seen := out[name]; seen {
			if log != nil {
				log.Warn("duplicate Cache-Control directive, using first value", "directive", name)
			}
			continue
		}
		out[name] = val
	}
	return out
}

// RequestCacheControl is the parsed Cache-Control header of a request, per
// RFC 7234 §5.2.1. Directives absent from the request report NoDelta/false.
type RequestCacheControl struct {
	MaxAge       DeltaSeconds
	MaxStale     DeltaSeconds // NoDelta if absent; 0 is a valid explicit value
	HasMaxStale  bool         // true if the directive appeared, with or without a value
	MinFresh     DeltaSeconds
	NoCache      bool
	NoStore      bool
	OnlyIfCached bool
	StaleIfError DeltaSeconds
	HasStaleIfError bool
}

// ParseRequestCacheControl parses the request's Cache-Control header. When
// the request has no Cache-Control header, an HTTP/1.0 "Pragma: no-cache"
// sets NoCache.
func ParseRequestCacheControl(h Header, log *slog.Logger) RequestCacheControl {
	value, hasCC := h.Get("Cache-Control")
	d := rawDirectives(value, log)

	cc := RequestCacheControl{
		MaxAge:       NoDelta,
		MaxStale:     NoDelta,
		MinFresh:     NoDelta,
		StaleIfError: NoDelta,
	}
	if v, ok := d[directiveMaxAge]; ok {
		cc.MaxAge = ParseDeltaSeconds(v)
	}
	if v, ok := d[directiveMaxStale]; ok {
		cc.HasMaxStale = true
		if v != "" {
			cc.MaxStale = ParseDeltaSeconds(v)
		}
	}
	if v, ok := d[directiveMinFresh]; ok {
		cc.MinFresh = ParseDeltaSeconds(v)
	}
	_, cc.NoCache = d[directiveNoCache]
	if !hasCC {
		if pragma, ok := h.Get("Pragma"); ok {
			for _, tok := range strings.Split(pragma, ",") {
				if strings.EqualFold(strings.TrimSpace(tok), directiveNoCache) {
					cc.NoCache = true
				}
			}
		}
	}
	_, cc.NoStore = d[directiveNoStore]
	_, cc.OnlyIfCached = d[directiveOnlyIfCached]
	if v, ok := d[directiveStaleIfError]; ok {
		cc.HasStaleIfError = true
		if v != "" {
			cc.StaleIfError = ParseDeltaSeconds(v)
		}
	}
	return cc
}

// ResponseCacheControl is the parsed Cache-Control header of a response, per
// RFC 7234 §5.2.2.
type ResponseCacheControl struct {
	Public               bool
	Private              bool
	PrivateFields        []string
	NoCache              bool
	NoCacheFields        []string
	NoStore              bool
	NoTransform          bool
	MustRevalidate       bool
	ProxyRevalidate      bool
	MaxAge               DeltaSeconds
	SMaxAge              DeltaSeconds
	StaleWhileRevalidate DeltaSeconds
	StaleIfError         DeltaSeconds
	HasStaleIfError      bool
}

// ParseResponseCacheControl parses the response's Cache-Control header.
func ParseResponseCacheControl(h Header, log *slog.Logger) ResponseCacheControl {
	value, _ := h.Get("Cache-Control")
	d := rawDirectives(value, log)

	cc := ResponseCacheControl{
		MaxAge:               NoDelta,
		SMaxAge:              NoDelta,
		StaleWhileRevalidate: NoDelta,
		StaleIfError:         NoDelta,
	}
	_, cc.Public = d[directivePublic]
	if v, ok := d[directivePrivate]; ok {
		cc.Private = true
		cc.PrivateFields = splitFieldList(v)
	}
	if v, ok := d[directiveNoCache]; ok {
		cc.NoCache = true
		cc.NoCacheFields = splitFieldList(v)
	}
	_, cc.NoStore = d[directiveNoStore]
	_, cc.NoTransform = d[directiveNoTransform]
	_, cc.MustRevalidate = d[directiveMustRevalidate]
	_, cc.ProxyRevalidate = d[directiveProxyRevalidate]
	if v, ok := d[directiveMaxAge]; ok {
		cc.MaxAge = ParseDeltaSeconds(v)
	}
	if v, ok := d[directiveSMaxAge]; ok {
		cc.SMaxAge = ParseDeltaSeconds(v)
	}
	if v, ok := d[directiveStaleWhileRevalidate]; ok {
		cc.StaleWhileRevalidate = ParseDeltaSeconds(v)
	}
	if v, ok := d[directiveStaleIfError]; ok {
		cc.HasStaleIfError = true
		if v != "" {
			cc.StaleIfError = ParseDeltaSeconds(v)
		}
	}

	detectConflicts(cc, log)
	return cc
}

func splitFieldList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// detectConflicts logs directive combinations RFC 7234 doesn't forbid but
// that a careful cache should flag; resolution (the more restrictive
// directive wins) happens independently in ResponseCachingPolicy, so this
// never mutates cc.
func detectConflicts(cc ResponseCacheControl, log *slog.Logger) {
	if log == nil {
		return
	}
	if cc.Public && cc.Private {
		log.Warn("conflicting Cache-Control directives: public and private both present; private takes precedence")
	}
	if cc.NoStore && cc.MaxAge.Present() {
		log.Warn("conflicting Cache-Control directives: no-store and max-age both present; no-store takes precedence")
	}
}

// canonicalResponseDirectives lists response directive tokens in the
// canonical emission order used when rendering a ResponseCacheControl back
// to a header value.
var canonicalResponseDirectives = []string{
	directivePublic, directivePrivate, directiveNoCache, directiveNoStore,
	directiveNoTransform, directiveMustRevalidate, directiveProxyRevalidate,
	directiveMaxAge, directiveSMaxAge, directiveStaleWhileRevalidate, directiveStaleIfError,
}

// String renders cc in canonical directive order. max-age=0 is emitted;
// absent (negative) delta-seconds directives are omitted.
func (cc ResponseCacheControl) String() string {
	var parts []string
	for _, name := range canonicalResponseDirectives {
		switch name {
		case directivePublic:
			if cc.Public {
				parts = append(parts, directivePublic)
			}
		case directivePrivate:
			if cc.Private {
				parts = append(parts, withFieldList(directivePrivate, cc.PrivateFields))
			}
		case directiveNoCache:
			if cc.NoCache {
				parts = append(parts, withFieldList(directiveNoCache, cc.NoCacheFields))
			}
		case directiveNoStore:
			if cc.NoStore {
				parts = append(parts, directiveNoStore)
			}
		case directiveNoTransform:
			if cc.NoTransform {
				parts = append(parts, directiveNoTransform)
			}
		case directiveMustRevalidate:
			if cc.MustRevalidate {
				parts = append(parts, directiveMustRevalidate)
			}
		case directiveProxyRevalidate:
			if cc.ProxyRevalidate {
				parts = append(parts, directiveProxyRevalidate)
			}
		case directiveMaxAge:
			if cc.MaxAge.Present() {
				parts = append(parts, withSeconds(directiveMaxAge, cc.MaxAge))
			}
		case directiveSMaxAge:
			if cc.SMaxAge.Present() {
				parts = append(parts, withSeconds(directiveSMaxAge, cc.SMaxAge))
			}
		case directiveStaleWhileRevalidate:
			if cc.StaleWhileRevalidate.Present() {
				parts = append(parts, withSeconds(directiveStaleWhileRevalidate, cc.StaleWhileRevalidate))
			}
		case directiveStaleIfError:
			if cc.StaleIfError.Present() || cc.HasStaleIfError {
				parts = append(parts, withSeconds(directiveStaleIfError, cc.StaleIfError))
			}
		}
	}
	return strings.Join(parts, ", ")
}

func withFieldList(name string, fields []string) string {
	if len(fields) == 0 {
		return name
	}
	return name + `="` + strings.Join(fields, ", ") + `"`
}

func withSeconds(name string, d DeltaSeconds) string {
	if d < 0 {
		d = 0
	}
	return name + "=" + itoa(int64(d))
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
