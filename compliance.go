package httpcache

import "net/http"

// ResponseProtocolCompliance enforces the response-shape invariants RFC 7234
// §4 requires a compliant cache to maintain regardless of caching policy:
// bodies that must never be forwarded to the caller get drained, and an
// unsolicited 206 is treated as an error rather than silently cached.
type ResponseProtocolCompliance struct{}

// bodylessStatus reports whether status codes never carry a meaningful body
// that a cache should attempt to read or store.
func bodylessStatus(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return true
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return true
	}
	return false
}

// EnsureProtocolCompliance drains bodies on responses that must not carry
// one (1xx, 204, 304), and on the response to a HEAD request. It returns an
// error if resp is an unsolicited 206 Partial Content, which this cache
// never requests and therefore never knows how to merge into a whole
// representation.
func (ResponseProtocolCompliance) EnsureProtocolCompliance(method string, requestedRange bool, resp *http.Response) error {
	if resp.StatusCode == http.StatusPartialContent && !requestedRange {
		_ = drainAndClose(resp.Body)
		resp.Body = http.NoBody
		return errUnsolicitedPartialContent
	}
	if method == "HEAD" || bodylessStatus(resp.StatusCode) {
		_ = drainAndClose(resp.Body)
		resp.Body = http.NoBody
	}
	return nil
}

// errUnsolicitedPartialContent is returned by EnsureProtocolCompliance when
// an origin sends 206 to a request that never carried a Range header.
var errUnsolicitedPartialContent = &complianceError{"unsolicited 206 Partial Content response"}

type complianceError struct{ msg string }

func (e *complianceError) Error() string { return e.msg }

// stripEntityHeadersFor304 removes the entity headers RFC 7234 §4.3.4 says a
// 304 response must not be allowed to override on the stored entry unless
// explicitly present in the 304 itself: Content-Length and Content-MD5 are
// entity-specific and only meaningful together with a body the 304 doesn't
// carry.
func stripEntityHeadersFor304(h Header) Header {
	return h.WithoutAny("Content-Length", "Content-MD5")
}
