package httpcache

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"
)

// CachedResponseGenerator builds an *http.Response from a stored CacheEntry,
// per RFC 7234 §4 and §7.1 (the Via header).
type CachedResponseGenerator struct {
	Validity CacheValidityPolicy
	// Via, if set, is appended as this cache's pseudonym in the Via header
	// of generated responses (RFC 7230 §5.7.1).
	Via string
}

// Generate builds the *http.Response to serve for req from entry at time
// now. The returned response's Body is empty for HEAD requests, and for GET
// requests reads entry's Resource if present. respCC is entry's own parsed
// Cache-Control, used only to decide whether a Warning 113 (Heuristic
// Expiration) applies.
func (g CachedResponseGenerator) Generate(req *http.Request, entry *CacheEntry, respCC ResponseCacheControl, now time.Time) *http.Response {
	header := make(http.Header, len(entry.Headers)+2)
	for k, v := range entry.Headers.Without("Age").ToHTTP() {
		header[k] = v
	}

	age := g.Validity.CurrentAge(entry, now)
	header.Set("Age", FormatAge(age))

	if age > time.Hour && g.Validity.UsedHeuristicFreshness(entry, respCC) {
		header.Add("Warning", warningHeuristicExpiration)
	}

	if g.Via != "" {
		existing := header.Get("Via")
		if existing == "" {
			header.Set("Via", g.Via)
		} else {
			header.Set("Via", existing+", "+g.Via)
		}
	}

	resp := &http.Response{
		Status:     strconv.Itoa(entry.Status) + " " + http.StatusText(entry.Status),
		StatusCode: entry.Status,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     header,
		Request:    req,
	}

	if req.Method == "HEAD" || entry.Resource == nil {
		resp.Body = http.NoBody
		resp.ContentLength = 0
		if entry.Resource != nil {
			resp.ContentLength = entry.Resource.Length()
		}
		return resp
	}

	tr, tombstoned := entry.Resource.(*TombstonedResource)
	if tombstoned {
		tr.Acquire()
	}

	rc, err := entry.Resource.Open()
	if err != nil {
		if tombstoned {
			tr.Release() //nolint:errcheck // Open already failed, nothing to surface
		}
		resp.Body = http.NoBody
		return resp
	}
	if tombstoned {
		rc = releasingReadCloser{ReadCloser: rc, tr: tr}
	}
	resp.Body = rc
	resp.ContentLength = entry.Resource.Length()
	if _, ok := entry.Headers.Get("Content-Length"); !ok {
		if _, hasTE := entry.Headers.Get("Transfer-Encoding"); !hasTE {
			header.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
		}
	}
	return resp
}

// drainAndClose reads body to completion and closes it, the standard way to
// let net/http reuse the underlying connection when a response is discarded
// rather than returned to the caller.
func drainAndClose(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, err := io.Copy(io.Discard, body)
	closeErr := body.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// readAllAndClose reads body to completion, closes it, and returns the
// bytes read even if an error interrupted the read.
func readAllAndClose(body io.ReadCloser) ([]byte, error) {
	data, err := io.ReadAll(body)
	closeErr := body.Close()
	if err != nil {
		return data, err
	}
	return data, closeErr
}

// newBodyReader returns a fresh, independent io.ReadCloser over data.
func newBodyReader(data []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(data))
}

// releasingReadCloser pairs a Resource's body reader with the
// TombstonedResource.Release call its matching Acquire requires, so a
// response streamed from an entry that gets evicted mid-read keeps its
// backing Resource alive until this Close runs.
type releasingReadCloser struct {
	io.ReadCloser
	tr *TombstonedResource
}

func (r releasingReadCloser) Close() error {
	closeErr := r.ReadCloser.Close()
	if err := r.tr.Release(); err != nil && closeErr == nil {
		return err
	}
	return closeErr
}
