package httpcache

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// CachingExec implements the request/response pipeline: invalidate on
// unsafe methods, look up and judge suitability of a stored entry, and
// either serve it, revalidate it, or fetch and store a fresh one.
type CachingExec struct {
	Storage         CacheStorage
	Keys            CacheKeyGenerator
	ResourceFactory ResourceFactory
	Origin          http.RoundTripper

	Validity      CacheValidityPolicy
	Suitability   CachedResponseSuitabilityChecker
	Generator     CachedResponseGenerator
	RequestPolicy CacheableRequestPolicy
	ResponsePolicy ResponseCachingPolicy
	Compliance    ResponseProtocolCompliance
	UpdateHandler CacheUpdateHandler
	Invalidator   CacheInvalidator

	MaxObjectSize   int64
	Revalidator     *AsynchronousValidator
	DisableWarnings bool
	Logger          *slog.Logger
}

func (ex *CachingExec) logger() *slog.Logger {
	if ex.Logger != nil {
		return ex.Logger
	}
	return GetLogger()
}

func (ex *CachingExec) origin() http.RoundTripper {
	if ex.Origin != nil {
		return ex.Origin
	}
	return http.DefaultTransport
}

// Execute runs the full caching pipeline for req.
func (ex *CachingExec) Execute(req *http.Request) (resp *http.Response, err error) {
	ex.logger().Debug("RoundTrip started", "method", req.Method, "url", req.URL.String())
	defer func() {
		ex.logger().Debug("RoundTrip completed", "method", req.Method, "url", req.URL.String(), "error", err)
	}()

	ctx := req.Context()
	reqHeaders := HeaderFromHTTP(req.Header)
	reqCC := ParseRequestCacheControl(reqHeaders, ex.logger())
	cacheCtx := &HTTPCacheContext{RequestCacheControl: reqCC}
	req = req.WithContext(WithHTTPCacheContext(ctx, cacheCtx))
	ctx = req.Context()

	method := req.Method

	if ex.RequestPolicy.IsUnsafe(method) {
		resp, err := ex.origin().RoundTrip(req)
		if err != nil {
			cacheCtx.Status = Failure
			return nil, err
		}
		ex.Invalidator.Invalidate(ctx, req, resp)
		cacheCtx.Status = CacheModuleResponse
		return resp, nil
	}

	if !ex.RequestPolicy.IsServableFromCache(method, reqCC) {
		return ex.fetchAndStore(req, ex.Keys.RootKey(method, req.URL), cacheCtx)
	}

	rootKey := ex.Keys.RootKey(method, req.URL)
	entry, storageKey, found, err := ex.lookup(ctx, rootKey, reqHeaders)
	if err != nil {
		ex.logger().Warn("cache lookup failed", "key", rootKey, "error", err)
		found = false
	}
	if found && FlushIfMethodMismatch(entry, method) {
		found = false
	}

	if !found {
		ex.logger().Debug("cache miss", "key", rootKey)
		if reqCC.OnlyIfCached {
			cacheCtx.Status = CacheModuleResponse
			return onlyIfCachedResponse(req), nil
		}
		return ex.fetchAndStore(req, rootKey, cacheCtx)
	}

	cacheCtx.CacheEntry = entry
	respCC := ParseResponseCacheControl(entry.Headers, ex.logger())
	cacheCtx.ResponseCacheControl = respCC
	now := clock.Now().UTC()

	switch ex.Suitability.Check(entry, reqCC, respCC, now) {
	case Suitable:
		cacheCtx.Status = CacheHit
		ex.logger().Debug("cache hit, serving fresh response from cache", "key", storageKey)
		return ex.Generator.Generate(req, entry, respCC, now), nil

	case SuitableStale:
		cacheCtx.Status = CacheHit
		ex.logger().Debug("cache hit, serving stale response from cache", "key", storageKey)
		resp := ex.Generator.Generate(req, entry, respCC, now)
		if !ex.DisableWarnings {
			resp.Header.Add("Warning", warningResponseIsStale)
		}
		if ex.Revalidator != nil {
			ex.Revalidator.TriggerRevalidation(storageKey)
		}
		return resp, nil

	default: // NeedsRevalidation, Unsuitable
		if reqCC.OnlyIfCached {
			cacheCtx.Status = CacheModuleResponse
			return onlyIfCachedResponse(req), nil
		}
		return ex.revalidate(req, storageKey, entry, reqCC, respCC, cacheCtx)
	}
}

// lookup resolves req's root entry and, if it is a variant directory,
// follows the Vary-derived variant key to the concrete leaf entry.
func (ex *CachingExec) lookup(ctx context.Context, rootKey string, reqHeaders Header) (entry *CacheEntry, storageKey string, found bool, err error) {
	root, ok, err := ex.Storage.GetEntry(ctx, rootKey)
	if err != nil || !ok {
		return nil, rootKey, false, err
	}
	if !root.IsVariantRoot() {
		return root, rootKey, true, nil
	}

	varyValue, _ := root.Headers.Get("Vary")
	variantKey, usable := VariantKey(reqHeaders, varyValue)
	if !usable {
		return nil, rootKey, false, nil
	}
	childKey, ok := root.VariantMap[variantKey]
	if !ok {
		return nil, rootKey, false, nil
	}
	child, ok, err := ex.Storage.GetEntry(ctx, childKey)
	if err != nil || !ok {
		return nil, childKey, false, err
	}
	return child, childKey, true, nil
}

// revalidate issues a conditional request for entry and merges or replaces
// it depending on the origin's answer.
func (ex *CachingExec) revalidate(req *http.Request, storageKey string, entry *CacheEntry, reqCC RequestCacheControl, respCC ResponseCacheControl, cacheCtx *HTTPCacheContext) (*http.Response, error) {
	condReq := addValidators(req, entry.Headers)
	requestInstant := clock.Now().UTC()
	resp, err := ex.origin().RoundTrip(condReq)
	responseInstant := clock.Now().UTC()

	hasError := err != nil
	hasServerError := resp != nil && resp.StatusCode >= 500
	if hasError || hasServerError {
		if resp != nil {
			_ = drainAndClose(resp.Body)
		}
		if ex.Validity.WithinStaleIfError(entry, respCC, reqCC, responseInstant) {
			cacheCtx.Status = Validated
			generated := ex.Generator.Generate(req, entry, respCC, responseInstant)
			generated.Header.Set("X-Stale", "1")
			if !ex.DisableWarnings {
				generated.Header.Add("Warning", warningRevalidationFailed)
			}
			return generated, nil
		}
		if hasError {
			cacheCtx.Status = Failure
			return nil, err
		}
		cacheCtx.Status = CacheMiss
		return resp, nil
	}

	if resp.StatusCode == http.StatusNotModified {
		_ = drainAndClose(resp.Body)
		merged, mergeErr := ex.UpdateHandler.Merge(entry, HeaderFromHTTP(resp.Header), responseInstant, requestInstant)
		if mergeErr != nil {
			ex.logger().Warn("304 failed merge sanity check, refetching", "key", storageKey, "error", mergeErr)
			return ex.fetchAndStore(req, storageKey, cacheCtx)
		}
		if err := ex.Storage.PutEntry(req.Context(), storageKey, merged); err != nil {
			ex.logger().Warn("failed to store merged entry", "key", storageKey, "error", err)
		}
		mergedCC := ParseResponseCacheControl(merged.Headers, ex.logger())
		cacheCtx.Status = Validated
		return ex.Generator.Generate(req, merged, mergedCC, responseInstant), nil
	}

	// Origin sent a full representation instead of 304: treat like a miss,
	// storing the fresh response under the same storage key.
	cacheCtx.Status = Validated
	return ex.storeResponse(req, resp, storageKey, requestInstant, responseInstant)
}

// fetchAndStore forwards req to the origin and stores the response if the
// caching policy allows it.
func (ex *CachingExec) fetchAndStore(req *http.Request, rootKey string, cacheCtx *HTTPCacheContext) (*http.Response, error) {
	reqCC := cacheCtx.RequestCacheControl
	if reqCC.OnlyIfCached {
		cacheCtx.Status = CacheModuleResponse
		return onlyIfCachedResponse(req), nil
	}

	requestInstant := clock.Now().UTC()
	resp, err := ex.origin().RoundTrip(req)
	if err != nil {
		cacheCtx.Status = Failure
		return nil, err
	}
	responseInstant := clock.Now().UTC()

	if err := ex.Compliance.EnsureProtocolCompliance(req.Method, req.Header.Get("Range") != "", resp); err != nil {
		ex.logger().Warn("response protocol compliance violation", "url", req.URL.String(), "error", err)
	}

	cacheCtx.Status = CacheMiss
	return ex.storeResponse(req, resp, rootKey, requestInstant, responseInstant)
}

// storeResponse decides whether resp is cacheable and, if so, captures its
// body (up to MaxObjectSize) and stores a CacheEntry, returning a response
// that reproduces exactly what the caller would have seen uncached.
func (ex *CachingExec) storeResponse(req *http.Request, resp *http.Response, rootKey string, requestInstant, responseInstant time.Time) (*http.Response, error) {
	headers := HeaderFromHTTP(resp.Header)
	reqCC := ParseRequestCacheControl(HeaderFromHTTP(req.Header), ex.logger())
	respCC := ParseResponseCacheControl(headers, ex.logger())

	_, explicitExpiration := headers.Get("Expires")
	explicitExpiration = explicitExpiration || respCC.MaxAge.Present() || respCC.SMaxAge.Present()

	cacheable := ex.ResponsePolicy.IsCacheable(req.Method, reqCC, respCC, resp.StatusCode, HeaderFromHTTP(req.Header), explicitExpiration)
	if !cacheable {
		_ = ex.Storage.RemoveEntry(req.Context(), rootKey)
		return resp, nil
	}

	varyValue, hasVary := headers.Get("Vary")
	storageKey := rootKey
	if hasVary {
		variantKey, usable := VariantKey(HeaderFromHTTP(req.Header), varyValue)
		if !usable {
			// Vary: * — never cacheable as a matchable variant.
			_ = ex.Storage.RemoveEntry(req.Context(), rootKey)
			return resp, nil
		}
		if variantKey != "" {
			storageKey = VariantStorageKey(rootKey, variantKey)
		}
	}

	limiter := &SizeLimitedResponseReader{MaxObjectSize: ex.MaxObjectSize}
	resp.Body = limiter.Wrap(resp.Body)

	entry := &CacheEntry{
		RequestInstant:  requestInstant,
		ResponseInstant: responseInstant,
		Status:          resp.StatusCode,
		Headers:         headers,
		RequestMethod:   req.Method,
		RequestURI:      req.URL.String(),
	}

	original := resp.Body
	resp.Body = &storeOnCloseBody{
		inner: original,
		onClose: func() {
			captured, ok := limiter.Captured()
			if !ok {
				ex.logger().Debug("response exceeded MaxObjectSize, not caching", "url", req.URL.String())
				return
			}
			if req.Method == "GET" && len(captured) > 0 {
				resource, err := ex.resourceFactory().Generate(storageKey, captured)
				if err != nil {
					ex.logger().Warn("failed to materialize cached resource", "error", err)
					return
				}
				entry.Resource = resource
			}
			if err := ex.Storage.PutEntry(context.Background(), storageKey, entry); err != nil {
				ex.logger().Warn("failed to store cache entry", "key", storageKey, "error", err)
				return
			}
			if storageKey != rootKey {
				ex.recordVariant(rootKey, varyValue, VariantKeyOnly(HeaderFromHTTP(req.Header), varyValue), storageKey)
			}
		},
	}

	return resp, nil
}

func (ex *CachingExec) resourceFactory() ResourceFactory {
	if ex.ResourceFactory != nil {
		return ex.ResourceFactory
	}
	return HeapResourceFactory{}
}

// recordVariant updates (or creates) the root directory entry so that
// future lookups can resolve variantKey to storageKey.
func (ex *CachingExec) recordVariant(rootKey, varyValue, variantKey, storageKey string) {
	err := ex.Storage.UpdateEntry(context.Background(), rootKey, func(existing *CacheEntry) (*CacheEntry, error) {
		var root *CacheEntry
		if existing != nil && existing.IsVariantRoot() {
			root = existing.Clone()
		} else {
			root = &CacheEntry{
				Headers:    Header{{Name: "Vary", Value: varyValue}},
				VariantMap: map[string]string{},
			}
		}
		root.VariantMap[variantKey] = storageKey
		return root, nil
	})
	if err != nil {
		ex.logger().Warn("failed to update variant directory", "key", rootKey, "error", err)
	}
}

// VariantKeyOnly is VariantKey without the usability flag, for callers that
// already know the response is cacheable as a variant.
func VariantKeyOnly(reqHeaders Header, varyHeaderValue string) string {
	key, _ := VariantKey(reqHeaders, varyHeaderValue)
	return key
}

// addValidators returns a shallow clone of req carrying If-None-Match
// and/or If-Modified-Since derived from entry's stored headers, unless the
// caller already set either.
func addValidators(req *http.Request, entryHeaders Header) *http.Request {
	etag, hasETag := entryHeaders.Get("Etag")
	lastModified, hasLM := entryHeaders.Get("Last-Modified")

	needsETag := hasETag && req.Header.Get("If-None-Match") == ""
	needsLM := hasLM && req.Header.Get("If-Modified-Since") == ""
	if !needsETag && !needsLM {
		return req
	}

	clone := req.Clone(req.Context())
	if needsETag {
		clone.Header.Set("If-None-Match", etag)
	}
	if needsLM {
		clone.Header.Set("If-Modified-Since", lastModified)
	}
	return clone
}

// onlyIfCachedResponse synthesizes the 504 Gateway Timeout RFC 7234 §5.2.1.7
// mandates when only-if-cached cannot be satisfied.
func onlyIfCachedResponse(req *http.Request) *http.Response {
	header := make(http.Header)
	header.Set("Content-Length", "0")
	return &http.Response{
		Status:        "504 Gateway Timeout",
		StatusCode:    http.StatusGatewayTimeout,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          http.NoBody,
		ContentLength: 0,
		Request:       req,
	}
}

// storeOnCloseBody calls onClose exactly once, as soon as inner reports an
// error such as io.EOF (or, failing that, when the caller closes early), so the capture
// buffer reflects however much of the body the caller actually consumed.
type storeOnCloseBody struct {
	inner interface {
		Read([]byte) (int, error)
		Close() error
	}
	onClose func()
	done    bool
}

func (b *storeOnCloseBody) Read(p []byte) (int, error) {
	n, err := b.inner.Read(p)
	if err != nil && !b.done {
		b.done = true
		b.onClose()
	}
	return n, err
}

func (b *storeOnCloseBody) Close() error {
	err := b.inner.Close()
	if !b.done {
		b.done = true
		b.onClose()
	}
	return err
}
