package httpcache

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Transport is an http.RoundTripper that serves from a CacheStorage where
// RFC 7234 allows it, validates stale entries with conditional requests,
// and stores cacheable origin responses for next time.
type Transport struct {
	// RoundTripper is the underlying transport used to reach the origin. If
	// nil, http.DefaultTransport is used.
	RoundTripper http.RoundTripper

	// Storage is where CacheEntry values are persisted. NewTransport
	// defaults this to an unbounded *InternalCacheStorage.
	Storage CacheStorage

	// ResourceFactory materializes response bodies. NewTransport defaults
	// this to HeapResourceFactory.
	ResourceFactory ResourceFactory

	// SharedCache puts the cache in shared mode: s-maxage and
	// proxy-revalidate take effect, and the Authorization storage rule
	// applies. Default false (private cache).
	SharedCache bool

	// HeuristicCachingEnabled permits RFC 7234 §4.2.2 heuristic freshness
	// for responses with no explicit expiration.
	HeuristicCachingEnabled bool
	// HeuristicCoefficient scales (Date - Last-Modified) into a heuristic
	// lifetime. Defaults to 0.1 if zero.
	HeuristicCoefficient float64
	// HeuristicDefaultLifetime is used when heuristics apply but no
	// Last-Modified is present.
	HeuristicDefaultLifetime time.Duration

	// MaxObjectSize bounds how many response body bytes will be captured
	// for storage; larger responses are served normally but never cached.
	// Zero means unbounded.
	MaxObjectSize int64

	// RequestCollapsingEnabled collapses concurrent identical GET/HEAD
	// requests into a single origin round trip.
	RequestCollapsingEnabled bool

	// DisableWarningHeader suppresses the RFC 7234 §5.5 Warning header on
	// generated responses.
	DisableWarningHeader bool

	// Via, if set, is this cache's pseudonym in the Via header of
	// generated (cache-hit and revalidated) responses.
	Via string

	// Resilience optionally wraps every origin round trip (including
	// background revalidation) in retry/circuit-breaker policies.
	Resilience *ResilienceConfig

	// EncryptionPassphrase, if set, is used to derive an AES-256-GCM key
	// (via scrypt) to encrypt entries before they reach Storage. Cache keys
	// are always SHA-256 hashed regardless of this setting.
	EncryptionPassphrase string

	initOnce sync.Once
	exec     *AsyncCachingExec
	logger   *slog.Logger
}

// log returns t's configured logger, falling back to the package-wide
// GetLogger() when none was set via WithLogger. Safe to call on a nil
// Transport.
func (t *Transport) log() *slog.Logger {
	if t == nil || t.logger == nil {
		return GetLogger()
	}
	return t.logger
}

// NewTransport returns a Transport storing entries in an unbounded
// in-process LRU. Use the With* options or set fields directly before the
// first RoundTrip to customize it.
func NewTransport(opts ...TransportOption) (*Transport, error) {
	t := &Transport{}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Client returns an *http.Client that caches responses through t.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

func (t *Transport) ensureInit() {
	t.initOnce.Do(func() {
		if t.Storage == nil {
			t.Storage = &InternalCacheStorage{OnEvict: DisposeEvictedResources}
		}
		if t.ResourceFactory == nil {
			t.ResourceFactory = HeapResourceFactory{}
		}
		if t.EncryptionPassphrase != "" {
			if byteBackend, ok := t.Storage.(ByteCacheStorage); ok {
				secure, err := NewSecureCacheStorage(byteBackend, GobEntrySerializer{ResourceFactory: t.ResourceFactory}, t.EncryptionPassphrase)
				if err != nil {
					GetLogger().Error("failed to initialize encryption, continuing without it", "error", err)
				} else {
					t.Storage = secure
				}
			} else {
				GetLogger().Warn("EncryptionPassphrase set but Storage does not implement ByteCacheStorage; encryption not applied")
			}
		}

		validity := CacheValidityPolicy{
			SharedCache:              t.SharedCache,
			HeuristicCachingEnabled:  t.HeuristicCachingEnabled,
			HeuristicCoefficient:     t.HeuristicCoefficient,
			HeuristicDefaultLifetime: t.HeuristicDefaultLifetime,
		}

		origin := t.RoundTripper
		if origin == nil {
			origin = http.DefaultTransport
		}
		if t.Resilience != nil {
			origin = &resilientRoundTripper{inner: origin, config: t.Resilience}
		}

		exec := &CachingExec{
			Storage:         t.Storage,
			ResourceFactory: t.ResourceFactory,
			Origin:          origin,
			Validity:        validity,
			Suitability:     CachedResponseSuitabilityChecker{Validity: validity},
			Generator:       CachedResponseGenerator{Validity: validity, Via: t.Via},
			ResponsePolicy:  ResponseCachingPolicy{SharedCache: t.SharedCache},
			Invalidator:     CacheInvalidator{Storage: t.Storage},
			MaxObjectSize:   t.MaxObjectSize,
			DisableWarnings: t.DisableWarningHeader,
			Logger:          t.logger,
		}
		exec.Revalidator = NewAsynchronousValidator(
			DefaultExponentialBackOffSchedulingStrategy(),
			NewRealScheduledExecutor(),
			func(ctx context.Context, storageKey string) error {
				return t.revalidateByStorageKey(ctx, exec, storageKey)
			},
		)

		t.exec = &AsyncCachingExec{Exec: exec}
	})
}

// revalidateByStorageKey re-derives a request from the stored entry's
// RequestMethod/RequestURI and runs it through exec, which will merge a 304
// or replace the entry outright. Used by background stale-while-revalidate.
func (t *Transport) revalidateByStorageKey(ctx context.Context, exec *CachingExec, storageKey string) error {
	entry, ok, err := t.Storage.GetEntry(ctx, storageKey)
	if err != nil || !ok {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, entry.RequestMethod, entry.RequestURI, nil)
	if err != nil {
		return err
	}
	_, err = exec.Execute(req)
	return err
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.ensureInit()
	var resp *http.Response
	var err error
	if t.RequestCollapsingEnabled {
		resp, err = t.exec.Execute(req)
	} else {
		resp, err = t.exec.Exec.Execute(req)
	}
	if err != nil || resp == nil {
		return resp, err
	}
	switch ResponseStatus(resp) {
	case CacheHit, Validated:
		resp.Header.Set(XFromCache, "1")
	}
	if ResponseStatus(resp) == Validated {
		resp.Header.Set(XRevalidated, "1")
	}
	return resp, nil
}
