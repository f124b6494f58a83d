package httpcache

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// TransportOption configures a Transport. Use the With* functions to build
// one, or set exported Transport fields directly before the first
// RoundTrip.
type TransportOption func(*Transport) error

// WithRoundTripper sets the underlying http.RoundTripper used to reach the
// origin. If nil, http.DefaultTransport is used.
func WithRoundTripper(rt http.RoundTripper) TransportOption {
	return func(t *Transport) error {
		t.RoundTripper = rt
		return nil
	}
}

// WithStorage sets the CacheStorage backend. Default is an unbounded
// *InternalCacheStorage.
func WithStorage(storage CacheStorage) TransportOption {
	return func(t *Transport) error {
		t.Storage = storage
		return nil
	}
}

// WithResourceFactory sets the ResourceFactory used to materialize
// response bodies. Default is HeapResourceFactory.
func WithResourceFactory(factory ResourceFactory) TransportOption {
	return func(t *Transport) error {
		t.ResourceFactory = factory
		return nil
	}
}

// WithLogger sets the *slog.Logger used for this Transport's own
// CachingExec and RoundTrip diagnostics. Default is the package-wide
// GetLogger().
func WithLogger(logger *slog.Logger) TransportOption {
	return func(t *Transport) error {
		t.logger = logger
		return nil
	}
}

// WithSharedCache puts the cache into shared mode: s-maxage and
// proxy-revalidate take effect, and responses to requests carrying
// Authorization are only stored when explicitly marked cacheable. Default
// is false (private cache).
func WithSharedCache(shared bool) TransportOption {
	return func(t *Transport) error {
		t.SharedCache = shared
		return nil
	}
}

// WithHeuristicCaching enables RFC 7234 §4.2.2 heuristic freshness for
// responses with no explicit expiration, using coefficient to scale
// (Date - Last-Modified) and defaultLifetime when no Last-Modified exists.
func WithHeuristicCaching(coefficient float64, defaultLifetime time.Duration) TransportOption {
	return func(t *Transport) error {
		t.HeuristicCachingEnabled = true
		t.HeuristicCoefficient = coefficient
		t.HeuristicDefaultLifetime = defaultLifetime
		return nil
	}
}

// WithMaxObjectSize bounds how many response body bytes are captured for
// storage. Responses larger than maxBytes are still served in full, just
// never cached. Zero (the default) means unbounded.
func WithMaxObjectSize(maxBytes int64) TransportOption {
	return func(t *Transport) error {
		t.MaxObjectSize = maxBytes
		return nil
	}
}

// WithRequestCollapsing enables single-flight collapsing of concurrent
// identical GET/HEAD requests into one origin round trip.
func WithRequestCollapsing(enabled bool) TransportOption {
	return func(t *Transport) error {
		t.RequestCollapsingEnabled = enabled
		return nil
	}
}

// WithDisableWarningHeader disables the RFC 7234 §5.5 Warning header on
// generated responses.
func WithDisableWarningHeader(disable bool) TransportOption {
	return func(t *Transport) error {
		t.DisableWarningHeader = disable
		return nil
	}
}

// WithVia sets this cache's pseudonym for the Via header of cache-hit and
// revalidated responses.
func WithVia(pseudonym string) TransportOption {
	return func(t *Transport) error {
		t.Via = pseudonym
		return nil
	}
}

// WithResilience wraps every origin round trip (including background
// revalidation) with retry and/or circuit-breaker policies.
func WithResilience(config *ResilienceConfig) TransportOption {
	return func(t *Transport) error {
		t.Resilience = config
		return nil
	}
}

// WithEncryption enables AES-256-GCM encryption (key derived from
// passphrase via scrypt) for entries written to Storage, provided Storage
// implements ByteCacheStorage. Cache keys are always SHA-256 hashed
// regardless of this option.
func WithEncryption(passphrase string) TransportOption {
	return func(t *Transport) error {
		if passphrase == "" {
			return fmt.Errorf("httpcache: encryption passphrase cannot be empty")
		}
		t.EncryptionPassphrase = passphrase
		return nil
	}
}
