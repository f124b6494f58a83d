package httpcache

import (
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// ResilienceConfig configures retry and circuit-breaking around every
// origin round trip this cache makes, including background
// stale-while-revalidate attempts. Both policies are optional.
type ResilienceConfig struct {
	// RetryPolicy configures retry behavior using failsafe-go. If nil,
	// retry is disabled.
	RetryPolicy retrypolicy.RetryPolicy[*http.Response]

	// CircuitBreaker configures circuit breaker behavior using failsafe-go.
	// If nil, circuit breaking is disabled.
	CircuitBreaker circuitbreaker.CircuitBreaker[*http.Response]
}

// RetryPolicyBuilder creates a pre-configured retry policy builder for HTTP
// requests: retries on network errors and 5xx status codes, up to 3
// retries, with exponential backoff from 100ms to 10s.
func RetryPolicyBuilder() retrypolicy.Builder[*http.Response] {
	return retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(r *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.StatusCode >= 500
		}).
		WithMaxRetries(3).
		WithBackoff(100*time.Millisecond, 10*time.Second)
}

// CircuitBreakerBuilder creates a pre-configured circuit breaker builder:
// opens on network errors and 5xx status codes after 5 consecutive
// failures, closes after 2 consecutive successes in half-open state, with a
// 60 second open delay.
func CircuitBreakerBuilder() circuitbreaker.Builder[*http.Response] {
	return circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(r *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.StatusCode >= 500
		}).
		WithFailureThreshold(5).
		WithSuccessThreshold(2).
		WithDelay(60 * time.Second)
}

// resilientRoundTripper wraps an http.RoundTripper with the policies in
// config, so CachingExec's origin fetches (foreground and background
// revalidation alike) are protected uniformly.
type resilientRoundTripper struct {
	inner  http.RoundTripper
	config *ResilienceConfig
}

func (r *resilientRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var policies []failsafe.Policy[*http.Response]
	if r.config.RetryPolicy != nil {
		policies = append(policies, r.config.RetryPolicy)
	}
	if r.config.CircuitBreaker != nil {
		policies = append(policies, r.config.CircuitBreaker)
	}
	if len(policies) == 0 {
		return r.inner.RoundTrip(req)
	}
	return failsafe.With(policies...).Get(func() (*http.Response, error) {
		return r.inner.RoundTrip(req)
	})
}
