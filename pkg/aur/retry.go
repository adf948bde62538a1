package aur

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenk/backoff"
)

// Default retry parameters for RPC and snapshot requests.
const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 10 * time.Second
)

// RetryPolicy wraps a single HTTP attempt with bounded exponential backoff.
// It knows nothing about what the attempt does.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy returns the standard policy: 3 retries starting at
// 500ms, doubling, capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     defaultMaxRetries,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
	}
}

// retryableStatus reports whether an HTTP status warrants another attempt.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, // 408
		http.StatusTooManyRequests,     // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	}
	return false
}

// statusError marks a retry triggered by a retryable HTTP status rather than
// a transport failure. When attempts are exhausted on statusError the final
// response is surfaced to the caller instead of an error, mirroring how a
// non-retryable status is surfaced immediately.
type statusError struct{ code int }

func (e *statusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.code)
}

// Do executes attempt with the policy's backoff schedule. Transport errors
// are retried until attempts are exhausted, then surfaced. A response with a
// retryable status is retried; any other response (success or not) is
// returned immediately. The caller owns the returned response body.
func (p RetryPolicy) Do(ctx context.Context, attempt func() (*http.Response, error)) (*http.Response, error) {
	var last *http.Response

	op := func() error {
		resp, err := attempt()
		if err != nil {
			return err
		}
		if last != nil {
			last.Body.Close()
		}
		last = resp
		if retryableStatus(resp.StatusCode) {
			return &statusError{code: resp.StatusCode}
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(p.exponential(), uint64(p.MaxRetries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if _, ok := err.(*statusError); ok {
			// Exhausted retries on server-side statuses: hand the final
			// response back so the caller sees the real status.
			return last, nil
		}
		if last != nil {
			last.Body.Close()
		}
		return nil, err
	}
	return last, nil
}

func (p RetryPolicy) exponential() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialBackoff
	bo.MaxInterval = p.MaxBackoff
	bo.Multiplier = 2.0
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}
