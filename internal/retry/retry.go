package retry

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"arenacli/internal/apierror"
	"arenacli/pkg/logging"
)

const (
	DefaultMaxAttempts   = 3
	DefaultDelay         = 1000 * time.Millisecond
	DefaultBackoffFactor = 2.0
)

// Policy configures retries for a single request.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int

	// Delay is the wait before the second attempt.
	Delay time.Duration

	// BackoffFactor multiplies the delay after every attempt.
	BackoffFactor float64

	// RetryIf decides retries for idempotent requests. Nil means
	// DefaultRetryIf. It is never consulted for auth failures or for
	// non-idempotent requests.
	RetryIf func(err error) bool

	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns 3 attempts with 1s, 2s spacing.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   DefaultMaxAttempts,
		Delay:         DefaultDelay,
		BackoffFactor: DefaultBackoffFactor,
	}
}

// WithDefaults fills zero fields from DefaultPolicy.
func (p Policy) WithDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	if p.Delay == 0 && p.BackoffFactor == 0 {
		p.Delay = DefaultDelay
	}
	if p.BackoffFactor <= 0 {
		p.BackoffFactor = DefaultBackoffFactor
	}
	if p.RetryIf == nil {
		p.RetryIf = DefaultRetryIf
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

// Backoff returns the wait after the given (1-based) attempt:
// Delay * BackoffFactor^(attempt-1).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(p.Delay) * math.Pow(p.BackoffFactor, float64(attempt-1)))
}

// IsIdempotentMethod reports whether the method is idempotent by HTTP
// convention. Call sites with side-effecting PUT or DELETE handlers should
// pass an explicit override to Idempotent instead.
func IsIdempotentMethod(method string) bool {
	switch strings.ToUpper(method) {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// Idempotent resolves idempotency for a request. An explicit override wins
// over the method-based inference.
func Idempotent(method string, override *bool) bool {
	if override != nil {
		return *override
	}
	return IsIdempotentMethod(method)
}

// DefaultRetryIf retries server and network failures that are not auth errors.
func DefaultRetryIf(err error) bool {
	apiErr, ok := apierror.As(err)
	if !ok {
		return false
	}
	if apiErr.IsAuthError() || apiErr.IsAccessDenied() {
		return false
	}
	return apiErr.IsServerError() || apiErr.IsNetworkError()
}

// ShouldRetry decides whether attempt (1-based, already failed with err)
// is followed by another one. Only the caller's ctx ends retries early; a
// timeout inside one attempt is a network error like any other.
func ShouldRetry(ctx context.Context, err error, attempt int, p Policy, idempotent bool) bool {
	p = p.WithDefaults()

	if err == nil || attempt >= p.MaxAttempts {
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	apiErr, ok := apierror.As(err)
	if !ok {
		return false
	}
	if apiErr.IsAuthError() || apiErr.IsAccessDenied() {
		return false
	}

	if !idempotent {
		// A 4xx on a write may mean it partially applied; only failures that
		// never reached the handler or blew up inside it are retried.
		return apiErr.IsServerError() || apiErr.IsNetworkError()
	}

	return p.RetryIf(err)
}

// Do runs fn until it succeeds or ShouldRetry says stop, sleeping
// Backoff(attempt) between attempts. The last error is returned unchanged.
func Do(ctx context.Context, p Policy, idempotent bool, fn func(ctx context.Context, attempt int) error) error {
	p = p.WithDefaults()

	for attempt := 1; ; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if !ShouldRetry(ctx, err, attempt, p, idempotent) {
			return err
		}

		wait := p.Backoff(attempt)
		logging.Debug("Retry", "Attempt %d/%d failed, retrying in %s: %v", attempt, p.MaxAttempts, wait, err)

		if sleepErr := p.Sleep(ctx, wait); sleepErr != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
