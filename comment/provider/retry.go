package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
)

// RetryPolicy controls how remote calls are retried. Rate limits and server errors wait for the
// duration at the attempt's index; anything else fails immediately.
type RetryPolicy struct {
	MaxAttempts      int
	RateLimitWaits   []time.Duration
	ServerErrorWaits []time.Duration

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:      3,
		RateLimitWaits:   []time.Duration{65 * time.Second, 100 * time.Second, 135 * time.Second},
		ServerErrorWaits: []time.Duration{5 * time.Second, 30 * time.Second, 60 * time.Second},
	}
}

// Retry runs call until it succeeds, fails with a non-retryable error, or the policy runs out of attempts.
func Retry[T any](ctx context.Context, policy RetryPolicy, call func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		v, err := call(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		var waits []time.Duration
		switch {
		case isRateLimitError(err):
			waits = policy.RateLimitWaits
		case isServerError(err):
			waits = policy.ServerErrorWaits
		default:
			return zero, err
		}
		if attempt >= attempts-1 {
			break
		}
		if err := sleep(ctx, waitAt(waits, attempt)); err != nil {
			return zero, err
		}
	}
	return zero, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func waitAt(waits []time.Duration, attempt int) time.Duration {
	if len(waits) == 0 {
		return 0
	}
	if attempt < len(waits) {
		return waits[attempt]
	}
	return waits[len(waits)-1]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StatusError is a non-2xx answer from the Imgur API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("imgur: status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("imgur: status %d: %s", e.StatusCode, e.Message)
}

func statusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if code := statusCode(err); code != 0 {
		return code == http.StatusTooManyRequests
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	if code := statusCode(err); code != 0 {
		return code >= 500
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}
