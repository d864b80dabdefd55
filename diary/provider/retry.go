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

var (
	rateLimitWaitTimes   = []time.Duration{65 * time.Second, 100 * time.Second, 135 * time.Second}
	serverErrorWaitTimes = []time.Duration{5 * time.Second, 30 * time.Second, 60 * time.Second}
)

const maxRetries = 3

// callWithRetry retries fn on rate-limit and server errors with fixed back-off. Other errors
// are returned immediately. The wait is abandoned when ctx is done.
func callWithRetry[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; attempt < maxRetries; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		var wait time.Duration
		switch {
		case isRateLimitError(err):
			wait = rateLimitWaitTimes[attempt]
		case isServerError(err):
			wait = serverErrorWaitTimes[attempt]
		default:
			return zero, err
		}
		if attempt == maxRetries-1 {
			return zero, err
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
	return zero, fmt.Errorf("failed after %d attempts due to API issues", maxRetries)
}

var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func statusCode(err error) int {
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
	if statusCode(err) == http.StatusTooManyRequests {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "rate_limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	if code := statusCode(err); code >= 500 {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error") ||
		strings.Contains(errStr, "overloaded")
}
