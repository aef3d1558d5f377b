package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"time"

	"github.com/yanqian/content-digest/internal/domain/digest"
	apperrors "github.com/yanqian/content-digest/pkg/errors"
)

// RetryPolicy bounds how often a failed provider call is repeated.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy retries once after a short jittered pause.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 2, BaseDelay: 250 * time.Millisecond}
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// are exhausted, or ctx expires. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if waitErr := sleep(ctx, p.backoff(attempt)); waitErr != nil {
				return err
			}
		}
		err = fn(ctx)
		if err == nil || !Retryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay << (attempt - 1)
	return delay/2 + rand.N(delay/2+1)
}

func sleep(ctx context.Context, d time.Duration) error {
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

// Retryable reports whether err is a transient upstream failure: a 5xx
// response or a network error that is not a context expiry.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *digest.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}
	if apperrors.CodeOf(err) != "" && apperrors.CodeOf(err) != digest.CodeProviderError {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
