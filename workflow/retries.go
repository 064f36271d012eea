package workflow

import (
	"math"
	"time"

	"github.com/durableio/rewind/internal/sync"
)

type RetryOptions struct {
	// Maximum number of times to run the operation, including the first attempt
	MaxAttempts int

	// Time to wait before the first retry
	FirstRetryInterval time.Duration

	// Maximum delay for any individual retry attempt
	MaxRetryInterval time.Duration

	// Coefficient for calculating the next retry delay
	BackoffCoefficient float64

	// Timeout after which retries are aborted
	RetryTimeout time.Duration
}

var DefaultRetryOptions = RetryOptions{
	MaxAttempts:        3,
	FirstRetryInterval: 1 * time.Second,
	BackoffCoefficient: 2,
}

// WithRetries executes fn and retries it with a deterministic backoff timer if
// it fails with a retryable error. Canceled and permanent errors are never
// retried.
func WithRetries[T any](ctx Context, retryOptions RetryOptions, fn func(ctx Context, attempt int) Future[T]) Future[T] {
	if ctx.Err() != nil {
		f := sync.NewFuture[T]()
		f.Set(*new(T), ctx.Err())
		return f
	}

	firstAttempt := fn(ctx, 0)

	if retryOptions.MaxAttempts <= 1 {
		// Retries disabled
		return firstAttempt
	}

	r := sync.NewFuture[T]()

	sync.Go(ctx, func(ctx Context) {
		var retryExpiration time.Time
		if retryOptions.RetryTimeout != 0 {
			retryExpiration = Now(ctx).Add(retryOptions.RetryTimeout)
		}

		var result T
		var err error

		f := firstAttempt
		for attempt := 1; ; attempt++ {
			result, err = f.Get(ctx)
			if err == nil || err == sync.Canceled || !CanRetry(err) {
				break
			}

			if attempt >= retryOptions.MaxAttempts {
				break
			}

			if !retryExpiration.IsZero() && Now(ctx).After(retryExpiration) {
				// Reached maximum retry time, abort retries
				break
			}

			backoffDuration := time.Duration(float64(retryOptions.FirstRetryInterval) * math.Pow(retryOptions.BackoffCoefficient, float64(attempt-1)))
			if retryOptions.MaxRetryInterval > 0 {
				backoffDuration = time.Duration(math.Min(float64(backoffDuration), float64(retryOptions.MaxRetryInterval)))
			}

			if backoffDuration > 0 {
				if err := Sleep(ctx, backoffDuration); err != nil {
					r.Set(*new(T), err)
					return
				}
			}

			f = fn(ctx, attempt)
		}

		r.Set(result, err)
	})

	return r
}
