package llm

import (
	"context"
	"time"
)

// RetryPolicy bounds how many times a request is attempted and how long to
// wait between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Delay: 20 * time.Second}
}

// Do runs fn until it succeeds or the attempts are used up. It returns the
// number of attempts made and the last error.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) (int, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(i); err == nil {
			return i, nil
		}
		if ctx.Err() != nil {
			return i, err
		}
		if i == attempts {
			break
		}
		if waitErr := sleep(ctx, p.Delay); waitErr != nil {
			return i, err
		}
	}
	return attempts, err
}

func sleep(ctx context.Context, d time.Duration) error {
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
