package worker

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds a call to a slow or fallible collaborator
type RetryPolicy struct {
	Retries int           // Extra attempts after the first
	Timeout time.Duration // Per-attempt timeout, 0 = none
	Backoff time.Duration // Sleep before retry n is Backoff * 2^n
}

// permanent marks an error that retrying cannot fix
type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent wraps err so Do stops retrying immediately
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var perm permanent
	return errors.As(err, &perm)
}

// Do runs fn until it succeeds, returns a Permanent error, the parent
// context ends, or the retries are used up. It returns the attempts made.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	var err error
	attempts := 0

	for attempt := 0; attempt <= p.Retries; attempt++ {
		attempts++
		err = p.call(ctx, fn)
		if err == nil {
			return attempts, nil
		}

		var perm permanent
		if errors.As(err, &perm) {
			return attempts, perm.err
		}
		if ctx.Err() != nil {
			return attempts, err
		}

		if attempt < p.Retries && p.Backoff > 0 {
			select {
			case <-ctx.Done():
				return attempts, err
			case <-time.After(p.Backoff << uint(attempt)):
			}
		}
	}

	return attempts, err
}

func (p RetryPolicy) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return fn(attemptCtx)
}
