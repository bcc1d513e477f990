package store

import (
	"context"
	"time"

	"github.com/jmgilman/go/statekit/errors"
)

// ExecuteAction runs op with the store's loading and error bookkeeping.
//
// The store enters the loading state, discarding any recorded error, and
// leaves it when op returns. A failure, including a panic inside op, is
// normalized and reported through the handler, recorded as the store error
// and returned. ExecuteAction never retries.
func (s *Store[T]) ExecuteAction(ctx context.Context, ec errors.ErrorContext, op func(context.Context) error) error {
	_, err := Execute(ctx, s, ec, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// ExecuteActionWithRetry is ExecuteAction with retries. See ExecuteWithRetry.
func (s *Store[T]) ExecuteActionWithRetry(ctx context.Context, ec errors.ErrorContext, maxRetries int, op func(context.Context) error) error {
	_, err := ExecuteWithRetry(ctx, s, ec, maxRetries, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Execute is ExecuteAction for operations that produce a result.
func Execute[T, R any](ctx context.Context, s *Store[T], ec errors.ErrorContext, op func(context.Context) (R, error)) (R, error) {
	ec = s.errorContext(ec)

	var appErr errors.AppError
	started := s.begin()
	defer func() { s.settle(appErr, started) }()

	res, appErr := attempt(ctx, s, ec, op)
	if appErr != nil {
		var zero R
		return zero, appErr
	}
	return res, nil
}

// ExecuteWithRetry runs op up to maxRetries times while its failures are
// retryable, waiting the handler's retry delay between attempts. A
// non-positive maxRetries uses the store default.
//
// The store stays loading for the whole sequence. Each failed attempt is
// reported with its attempt number in the context metadata, but only the
// final failure is recorded as the store error and returned. Canceling ctx
// during a wait ends the sequence with the last failure.
func ExecuteWithRetry[T, R any](ctx context.Context, s *Store[T], ec errors.ErrorContext, maxRetries int, op func(context.Context) (R, error)) (R, error) {
	if maxRetries <= 0 {
		maxRetries = s.maxRetries
	}
	ec = s.errorContext(ec)

	var appErr errors.AppError
	started := s.begin()
	defer func() { s.settle(appErr, started) }()

	var zero R
	for n := 1; ; n++ {
		var res R
		res, appErr = attempt(ctx, s, ec.With("attempt", n), op)
		if appErr == nil {
			return res, nil
		}
		if n >= maxRetries || !s.handler.ShouldRetry(appErr) {
			return zero, appErr
		}

		delay := s.handler.RetryDelay(n)
		s.logger.Debug("retrying action",
			"action", ec.Action,
			"attempt", n,
			"delay", delay,
			"code", appErr.Code(),
		)
		if s.observer != nil {
			s.observer.ActionRetried(s.name, n)
		}
		if !wait(ctx, delay) {
			return zero, appErr
		}
	}
}

// attempt runs op once, converting a panic into an error, and reports any
// failure through the handler.
func attempt[T, R any](ctx context.Context, s *Store[T], ec errors.ErrorContext, op func(context.Context) (R, error)) (R, errors.AppError) {
	res, err := call(ctx, op)
	if err != nil {
		var zero R
		return zero, s.handler.Handle(ctx, err, ec)
	}
	return res, nil
}

func call[R any](ctx context.Context, op func(context.Context) (R, error)) (res R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Normalize(r)
		}
	}()
	return op(ctx)
}

// wait sleeps for d and reports whether it did so without ctx being canceled.
func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Store[T]) errorContext(ec errors.ErrorContext) errors.ErrorContext {
	if ec.Component == "" {
		ec.Component = s.name
	}
	return ec
}
