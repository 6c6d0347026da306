package db

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	errs "github.com/techagentng/imagegallery/errors"
	"go.uber.org/zap"
)

var (
	initialInterval = 5 * time.Millisecond
	maxInterval     = 200 * time.Millisecond
)

// errTxConflict is returned by a single transaction attempt that lost a race
// with another writer.
var errTxConflict = errors.New("transaction conflict")

// retryTransaction runs attempt until it succeeds, fails with an error that
// retryable rejects, or maxAttempts attempts have been made. Exhausting the
// attempts yields errs.ErrConflict.
func retryTransaction(ctx context.Context, logger *zap.Logger, maxAttempts int, retryable func(error) bool, attempt func(context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(initialInterval),
		backoff.WithMaxInterval(maxInterval),
		backoff.WithMaxElapsedTime(0),
	), uint64(maxAttempts-1))

	var lastErr error
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		lastErr = err
		logger.Debug("transaction conflict, retrying", zap.Int("attempt", attempts), zap.Error(err))
		return err
	}, backoff.WithContext(b, ctx))
	if err == nil {
		return nil
	}
	if lastErr != nil && errors.Is(err, lastErr) {
		return errors.Wrapf(errs.ErrConflict, "gave up after %d attempts: %v", attempts, lastErr)
	}
	return err
}
