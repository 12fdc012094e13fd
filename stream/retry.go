package stream

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// retryChunk runs op with exponential backoff until it succeeds, the attempt
// budget is spent, or ctx is done. Context errors are never retried.
func retryChunk(ctx context.Context, opts Options, op string, part int, fn func(context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.BackoffBase
	bo.MaxInterval = opts.BackoffMax
	bo.MaxElapsedTime = 0 // total time is bounded by ctx, not the policy

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(opts.Attempts-1)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++

		attemptCtx := ctx
		var cancel context.CancelFunc
		if opts.ChunkTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, opts.ChunkTimeout)
		}
		err := fn(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		// a per-chunk deadline counts as transient and feeds the retry
		// policy; only the caller's context ends the transfer
		if attempt < opts.Attempts {
			log.Warn().Err(err).
				Str("op", op).
				Str("uri", opts.URI).
				Int("part", part).
				Int("attempt", attempt).
				Msg("chunk failed, retrying")
		}
		return err
	}, policy)
}

// cleanupContext returns a context for best-effort remote cleanup that
// survives cancellation of the transfer context.
func cleanupContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
