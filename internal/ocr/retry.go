package ocr

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// outcome classifies one network attempt so the retry loop never has to
// inspect provider-specific errors.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeRetry
	outcomeFatal
)

// attemptFunc performs one network attempt. The context it receives is
// already bounded by the per-attempt timeout; a late response from an
// abandoned attempt is discarded when that context is cancelled.
type attemptFunc func(ctx context.Context) (RecognitionResult, Usage, outcome, error)

// retryPolicy bounds the retry loop: at most Retries+1 attempts, with
// Base*2^attempt plus up to 500ms of jitter between them.
type retryPolicy struct {
	Retries int
	Timeout time.Duration
	Base    time.Duration
}

func (p retryPolicy) backoff(attempt int) time.Duration {
	base := p.Base
	if base <= 0 {
		base = time.Second
	}
	d := base << uint(attempt)
	return d + time.Duration(rand.Int63n(int64(500*time.Millisecond)))
}

// run executes fn under the policy. A timeout counts as a retryable
// failure; the last cause is returned once retries are exhausted.
func (p retryPolicy) run(ctx context.Context, fn attemptFunc) (RecognitionResult, Usage, error) {
	var lastErr error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return RecognitionResult{}, Usage{}, err
		}
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		res, usage, kind, err := fn(attemptCtx)
		cancel()
		switch kind {
		case outcomeOK:
			return res, usage, nil
		case outcomeFatal:
			return RecognitionResult{}, Usage{}, err
		}
		lastErr = err
		// The job itself may have been cancelled; don't confuse that with
		// the per-attempt deadline.
		if ctx.Err() != nil {
			return RecognitionResult{}, Usage{}, ctx.Err()
		}
		if attempt < p.Retries {
			if err := sleepCtx(ctx, p.backoff(attempt)); err != nil {
				return RecognitionResult{}, Usage{}, err
			}
		}
	}
	if lastErr == nil {
		lastErr = errors.New("recognition retries exhausted")
	}
	return RecognitionResult{}, Usage{}, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
