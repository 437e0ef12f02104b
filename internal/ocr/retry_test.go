package ocr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryBound(t *testing.T) {
	// max_retries = R means at most R+1 attempts before surfacing the error.
	for _, retries := range []int{0, 1, 3} {
		attempts := 0
		p := retryPolicy{Retries: retries, Base: time.Millisecond}
		_, _, err := p.run(context.Background(), func(ctx context.Context) (RecognitionResult, Usage, outcome, error) {
			attempts++
			return RecognitionResult{}, Usage{}, outcomeRetry, errors.New("transient")
		})
		require.Error(t, err)
		assert.Equal(t, retries+1, attempts)
	}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	attempts := 0
	p := retryPolicy{Retries: 5, Base: time.Millisecond}
	res, usage, err := p.run(context.Background(), func(ctx context.Context) (RecognitionResult, Usage, outcome, error) {
		attempts++
		if attempts < 3 {
			return RecognitionResult{}, Usage{}, outcomeRetry, errors.New("transient")
		}
		return RecognitionResult{Status: "ok"}, Usage{Total: 7}, outcomeOK, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, 7, usage.Total)
}

func TestFatalShortCircuits(t *testing.T) {
	attempts := 0
	p := retryPolicy{Retries: 5, Base: time.Millisecond}
	_, _, err := p.run(context.Background(), func(ctx context.Context) (RecognitionResult, Usage, outcome, error) {
		attempts++
		return RecognitionResult{}, Usage{}, outcomeFatal, errors.New("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "fatal outcomes must not be retried")
}

func TestTimeoutIsRetryable(t *testing.T) {
	attempts := 0
	p := retryPolicy{Retries: 2, Timeout: 5 * time.Millisecond, Base: time.Millisecond}
	_, _, err := p.run(context.Background(), func(ctx context.Context) (RecognitionResult, Usage, outcome, error) {
		attempts++
		<-ctx.Done() // simulate a request that outlives its deadline
		return RecognitionResult{}, Usage{}, outcomeRetry, ctx.Err()
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestJobCancellationStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	p := retryPolicy{Retries: 10, Base: time.Millisecond}
	_, _, err := p.run(ctx, func(ctx context.Context) (RecognitionResult, Usage, outcome, error) {
		attempts++
		cancel()
		return RecognitionResult{}, Usage{}, outcomeRetry, errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestBackoffGrows(t *testing.T) {
	p := retryPolicy{Base: 10 * time.Millisecond}
	for attempt := 0; attempt < 4; attempt++ {
		d := p.backoff(attempt)
		min := p.Base << uint(attempt)
		assert.GreaterOrEqual(t, d, min)
		assert.Less(t, d, min+500*time.Millisecond)
	}
}
