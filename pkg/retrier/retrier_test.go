package retrier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetrier_Do(t *testing.T) {
	t.Run("success on first attempt", func(t *testing.T) {
		r := New()
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context, attempt int) error {
			attempts++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("success after retries", func(t *testing.T) {
		r := New(WithMaxAttempts(3), WithInitialInterval(1*time.Millisecond))
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context, attempt int) error {
			attempts++
			if attempts < 3 {
				return errors.New("fail")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("fail after max attempts", func(t *testing.T) {
		r := New(WithMaxAttempts(2), WithInitialInterval(1*time.Millisecond))
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context, attempt int) error {
			attempts++
			return errors.New("fail")
		})
		assert.Error(t, err)
		assert.Equal(t, 2, attempts)
	})

	t.Run("context cancellation", func(t *testing.T) {
		r := New(WithMaxAttempts(5), WithInitialInterval(100*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())

		attempts := 0
		err := r.Do(ctx, func(ctx context.Context, attempt int) error {
			attempts++
			if attempts == 2 {
				cancel()
			}
			return errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 2, attempts)
	})

	t.Run("classifier stops on permanent error", func(t *testing.T) {
		permanent := errors.New("bad request")
		r := New(WithMaxAttempts(5), WithClassifier(func(attempt int, err error) (bool, time.Duration) {
			return !errors.Is(err, permanent), 0
		}))
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context, attempt int) error {
			attempts++
			return permanent
		})
		assert.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, attempts)
	})

	t.Run("no wait after the last attempt", func(t *testing.T) {
		var waits []time.Duration
		r := New(
			WithMaxAttempts(3),
			WithJitter(0),
			WithInitialInterval(10*time.Millisecond),
			WithSleep(func(ctx context.Context, d time.Duration) error {
				waits = append(waits, d)
				return nil
			}),
		)
		err := r.Do(context.Background(), func(ctx context.Context, attempt int) error {
			return errors.New("fail")
		})
		assert.Error(t, err)
		assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, waits)
	})
}

func TestRetrier_Backoff(t *testing.T) {
	r := New(WithInitialInterval(2*time.Second), WithMaxInterval(5*time.Second))
	assert.Equal(t, 2*time.Second, r.Backoff(0))
	assert.Equal(t, 4*time.Second, r.Backoff(1))
	assert.Equal(t, 5*time.Second, r.Backoff(2))
}

func TestRetrier_DoWithData(t *testing.T) {
	t.Run("success returns data", func(t *testing.T) {
		r := New()
		val, err := DoWithData(r, context.Background(), func(ctx context.Context, attempt int) (string, error) {
			return "success", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "success", val)
	})

	t.Run("fail returns error", func(t *testing.T) {
		r := New(WithMaxAttempts(2), WithInitialInterval(1*time.Millisecond))
		val, err := DoWithData(r, context.Background(), func(ctx context.Context, attempt int) (string, error) {
			return "", errors.New("fail")
		})
		assert.Error(t, err)
		assert.Empty(t, val)
	})
}
