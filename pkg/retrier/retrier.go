package retrier

import (
	"context"
	"math"
	"math/rand"
	"time"
)

const (
	defaultInitialInterval = 1 * time.Second
	defaultMaxInterval     = 30 * time.Second
	defaultMultiplier      = 2.0
	defaultMaxAttempts     = 3
	defaultJitter          = 0.1
)

// Classifier decides whether a failed attempt is retried and how long to wait first.
// attempt is zero-based.
type Classifier func(attempt int, err error) (retry bool, delay time.Duration)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Retrier runs an operation up to a bounded number of attempts.
type Retrier struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
	maxAttempts     int
	jitter          float64
	classify        Classifier
	sleep           SleepFunc
}

// Option defines a function to configure the Retrier.
type Option func(*Retrier)

// WithInitialInterval sets the base backoff interval.
func WithInitialInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.initialInterval = d
	}
}

// WithMaxInterval caps a single backoff wait.
func WithMaxInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.maxInterval = d
	}
}

// WithMultiplier sets the backoff multiplier.
func WithMultiplier(m float64) Option {
	return func(r *Retrier) {
		r.multiplier = m
	}
}

// WithMaxAttempts sets the total number of attempts, the first one included.
func WithMaxAttempts(n int) Option {
	return func(r *Retrier) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithJitter sets the jitter factor (0.0 to 1.0).
func WithJitter(j float64) Option {
	return func(r *Retrier) {
		r.jitter = j
	}
}

// WithClassifier replaces the default "retry everything with backoff" policy.
func WithClassifier(c Classifier) Option {
	return func(r *Retrier) {
		r.classify = c
	}
}

// WithSleep replaces the wait between attempts, tests use it to record delays.
func WithSleep(s SleepFunc) Option {
	return func(r *Retrier) {
		r.sleep = s
	}
}

// New creates a new Retrier with default values and optional overrides.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		multiplier:      defaultMultiplier,
		maxAttempts:     defaultMaxAttempts,
		jitter:          defaultJitter,
		sleep:           Sleep,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.classify == nil {
		r.classify = func(attempt int, _ error) (bool, time.Duration) {
			return true, r.withJitter(r.Backoff(attempt))
		}
	}

	return r
}

// MaxAttempts total attempts Do makes at most.
func (r *Retrier) MaxAttempts() int {
	return r.maxAttempts
}

// Backoff returns initialInterval * multiplier^attempt, capped by maxInterval.
func (r *Retrier) Backoff(attempt int) time.Duration {
	d := float64(r.initialInterval) * math.Pow(r.multiplier, float64(attempt))
	if r.maxInterval > 0 && d > float64(r.maxInterval) {
		return r.maxInterval
	}
	return time.Duration(d)
}

func (r *Retrier) withJitter(d time.Duration) time.Duration {
	if r.jitter <= 0 {
		return d
	}
	j := (rand.Float64()*2 - 1) * r.jitter * float64(d)
	out := time.Duration(float64(d) + j)
	if out < 0 {
		return 0
	}
	return out
}

// Do executes fn until it succeeds, the classifier gives up or attempts run out.
// It returns the last error of fn, or ctx.Err() if ctx ends during a wait.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	var err error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if attempt == r.maxAttempts-1 {
			break
		}

		retry, delay := r.classify(attempt, err)
		if !retry {
			return err
		}
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return err
}

// DoWithData executes the given function with retries and returns a value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context, attempt int) error {
		var e error
		result, e = fn(ctx, attempt)
		return e
	})
	return result, err
}

// Sleep waits for d unless ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
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
