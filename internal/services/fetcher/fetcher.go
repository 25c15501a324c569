// Package fetcher retrieves per-address position snapshots from the Hyperliquid info API.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/whalewatch/internal/domain"
	"github.com/vadiminshakov/whalewatch/internal/observability"
	"github.com/vadiminshakov/whalewatch/pkg/ratelimit"
	"github.com/vadiminshakov/whalewatch/pkg/retrier"
)

const (
	DefaultInfoURL        = "https://api.hyperliquid.xyz/info"
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = 2 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	// transportRetryDelay fixed wait after a network failure
	transportRetryDelay = 500 * time.Millisecond

	snapshotRequestType = "clearinghouseState"
)

var errAborted = errors.New("fetch aborted")

// StatusError non-2xx answer from the info API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("info api returned HTTP %d", e.Code)
}

// Throttled reports a 429 answer.
func (e *StatusError) Throttled() bool {
	return e.Code == http.StatusTooManyRequests
}

// Fetcher performs "fetch snapshot for address X" with 429 backoff and bounded attempts.
// All requests share one rate limiter.
type Fetcher struct {
	infoURL     string
	client      *http.Client
	limiter     *ratelimit.Limiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	maxAttempts int
	baseDelay   time.Duration
	sleep       retrier.SleepFunc
	retrier     *retrier.Retrier
}

// Option configures Fetcher.
type Option func(*Fetcher)

// WithInfoURL overrides the info endpoint.
func WithInfoURL(url string) Option {
	return func(f *Fetcher) {
		f.infoURL = url
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

// WithMaxAttempts sets the attempt cap.
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) {
		f.maxAttempts = n
	}
}

// WithBaseDelay sets the 429 backoff base; attempt k waits base*2^k.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = d
	}
}

// WithSleep replaces the backoff wait.
func WithSleep(s retrier.SleepFunc) Option {
	return func(f *Fetcher) {
		f.sleep = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// New creates a snapshot fetcher gated by limiter.
func New(limiter *ratelimit.Limiter, opts ...Option) *Fetcher {
	f := &Fetcher{
		infoURL:     DefaultInfoURL,
		client:      &http.Client{Timeout: DefaultRequestTimeout},
		limiter:     limiter,
		logger:      zap.NewNop(),
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		sleep:       retrier.Sleep,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.limiter == nil {
		f.limiter = ratelimit.New(ratelimit.DefaultRatePerSecond)
	}
	if f.metrics == nil {
		f.metrics = observability.NewMetrics("")
	}

	f.retrier = retrier.New(
		retrier.WithMaxAttempts(f.maxAttempts),
		retrier.WithInitialInterval(f.baseDelay),
		retrier.WithMultiplier(2),
		retrier.WithMaxInterval(0),
		retrier.WithJitter(0),
		retrier.WithSleep(f.sleep),
		retrier.WithClassifier(f.classify),
	)

	return f
}

func (f *Fetcher) classify(attempt int, err error) (bool, time.Duration) {
	if errors.Is(err, errAborted) {
		return false, 0
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if !statusErr.Throttled() {
			return false, 0
		}
		wait := f.retrier.Backoff(attempt)
		f.logger.Warn("rate limited, retrying", zap.Int("attempt", attempt), zap.Duration("wait", wait))
		return true, wait
	}

	return true, transportRetryDelay
}

// FetchSnapshot returns the snapshot of address, or nil on any hard failure.
// The error is non-nil only when ctx ends.
func (f *Fetcher) FetchSnapshot(ctx context.Context, address string) (*domain.Snapshot, error) {
	snap, err := retrier.DoWithData(f.retrier, ctx, func(ctx context.Context, attempt int) (*domain.Snapshot, error) {
		return f.attempt(ctx, address)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		f.metrics.FetchFailures.Inc()
		f.logger.Warn("snapshot fetch failed", zap.String("address", address), zap.Error(err))
		return nil, nil
	}

	return snap, nil
}

type snapshotRequest struct {
	Type string `json:"type"`
	User string `json:"user"`
}

func (f *Fetcher) attempt(ctx context.Context, address string) (*domain.Snapshot, error) {
	if err := f.limiter.Acquire(ctx); err != nil {
		return nil, errors.Wrap(errAborted, err.Error())
	}

	body, err := json.Marshal(snapshotRequest{Type: snapshotRequestType, User: address})
	if err != nil {
		return nil, errors.Wrap(errAborted, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.infoURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errAborted, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := f.client.Do(req)
	f.metrics.FetchLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		f.metrics.FetchAttempts.WithLabelValues(observability.OutcomeTransport).Inc()
		return nil, errors.Wrap(err, "send snapshot request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		statusErr := &StatusError{Code: resp.StatusCode}
		if statusErr.Throttled() {
			f.metrics.FetchAttempts.WithLabelValues(observability.OutcomeThrottled).Inc()
		} else {
			f.metrics.FetchAttempts.WithLabelValues(observability.OutcomeHTTPError).Inc()
		}
		return nil, statusErr
	}

	var snap domain.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		f.metrics.FetchAttempts.WithLabelValues(observability.OutcomeDecode).Inc()
		return nil, errors.Wrap(err, "decode snapshot")
	}
	f.metrics.FetchAttempts.WithLabelValues(observability.OutcomeSuccess).Inc()

	return &snap, nil
}
