package internal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/whalewatch/internal/services/scanner"
)

type scanRunner interface {
	Scan(ctx context.Context, minValue decimal.Decimal) (scanner.Outcome, error)
}

// Watcher runs scan cycles on a fixed interval.
type Watcher struct {
	scanner  scanRunner
	minValue decimal.Decimal
	interval time.Duration
	logger   *zap.Logger
}

func NewWatcher(s scanRunner, minValue decimal.Decimal, interval time.Duration, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{scanner: s, minValue: minValue, interval: interval, logger: logger}
}

// RunOnce performs a single cycle.
func (w *Watcher) RunOnce(ctx context.Context) (scanner.Outcome, error) {
	outcome, err := w.scanner.Scan(ctx, w.minValue)
	if err != nil {
		return outcome, err
	}
	w.logger.Info("scan finished",
		zap.String("scan_id", outcome.ScanID),
		zap.String("result", string(outcome.Result)),
		zap.Int("whales", outcome.Whales),
		zap.Int("merged", outcome.Summary.Merged),
		zap.Int("skipped", outcome.Summary.Skipped),
		zap.Int("failed", outcome.Summary.Failed),
		zap.Duration("duration", outcome.Duration))
	return outcome, nil
}

// Run scans immediately and then on every tick until ctx is done. A failed
// cycle is logged and the loop keeps going.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("starting scan loop",
		zap.String("min_value", w.minValue.String()),
		zap.Duration("interval", w.interval))

	w.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("context done, stopping scan loop")
			return ctx.Err()
		case <-ticker.C:
			w.cycle(ctx)
		}
	}
}

func (w *Watcher) cycle(ctx context.Context) {
	_, err := w.RunOnce(ctx)
	switch {
	case err == nil, ctx.Err() != nil:
	case errors.Is(err, scanner.ErrScanInProgress):
		w.logger.Debug("previous scan still running, skipping tick")
	default:
		w.logger.Error("scan failed", zap.Error(err))
	}
}
