package scanner

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/whalewatch/internal/domain"
	"github.com/vadiminshakov/whalewatch/internal/ledger"
	"github.com/vadiminshakov/whalewatch/internal/observability"
	"github.com/vadiminshakov/whalewatch/internal/services/merger"
)

const DefaultMaxConcurrency = 8

// SnapshotFetcher fetches one address; a nil snapshot is a hard failure.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, address string) (*domain.Snapshot, error)
}

// SnapshotMerger folds a snapshot into the ledger.
type SnapshotMerger interface {
	Merge(whale domain.Whale, snap *domain.Snapshot, quotes domain.Quotes) merger.MergeResult
}

// RenderScheduler is notified after every finished entry.
type RenderScheduler interface {
	Schedule()
}

// Summary counts what happened to the entries of one Run.
type Summary struct {
	Dispatched int `json:"dispatched"`
	Fetched    int `json:"fetched"`
	Merged     int `json:"merged"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Abandoned  int `json:"abandoned"`
}

type counters struct {
	dispatched, fetched, merged, skipped, failed, abandoned atomic.Int64
}

func (c *counters) summary() Summary {
	return Summary{
		Dispatched: int(c.dispatched.Load()),
		Fetched:    int(c.fetched.Load()),
		Merged:     int(c.merged.Load()),
		Skipped:    int(c.skipped.Load()),
		Failed:     int(c.failed.Load()),
		Abandoned:  int(c.abandoned.Load()),
	}
}

// SchedulerConfig wires a Scheduler.
type SchedulerConfig struct {
	Fetcher        SnapshotFetcher
	Merger         SnapshotMerger
	Ledger         *ledger.Ledger
	Seen           *ledger.SeenValues
	Render         RenderScheduler
	Reporter       Reporter
	MaxConcurrency int
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// Scheduler runs a fixed pool of workers over a session queue. At most
// MaxConcurrency entries are between dequeue and completion at any time.
type Scheduler struct {
	fetcher        SnapshotFetcher
	merger         SnapshotMerger
	ledger         *ledger.Ledger
	seen           *ledger.SeenValues
	render         RenderScheduler
	reporter       Reporter
	maxConcurrency int
	logger         *zap.Logger
	metrics        *observability.Metrics
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	s := &Scheduler{
		fetcher:        cfg.Fetcher,
		merger:         cfg.Merger,
		ledger:         cfg.Ledger,
		seen:           cfg.Seen,
		render:         cfg.Render,
		reporter:       cfg.Reporter,
		maxConcurrency: cfg.MaxConcurrency,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
	}
	if s.maxConcurrency <= 0 {
		s.maxConcurrency = DefaultMaxConcurrency
	}
	if s.reporter == nil {
		s.reporter = NopReporter{}
	}
	if s.render == nil {
		s.render = noRender{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetrics("")
	}
	return s
}

type noRender struct{}

func (noRender) Schedule() {}

// Run drains the session queue. It returns once every worker has exited:
// the queue is empty or the session was stopped, and nothing is in flight.
// The error is non-nil only when ctx ends.
func (s *Scheduler) Run(ctx context.Context, sess *Session, quotes domain.Quotes) (Summary, error) {
	var c counters

	workers := s.maxConcurrency
	if queued := sess.Queued(); queued < workers {
		workers = queued
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				whale, ok := sess.next()
				if !ok {
					return nil
				}
				c.dispatched.Add(1)
				if err := s.process(gctx, sess, whale, quotes, &c); err != nil {
					return err
				}
			}
		})
	}

	err := g.Wait()
	return c.summary(), err
}

func (s *Scheduler) process(ctx context.Context, sess *Session, whale domain.Whale, quotes domain.Quotes, c *counters) error {
	s.metrics.InFlight.Inc()
	abandoned := false
	defer func() {
		s.metrics.InFlight.Dec()
		sess.active.Add(-1)
		if abandoned {
			c.abandoned.Add(1)
			s.metrics.EntriesAbandon.Inc()
			return
		}
		sess.complete(func(done, total int) {
			s.reporter.OnProgress(WorkProgress(done, total))
			s.reporter.OnStatus(fmt.Sprintf("Loading %d/%d whales…", done, total), domain.StatusScanning)
		})
		s.render.Schedule()
	}()

	if !sess.Scanning() {
		abandoned = true
		return nil
	}
	// the slot stays taken while paused
	if err := sess.gate.Wait(ctx); err != nil {
		abandoned = true
		return err
	}
	if !sess.Scanning() {
		abandoned = true
		return nil
	}

	if ShouldSkip(whale, s.ledger, s.seen) {
		c.skipped.Add(1)
		s.metrics.EntriesSkipped.Inc()
		return nil
	}

	snap, err := s.fetcher.FetchSnapshot(ctx, whale.Address)
	if err != nil {
		abandoned = true
		return err
	}
	c.fetched.Add(1)

	if snap == nil {
		c.failed.Add(1)
		s.logger.Warn("no snapshot, address left as is until next scan",
			zap.String("scan_id", sess.ID), zap.String("address", whale.Address))
		return nil
	}

	res := s.merger.Merge(whale, snap, quotes)
	s.seen.Set(whale.Address, whale.AccountValue)
	c.merged.Add(1)
	s.metrics.EntriesMerged.Inc()
	s.logger.Debug("merged snapshot",
		zap.String("scan_id", sess.ID),
		zap.String("address", whale.Address),
		zap.Int("positions", res.Records),
		zap.Int("dropped", res.Dropped))

	return nil
}
