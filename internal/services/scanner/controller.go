// Package scanner runs scan cycles: roster, bounded fetch workers, merges,
// debounced rendering and persistence.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/whalewatch/internal/domain"
	"github.com/vadiminshakov/whalewatch/internal/ledger"
	"github.com/vadiminshakov/whalewatch/internal/observability"
	"github.com/vadiminshakov/whalewatch/internal/services/pricer"
	"github.com/vadiminshakov/whalewatch/internal/services/roster"
	"github.com/vadiminshakov/whalewatch/internal/storage/ledgerstore"
)

const DefaultProgressResetDelay = 1500 * time.Millisecond

var (
	ErrScanInProgress = errors.New("scan already in progress")
	ErrNotScanning    = errors.New("no scan is running")
)

// RosterSource lists candidate whales.
type RosterSource interface {
	Fetch(ctx context.Context) ([]domain.Whale, error)
}

// StateStore persists full ledgers and seen values.
type StateStore interface {
	SaveLedger(positions []domain.Position) error
	SaveSeen(values map[string]decimal.Decimal) error
	LatestLedger() (ledgerstore.LedgerRecord, bool, error)
	LatestSeen() (ledgerstore.SeenRecord, bool, error)
}

// Outcome describes a finished scan cycle.
type Outcome struct {
	ScanID   string             `json:"scanId"`
	Result   domain.ScanOutcome `json:"result"`
	Whales   int                `json:"whales"`
	Summary  Summary            `json:"summary"`
	Duration time.Duration      `json:"duration"`
}

// StateView is a point-in-time view of the controller for status endpoints.
type StateView struct {
	State    domain.ScanState `json:"state"`
	ScanID   string           `json:"scanId,omitempty"`
	Done     int              `json:"done"`
	Total    int              `json:"total"`
	Active   int              `json:"active"`
	Queued   int              `json:"queued"`
	Progress float64          `json:"progress"`
}

// ControllerConfig wires a Controller. Store may be nil.
type ControllerConfig struct {
	Roster         RosterSource
	Quotes         pricer.QuoteSource
	Fetcher        SnapshotFetcher
	Merger         SnapshotMerger
	Ledger         *ledger.Ledger
	Seen           *ledger.SeenValues
	Store          StateStore
	Reporter       Reporter
	MaxConcurrency int
	Logger         *zap.Logger
	Metrics        *observability.Metrics

	ResetDelay    time.Duration
	DebouncerOpts []DebouncerOption
}

// Controller owns the scan lifecycle. One scan runs at a time.
type Controller struct {
	roster     RosterSource
	quotes     pricer.QuoteSource
	ledger     *ledger.Ledger
	seen       *ledger.SeenValues
	store      StateStore
	reporter   Reporter
	scheduler  *Scheduler
	debouncer  *Debouncer
	logger     *zap.Logger
	metrics    *observability.Metrics
	resetDelay time.Duration

	mu      sync.Mutex
	running bool
	session *Session
	// generation of the current scan; a progress reset armed by an older
	// scan is dropped once a newer one has started
	generation uint64
	resetTimer *time.Timer
}

func NewController(cfg ControllerConfig) *Controller {
	c := &Controller{
		roster:     cfg.Roster,
		quotes:     cfg.Quotes,
		ledger:     cfg.Ledger,
		seen:       cfg.Seen,
		store:      cfg.Store,
		reporter:   cfg.Reporter,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		resetDelay: cfg.ResetDelay,
	}
	if c.ledger == nil {
		c.ledger = ledger.New()
	}
	if c.seen == nil {
		c.seen = ledger.NewSeenValues()
	}
	if c.reporter == nil {
		c.reporter = NopReporter{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.metrics == nil {
		c.metrics = observability.NewMetrics("")
	}
	if c.resetDelay <= 0 {
		c.resetDelay = DefaultProgressResetDelay
	}

	var persist func() error
	if c.store != nil {
		persist = func() error {
			return c.store.SaveLedger(c.ledger.Snapshot())
		}
	}
	debOpts := append([]DebouncerOption{
		WithDebouncerReporter(c.reporter),
		WithDebouncerLogger(c.logger),
		WithDebouncerMetrics(c.metrics),
	}, cfg.DebouncerOpts...)
	c.debouncer = NewDebouncer(c.render, persist, debOpts...)

	c.scheduler = NewScheduler(SchedulerConfig{
		Fetcher:        cfg.Fetcher,
		Merger:         cfg.Merger,
		Ledger:         c.ledger,
		Seen:           c.seen,
		Render:         c.debouncer,
		Reporter:       c.reporter,
		MaxConcurrency: cfg.MaxConcurrency,
		Logger:         c.logger,
		Metrics:        c.metrics,
	})

	return c
}

// Ledger returns the ledger the controller writes to.
func (c *Controller) Ledger() *ledger.Ledger { return c.ledger }

// Stats aggregates the current ledger.
func (c *Controller) Stats() domain.LedgerStats {
	return domain.ComputeStats(c.ledger.Snapshot())
}

func (c *Controller) render() {
	stats := c.Stats()
	c.metrics.LedgerPositions.Set(float64(stats.Positions))
	c.metrics.LedgerWhales.Set(float64(stats.Whales))
	c.reporter.OnLedger(stats)
}

// Scan runs one full cycle for whales worth at least minValue.
// A roster failure aborts the cycle and is returned; ctx cancellation stops
// the workers and is returned after finalization.
func (c *Controller) Scan(ctx context.Context, minValue decimal.Decimal) (Outcome, error) {
	if err := c.claim(); err != nil {
		return Outcome{}, err
	}
	defer c.release()

	return c.run(ctx, minValue)
}

// Start claims the controller and runs the scan in the background. It
// returns ErrScanInProgress right away if a scan is already running.
// done, when not nil, receives the result.
func (c *Controller) Start(ctx context.Context, minValue decimal.Decimal, done func(Outcome, error)) error {
	if err := c.claim(); err != nil {
		return err
	}

	go func() {
		out, err := c.run(ctx, minValue)
		c.release()
		if done != nil {
			done(out, err)
		}
	}()
	return nil
}

func (c *Controller) claim() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrScanInProgress
	}
	c.running = true
	c.session = nil
	c.generation++
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
	return nil
}

func (c *Controller) release() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

func (c *Controller) run(ctx context.Context, minValue decimal.Decimal) (Outcome, error) {
	scanID := uuid.NewString()
	logger := c.logger.With(zap.String("scan_id", scanID))
	started := time.Now()

	c.reporter.OnProgress(progressRosterStart)
	c.reporter.OnStatus("Fetching leaderboard…", domain.StatusScanning)

	var quotes domain.Quotes
	if c.quotes != nil {
		q, err := c.quotes.Quotes(ctx)
		if err != nil {
			logger.Warn("live prices unavailable, entry prices will be used as marks", zap.Error(err))
			c.reporter.OnStatus("Live prices unavailable, using entry prices", domain.StatusWarning)
		}
		quotes = q
	}

	whales, err := c.roster.Fetch(ctx)
	if err != nil {
		logger.Error("roster fetch failed", zap.Error(err))
		c.metrics.ScanRuns.WithLabelValues("failed").Inc()
		c.reporter.OnStatus("Scan failed: "+err.Error(), domain.StatusError)
		c.reporter.OnProgress(0)
		return Outcome{ScanID: scanID}, errors.Wrap(err, "fetch roster")
	}

	selected := roster.Select(whales, minValue)
	logger.Info("roster loaded",
		zap.Int("rows", len(whales)),
		zap.Int("selected", len(selected)),
		zap.String("min_value", minValue.String()))
	c.reporter.OnStatus(fmt.Sprintf("Found %d whales. Loading positions…", len(selected)), domain.StatusScanning)
	c.reporter.OnProgress(progressRosterDone)

	sess := NewSession(scanID, selected)
	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()

	c.debouncer.SetScanning(true)
	summary, runErr := c.scheduler.Run(ctx, sess, quotes)

	outcome := c.finalize(sess, summary, runErr != nil, logger)
	outcome.Duration = time.Since(started)
	c.metrics.ScanDuration.Observe(outcome.Duration.Seconds())

	if runErr != nil {
		return outcome, errors.Wrap(runErr, "scan interrupted")
	}
	return outcome, nil
}

func (c *Controller) finalize(sess *Session, summary Summary, interrupted bool, logger *zap.Logger) Outcome {
	result := domain.ScanCompleted
	if stopped := !sess.Stop(); stopped || interrupted {
		result = domain.ScanStopped
	}

	c.reporter.OnProgress(progressFinal)

	if c.store != nil {
		if err := c.store.SaveSeen(c.seen.Snapshot()); err != nil {
			c.metrics.PersistFailures.Inc()
			logger.Warn("persist seen values failed", zap.Error(err))
			c.reporter.OnStatus("Could not save seen values: "+err.Error(), domain.StatusWarning)
		}
	}
	_ = c.debouncer.Flush()
	c.debouncer.SetScanning(false)

	label := "✓ Done"
	if result == domain.ScanStopped {
		label = "⏹ Stopped"
	}
	c.reporter.OnStatus(label, domain.StatusDone)
	c.metrics.ScanRuns.WithLabelValues(string(result)).Inc()

	logger.Info("scan finished",
		zap.String("result", string(result)),
		zap.Int("dispatched", summary.Dispatched),
		zap.Int("merged", summary.Merged),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("abandoned", summary.Abandoned))

	c.armProgressReset()

	return Outcome{
		ScanID:  sess.ID,
		Result:  result,
		Whales:  sess.Total(),
		Summary: summary,
	}
}

func (c *Controller) armProgressReset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen := c.generation
	c.resetTimer = time.AfterFunc(c.resetDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation != gen {
			return
		}
		c.resetTimer = nil
		c.reporter.OnProgress(0)
	})
}

func (c *Controller) current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	return c.session
}

// Stop ends dispatching; in-flight fetches finish and are merged.
func (c *Controller) Stop() error {
	sess := c.current()
	if sess == nil || !sess.Stop() {
		return ErrNotScanning
	}
	c.reporter.OnStatus("Stopping…", domain.StatusScanning)
	return nil
}

// TogglePause pauses or resumes the running scan and returns the new paused state.
func (c *Controller) TogglePause() (bool, error) {
	sess := c.current()
	if sess == nil {
		return false, ErrNotScanning
	}

	paused, ok := sess.TogglePause()
	if !ok {
		return false, ErrNotScanning
	}
	if paused {
		c.reporter.OnStatus("Scan paused", domain.StatusPaused)
	} else {
		c.reporter.OnStatus("Resuming scan...", domain.StatusScanning)
	}
	return paused, nil
}

// State returns the lifecycle state.
func (c *Controller) State() domain.ScanState {
	return c.View().State
}

// View returns state plus counters of the running scan.
func (c *Controller) View() StateView {
	c.mu.Lock()
	running := c.running
	sess := c.session
	c.mu.Unlock()

	if !running {
		return StateView{State: domain.ScanStateIdle}
	}
	if sess == nil {
		// roster phase
		return StateView{State: domain.ScanStateScanning, Progress: progressRosterStart}
	}

	view := StateView{
		State:  domain.ScanStateScanning,
		ScanID: sess.ID,
		Done:   sess.Done(),
		Total:  sess.Total(),
		Active: sess.Active(),
		Queued: sess.Queued(),
	}
	view.Progress = WorkProgress(view.Done, view.Total)
	if sess.Paused() {
		view.State = domain.ScanStatePaused
	}
	return view
}

// Restore loads the last persisted ledger and seen values. It is meant for
// startup, before the first scan.
func (c *Controller) Restore(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	rec, ok, err := c.store.LatestLedger()
	if err != nil {
		return 0, errors.Wrap(err, "load ledger")
	}
	if ok {
		c.ledger.Load(rec.Positions)
	}

	seen, ok, err := c.store.LatestSeen()
	if err != nil {
		return 0, errors.Wrap(err, "load seen values")
	}
	if ok {
		c.seen.Load(seen.Values)
	}

	n := c.ledger.Len()
	if n > 0 {
		c.render()
		c.logger.Info("ledger restored", zap.Int("positions", n))
	}
	return n, nil
}
