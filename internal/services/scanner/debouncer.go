package scanner

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/whalewatch/internal/domain"
	"github.com/vadiminshakov/whalewatch/internal/observability"
)

const (
	DefaultIdleRenderDelay = 400 * time.Millisecond
	DefaultScanRenderDelay = 1000 * time.Millisecond
	DefaultPersistInterval = 2000 * time.Millisecond
)

// Debouncer coalesces render requests and piggybacks periodic persistence on them.
type Debouncer struct {
	render  func()
	persist func() error

	idleDelay       time.Duration
	scanDelay       time.Duration
	persistInterval time.Duration
	now             func() time.Time

	reporter Reporter
	logger   *zap.Logger
	metrics  *observability.Metrics

	scanning atomic.Bool

	mu          sync.Mutex
	pending     bool
	lastPersist time.Time

	wg sync.WaitGroup
}

// DebouncerOption configures Debouncer.
type DebouncerOption func(*Debouncer)

// WithDelays sets the render delay used while idle and while scanning.
func WithDelays(idle, scanning time.Duration) DebouncerOption {
	return func(d *Debouncer) {
		d.idleDelay = idle
		d.scanDelay = scanning
	}
}

// WithPersistInterval sets the minimum gap between two periodic persists.
func WithPersistInterval(interval time.Duration) DebouncerOption {
	return func(d *Debouncer) {
		d.persistInterval = interval
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) DebouncerOption {
	return func(d *Debouncer) {
		d.now = now
	}
}

// WithDebouncerReporter sets where persist warnings go.
func WithDebouncerReporter(r Reporter) DebouncerOption {
	return func(d *Debouncer) {
		d.reporter = r
	}
}

// WithDebouncerLogger sets the logger.
func WithDebouncerLogger(l *zap.Logger) DebouncerOption {
	return func(d *Debouncer) {
		d.logger = l
	}
}

// WithDebouncerMetrics sets the metrics sink.
func WithDebouncerMetrics(m *observability.Metrics) DebouncerOption {
	return func(d *Debouncer) {
		d.metrics = m
	}
}

// NewDebouncer creates a debouncer. persist may be nil.
func NewDebouncer(render func(), persist func() error, opts ...DebouncerOption) *Debouncer {
	d := &Debouncer{
		render:          render,
		persist:         persist,
		idleDelay:       DefaultIdleRenderDelay,
		scanDelay:       DefaultScanRenderDelay,
		persistInterval: DefaultPersistInterval,
		now:             time.Now,
		reporter:        NopReporter{},
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = observability.NewMetrics("")
	}
	return d
}

// SetScanning switches between the scanning and idle render delays.
func (d *Debouncer) SetScanning(scanning bool) {
	d.scanning.Store(scanning)
}

// Schedule arms a render unless one is already pending.
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	if d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = true
	d.mu.Unlock()

	delay := d.idleDelay
	if d.scanning.Load() {
		delay = d.scanDelay
	}

	d.wg.Add(1)
	time.AfterFunc(delay, d.fire)
}

func (d *Debouncer) fire() {
	defer d.wg.Done()

	d.mu.Lock()
	d.pending = false
	due := d.now().Sub(d.lastPersist) > d.persistInterval
	d.mu.Unlock()

	d.render()
	if due {
		d.persistNow()
	}
}

// Flush renders and persists right away, regardless of pending timers.
func (d *Debouncer) Flush() error {
	d.render()
	return d.persistNow()
}

// Wait blocks until every armed render has fired.
func (d *Debouncer) Wait() {
	d.wg.Wait()
}

// persistNow saves and records the time on success. Failures are reported
// as warnings and never stop a scan.
func (d *Debouncer) persistNow() error {
	if d.persist == nil {
		return nil
	}

	if err := d.persist(); err != nil {
		d.metrics.PersistFailures.Inc()
		d.logger.Warn("persist ledger failed", zap.Error(err))
		d.reporter.OnStatus("Could not save ledger: "+err.Error(), domain.StatusWarning)
		return err
	}

	d.mu.Lock()
	d.lastPersist = d.now()
	d.mu.Unlock()
	return nil
}
