// Package merger turns raw clearinghouse snapshots into ledger rows.
package merger

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/whalewatch/internal/domain"
	"github.com/vadiminshakov/whalewatch/internal/ledger"
	"github.com/vadiminshakov/whalewatch/internal/observability"
)

var (
	ErrZeroSize          = errors.New("position size is zero")
	ErrMissingEntryPrice = errors.New("position has no entry price")
	ErrMalformedField    = errors.New("malformed numeric field")
)

const defaultLeverage = 1

// divergenceLimit relative gap between roster and snapshot account values
// above which the snapshot value wins.
var divergenceLimit = decimal.NewFromFloat(0.2)

// Result outcome of parsing one raw entry. Record is valid only when Err is nil.
type Result struct {
	Record domain.Position
	Err    error
}

// MergeResult summary of one Merge call.
type MergeResult struct {
	Merged       bool
	AccountValue decimal.Decimal
	Records      int
	Dropped      int
}

// Merger writes parsed snapshots into the ledger.
type Merger struct {
	ledger  *ledger.Ledger
	logger  *zap.Logger
	metrics *observability.Metrics
}

// Option configures Merger.
type Option func(*Merger)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Merger) {
		m.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Merger) {
		m.metrics = metrics
	}
}

// New creates a merger writing into l.
func New(l *ledger.Ledger, opts ...Option) *Merger {
	m := &Merger{
		ledger: l,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = observability.NewMetrics("")
	}
	return m
}

// Merge replaces every ledger row of whale with the positions found in snap.
// A nil snapshot leaves the ledger untouched and reports Merged=false.
func (m *Merger) Merge(whale domain.Whale, snap *domain.Snapshot, quotes domain.Quotes) MergeResult {
	if snap == nil {
		return MergeResult{}
	}

	logger := m.logger.With(zap.String("address", whale.Address))
	accountValue, diverged := ReconcileAccountValue(whale.AccountValue, snap.MarginSummary)
	if diverged {
		logger.Warn("account value diverges from roster, using snapshot value",
			zap.String("roster", whale.AccountValue.String()),
			zap.String("snapshot", accountValue.String()))
	}

	out := MergeResult{Merged: true, AccountValue: accountValue}
	records := make([]domain.Position, 0, len(snap.AssetPositions))
	for _, entry := range snap.AssetPositions {
		res := Parse(whale, accountValue, entry.Position, quotes)
		if res.Err != nil {
			out.Dropped++
			m.drop(logger, entry.Position.Coin, res.Err)
			continue
		}
		records = append(records, res.Record)
	}

	m.ledger.Replace(whale.Address, records)
	out.Records = len(records)

	return out
}

func (m *Merger) drop(logger *zap.Logger, coin string, err error) {
	switch {
	case errors.Is(err, ErrZeroSize):
		m.metrics.PositionsDropped.WithLabelValues("zero_size").Inc()
	case errors.Is(err, ErrMissingEntryPrice):
		m.metrics.PositionsDropped.WithLabelValues("missing_entry_price").Inc()
		logger.Warn("dropping position without entry price", zap.String("coin", coin))
	default:
		m.metrics.PositionsDropped.WithLabelValues("malformed").Inc()
		logger.Warn("dropping malformed position", zap.String("coin", coin), zap.Error(err))
	}
}

// ReconcileAccountValue picks between the roster value and the snapshot's own
// account value. The snapshot wins when the two differ by more than 20% of the
// roster value; the second result reports that substitution.
func ReconcileAccountValue(roster decimal.Decimal, summary *domain.MarginSummary) (decimal.Decimal, bool) {
	if summary == nil || summary.AccountValue == "" || !roster.IsPositive() {
		return roster, false
	}
	snapValue, err := decimal.NewFromString(summary.AccountValue)
	if err != nil {
		return roster, false
	}
	if roster.Sub(snapValue).Abs().Div(roster).GreaterThan(divergenceLimit) {
		return snapValue, true
	}
	return roster, false
}

// Parse validates one raw entry and builds its ledger row.
func Parse(whale domain.Whale, accountValue decimal.Decimal, raw domain.RawPosition, quotes domain.Quotes) Result {
	size, err := parseRequired("szi", raw.Szi)
	if err != nil {
		return Result{Err: err}
	}
	if size.IsZero() {
		return Result{Err: ErrZeroSize}
	}
	if raw.EntryPx == nil {
		return Result{Err: ErrMissingEntryPrice}
	}
	entry, err := parseRequired("entryPx", *raw.EntryPx)
	if err != nil {
		return Result{Err: err}
	}

	liq := decimal.Zero
	if raw.LiquidationPx != nil {
		if liq, err = parseOptional("liquidationPx", *raw.LiquidationPx); err != nil {
			return Result{Err: err}
		}
	}

	var fields [3]decimal.Decimal
	for i, f := range []struct{ name, value string }{
		{"positionValue", raw.PositionValue},
		{"unrealizedPnl", raw.UnrealizedPnl},
		{"marginUsed", raw.MarginUsed},
	} {
		if fields[i], err = parseOptional(f.name, f.value); err != nil {
			return Result{Err: err}
		}
	}

	funding := decimal.Zero
	if raw.CumFunding != nil {
		if funding, err = parseOptional("cumFunding.sinceOpen", raw.CumFunding.SinceOpen); err != nil {
			return Result{Err: err}
		}
	}

	levType, levValue := domain.LeverageCross, defaultLeverage
	if raw.Leverage != nil {
		if raw.Leverage.Type != "" {
			levType = raw.Leverage.Type
		}
		if raw.Leverage.Value != 0 {
			levValue = raw.Leverage.Value
		}
	}

	mark, ok := quotes.Mark(raw.Coin)
	if !ok {
		mark = entry
	}

	return Result{Record: domain.Position{
		Address:          whale.Address,
		DisplayName:      whale.DisplayName,
		AccountValue:     accountValue,
		Coin:             raw.Coin,
		Size:             size,
		Side:             domain.SideOf(size),
		LeverageType:     levType,
		LeverageValue:    levValue,
		PositionValue:    fields[0],
		EntryPrice:       entry,
		MarkPrice:        mark,
		UnrealizedPnl:    fields[1],
		Funding:          funding,
		LiquidationPrice: liq,
		DistToLiqPct:     domain.DistanceToLiquidation(mark, liq),
		MarginUsed:       fields[2],
	}}
}

func parseRequired(name, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrMalformedField, "%s=%q", name, value)
	}
	return d, nil
}

// parseOptional treats an empty string as zero.
func parseOptional(name, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return parseRequired(name, value)
}
