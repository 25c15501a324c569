package scanner

import (
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/whalewatch/internal/domain"
	"github.com/vadiminshakov/whalewatch/internal/ledger"
)

// DeltaEpsilon absolute account value change below which an address counts as unchanged.
var DeltaEpsilon = decimal.NewFromFloat(0.01)

// ShouldSkip reports whether whale can be left unfetched this cycle: its value
// is unchanged since the last successful merge and the ledger already holds its rows.
// An address without rows is always fetched.
func ShouldSkip(whale domain.Whale, l *ledger.Ledger, seen *ledger.SeenValues) bool {
	last, ok := seen.Get(whale.Address)
	if !ok {
		return false
	}
	if whale.AccountValue.Sub(last).Abs().GreaterThanOrEqual(DeltaEpsilon) {
		return false
	}
	return l.Has(whale.Address)
}
