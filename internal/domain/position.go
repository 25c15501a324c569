package domain

import (
	"github.com/shopspring/decimal"
)

// PositionSide direction of a position.
type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// SideOf derives the side from a signed size.
func SideOf(size decimal.Decimal) PositionSide {
	if size.GreaterThan(decimal.Zero) {
		return PositionSideLong
	}
	return PositionSideShort
}

const (
	// LeverageCross default leverage mode when the snapshot omits it.
	LeverageCross = "cross"
	// LeverageIsolated isolated margin leverage mode.
	LeverageIsolated = "isolated"
)

// Position is one ledger row: a non-zero position of an address in one coin.
// Rows are never mutated in place; a newer snapshot replaces all rows of the address.
type Position struct {
	Address          string              `json:"address"`
	DisplayName      string              `json:"displayName,omitempty"`
	AccountValue     decimal.Decimal     `json:"accountValue"`
	Coin             string              `json:"coin"`
	Size             decimal.Decimal     `json:"szi"`
	Side             PositionSide        `json:"side"`
	LeverageType     string              `json:"leverageType"`
	LeverageValue    int                 `json:"leverageValue"`
	PositionValue    decimal.Decimal     `json:"positionValue"`
	EntryPrice       decimal.Decimal     `json:"entryPx"`
	MarkPrice        decimal.Decimal     `json:"markPrice"`
	UnrealizedPnl    decimal.Decimal     `json:"unrealizedPnl"`
	Funding          decimal.Decimal     `json:"funding"`
	LiquidationPrice decimal.Decimal     `json:"liquidationPx"`
	DistToLiqPct     decimal.NullDecimal `json:"distPct"`
	MarginUsed       decimal.Decimal     `json:"marginUsed"`
}

var hundred = decimal.NewFromInt(100)

// DistanceToLiquidation returns |mark - liq| / mark * 100 when both prices are positive.
func DistanceToLiquidation(mark, liq decimal.Decimal) decimal.NullDecimal {
	if !liq.IsPositive() || !mark.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(mark.Sub(liq).Abs().Div(mark).Mul(hundred))
}

// IsLong reports whether the position is long.
func (p Position) IsLong() bool {
	return p.Side == PositionSideLong
}

// Notional returns the absolute position value.
func (p Position) Notional() decimal.Decimal {
	return p.PositionValue.Abs()
}
