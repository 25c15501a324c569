package domain

import "github.com/shopspring/decimal"

// Quotes live mid prices keyed by coin symbol.
type Quotes map[string]decimal.Decimal

// Mark returns the quote for coin when it is known and positive.
func (q Quotes) Mark(coin string) (decimal.Decimal, bool) {
	px, ok := q[coin]
	if !ok || !px.IsPositive() {
		return decimal.Zero, false
	}
	return px, true
}
