// Package pricer provides live mid prices used as position marks.
package pricer

import (
	"context"

	"github.com/vadiminshakov/whalewatch/internal/domain"
)

// QuoteSource returns the current mid price of every listed coin.
type QuoteSource interface {
	Quotes(ctx context.Context) (domain.Quotes, error)
}
