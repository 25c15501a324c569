package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/whalewatch/internal/domain"
)

// MidsFetcher is the part of the go-hyperliquid Info client the pricer needs.
type MidsFetcher interface {
	AllMids(ctx context.Context) (map[string]string, error)
}

// HyperliquidPricer fetches prices from Hyperliquid public Info API.
type HyperliquidPricer struct {
	info   MidsFetcher
	logger *zap.Logger
}

func NewHyperliquidPricer(info MidsFetcher, logger *zap.Logger) *HyperliquidPricer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HyperliquidPricer{info: info, logger: logger}
}

// Quotes returns all mids keyed by base coin (e.g., "BTC").
// Unparsable or empty mids are left out, so the merger falls back to the entry price.
func (p *HyperliquidPricer) Quotes(ctx context.Context) (domain.Quotes, error) {
	if p.info == nil {
		return nil, errors.New("hyperliquid info client is nil")
	}

	mids, err := p.info.AllMids(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch all mids")
	}

	quotes := make(domain.Quotes, len(mids))
	for coin, mid := range mids {
		if mid == "" {
			continue
		}
		px, err := decimal.NewFromString(mid)
		if err != nil {
			p.logger.Debug("skipping unparsable mid", zap.String("coin", coin), zap.String("mid", mid))
			continue
		}
		quotes[coin] = px
	}

	return quotes, nil
}
