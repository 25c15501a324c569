package pricer

import (
	"context"

	"github.com/vadiminshakov/whalewatch/internal/domain"
)

// StaticPricer serves a fixed quote table. With no table every mark falls back
// to the entry price, which is what the offline mode uses.
type StaticPricer struct {
	quotes domain.Quotes
}

func NewStaticPricer(quotes domain.Quotes) *StaticPricer {
	return &StaticPricer{quotes: quotes}
}

func (p *StaticPricer) Quotes(context.Context) (domain.Quotes, error) {
	out := make(domain.Quotes, len(p.quotes))
	for k, v := range p.quotes {
		out[k] = v
	}
	return out, nil
}
