package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// LedgerStats headline aggregates over the current ledger.
type LedgerStats struct {
	Whales         int             `json:"whales"`
	Positions      int             `json:"positions"`
	TotalCapital   decimal.Decimal `json:"totalCapital"`
	TotalUpnl      decimal.Decimal `json:"totalUpnl"`
	LargestAccount decimal.Decimal `json:"largestAccount"`
	LongNotional   decimal.Decimal `json:"longNotional"`
	ShortNotional  decimal.Decimal `json:"shortNotional"`
	Coins          []string        `json:"coins"`
}

// ComputeStats aggregates positions. Capital counts each address once.
func ComputeStats(positions []Position) LedgerStats {
	stats := LedgerStats{
		TotalCapital:   decimal.Zero,
		TotalUpnl:      decimal.Zero,
		LargestAccount: decimal.Zero,
		LongNotional:   decimal.Zero,
		ShortNotional:  decimal.Zero,
		Coins:          []string{},
	}

	seenAddr := make(map[string]struct{})
	seenCoin := make(map[string]struct{})
	for _, p := range positions {
		stats.Positions++
		stats.TotalUpnl = stats.TotalUpnl.Add(p.UnrealizedPnl)
		if p.IsLong() {
			stats.LongNotional = stats.LongNotional.Add(p.Notional())
		} else {
			stats.ShortNotional = stats.ShortNotional.Add(p.Notional())
		}
		if p.AccountValue.GreaterThan(stats.LargestAccount) {
			stats.LargestAccount = p.AccountValue
		}
		if _, ok := seenCoin[p.Coin]; !ok {
			seenCoin[p.Coin] = struct{}{}
			stats.Coins = append(stats.Coins, p.Coin)
		}
		if _, ok := seenAddr[p.Address]; ok {
			continue
		}
		seenAddr[p.Address] = struct{}{}
		stats.TotalCapital = stats.TotalCapital.Add(p.AccountValue)
	}
	stats.Whales = len(seenAddr)
	sort.Strings(stats.Coins)

	return stats
}
