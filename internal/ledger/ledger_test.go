package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/whalewatch/internal/domain"
)

func row(addr, coin string, side domain.PositionSide) domain.Position {
	return domain.Position{Address: addr, Coin: coin, Side: side, Size: decimal.NewFromInt(1)}
}

func TestLedger_ReplaceRemovesStale(t *testing.T) {
	l := New()
	l.Replace("0xA", []domain.Position{row("0xA", "X", domain.PositionSideLong), row("0xA", "Y", domain.PositionSideShort)})
	l.Replace("0xB", []domain.Position{row("0xB", "X", domain.PositionSideLong)})

	l.Replace("0xA", []domain.Position{row("0xA", "X", domain.PositionSideLong)})

	recs := l.For("0xA")
	require.Len(t, recs, 1)
	assert.Equal(t, "X", recs[0].Coin)
	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Has("0xB"))
}

func TestLedger_ReplaceIsIdempotent(t *testing.T) {
	l := New()
	records := []domain.Position{row("0xA", "ETH", domain.PositionSideLong), row("0xA", "BTC", domain.PositionSideShort)}

	l.Replace("0xA", records)
	once := l.Snapshot()
	l.Replace("0xA", records)

	assert.Equal(t, once, l.Snapshot())
}

func TestLedger_ReplaceWithNothingClearsAddress(t *testing.T) {
	l := New()
	l.Replace("0xA", []domain.Position{row("0xA", "ETH", domain.PositionSideLong)})
	l.Replace("0xA", nil)

	assert.False(t, l.Has("0xA"))
	assert.Zero(t, l.Len())
}

func TestLedger_Query(t *testing.T) {
	l := New()
	l.Replace("0xA", []domain.Position{row("0xA", "ETH", domain.PositionSideLong), row("0xA", "BTC", domain.PositionSideShort)})
	l.Replace("0xB", []domain.Position{row("0xB", "ETH", domain.PositionSideShort)})

	assert.Len(t, l.Query(Filter{}), 3)
	assert.Len(t, l.Query(Filter{Coins: []string{"eth"}}), 2)
	assert.Len(t, l.Query(Filter{Side: domain.PositionSideShort}), 2)
	assert.Len(t, l.Query(Filter{Address: "0xa", Side: domain.PositionSideLong}), 1)
}

func TestSeenValues(t *testing.T) {
	s := NewSeenValues()
	_, ok := s.Get("0xA")
	assert.False(t, ok)

	s.Set("0xA", decimal.NewFromInt(10))
	v, ok := s.Get("0xA")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(10).Equal(v))

	snap := s.Snapshot()
	snap["0xA"] = decimal.NewFromInt(99)
	v, _ = s.Get("0xA")
	assert.True(t, decimal.NewFromInt(10).Equal(v), "snapshot must be a copy")

	s.Load(map[string]decimal.Decimal{"0xB": decimal.NewFromInt(1)})
	_, ok = s.Get("0xA")
	assert.False(t, ok)
}
