package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	positions := []Position{
		{
			Address:       "0xA",
			AccountValue:  decimal.NewFromInt(5_000_000),
			Coin:          "ETH",
			Side:          PositionSideLong,
			PositionValue: decimal.NewFromInt(4000),
			UnrealizedPnl: decimal.NewFromInt(100),
		},
		{
			Address:       "0xA",
			AccountValue:  decimal.NewFromInt(5_000_000),
			Coin:          "BTC",
			Side:          PositionSideShort,
			PositionValue: decimal.NewFromInt(90_000),
			UnrealizedPnl: decimal.NewFromInt(-300),
		},
		{
			Address:       "0xB",
			AccountValue:  decimal.NewFromInt(3_000_000),
			Coin:          "ETH",
			Side:          PositionSideShort,
			PositionValue: decimal.NewFromInt(2000),
			UnrealizedPnl: decimal.NewFromInt(50),
		},
	}

	stats := ComputeStats(positions)

	assert.Equal(t, 2, stats.Whales)
	assert.Equal(t, 3, stats.Positions)
	assert.True(t, decimal.NewFromInt(8_000_000).Equal(stats.TotalCapital))
	assert.True(t, decimal.NewFromInt(-150).Equal(stats.TotalUpnl))
	assert.True(t, decimal.NewFromInt(5_000_000).Equal(stats.LargestAccount))
	assert.True(t, decimal.NewFromInt(4000).Equal(stats.LongNotional))
	assert.True(t, decimal.NewFromInt(92_000).Equal(stats.ShortNotional))
	assert.Equal(t, []string{"BTC", "ETH"}, stats.Coins)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil)
	assert.Zero(t, stats.Whales)
	assert.Zero(t, stats.Positions)
	assert.True(t, stats.TotalCapital.IsZero())
	assert.Empty(t, stats.Coins)
}
