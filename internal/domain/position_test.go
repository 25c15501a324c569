package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSideOf(t *testing.T) {
	assert.Equal(t, PositionSideLong, SideOf(decimal.NewFromInt(2)))
	assert.Equal(t, PositionSideShort, SideOf(decimal.NewFromFloat(-0.5)))
}

func TestDistanceToLiquidation(t *testing.T) {
	tests := []struct {
		name     string
		mark     decimal.Decimal
		liq      decimal.Decimal
		valid    bool
		expected decimal.Decimal
	}{
		{
			name:     "long below mark",
			mark:     decimal.NewFromInt(2000),
			liq:      decimal.NewFromInt(1500),
			valid:    true,
			expected: decimal.NewFromInt(25),
		},
		{
			name:     "short above mark",
			mark:     decimal.NewFromInt(100),
			liq:      decimal.NewFromInt(110),
			valid:    true,
			expected: decimal.NewFromInt(10),
		},
		{
			name: "no liquidation price",
			mark: decimal.NewFromInt(100),
			liq:  decimal.Zero,
		},
		{
			name: "no mark price",
			mark: decimal.Zero,
			liq:  decimal.NewFromInt(10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceToLiquidation(tt.mark, tt.liq)
			require.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.True(t, tt.expected.Equal(got.Decimal), "got %s", got.Decimal)
			}
		})
	}
}
