package ledgerstore

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/whalewatch/internal/domain"
)

func testPositions() []domain.Position {
	return []domain.Position{
		{
			Address:       "0xA",
			Coin:          "ETH",
			Size:          decimal.NewFromInt(2),
			Side:          domain.PositionSideLong,
			LeverageType:  domain.LeverageCross,
			LeverageValue: 10,
			EntryPrice:    decimal.NewFromInt(2000),
			MarkPrice:     decimal.NewFromInt(2000),
			DistToLiqPct:  decimal.NewNullDecimal(decimal.NewFromInt(25)),
		},
		{
			Address: "0xB",
			Coin:    "BTC",
			Size:    decimal.NewFromInt(-1),
			Side:    domain.PositionSideShort,
		},
	}
}

func TestWALStore_EmptyStore(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.LatestLedger()
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.LatestSeen()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWALStore_LatestWins(t *testing.T) {
	dir := t.TempDir()
	store, err := NewWALStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.SaveLedger(testPositions()))
	require.NoError(t, store.SaveSeen(map[string]decimal.Decimal{"0xA": decimal.NewFromInt(5_000_000)}))
	require.NoError(t, store.SaveLedger(testPositions()[:1]))

	rec, ok, err := store.LatestLedger()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, rec.Positions, 1)
	assert.Equal(t, "ETH", rec.Positions[0].Coin)
	assert.True(t, rec.Positions[0].DistToLiqPct.Valid)
	assert.Equal(t, uint64(3), store.CurrentIndex())
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	seen, ok, err := reopened.LatestSeen()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, seen.Values["0xA"].Equal(decimal.NewFromInt(5_000_000)))

	rec, ok, err = reopened.LatestLedger()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, rec.Positions, 1)
}

func TestWALStore_EmptyLedgerIsStored(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveLedger(testPositions()))
	require.NoError(t, store.SaveLedger(nil))

	rec, ok, err := store.LatestLedger()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, rec.Positions)
}

func TestWALStore_NewestSurvivesSegmentRotation(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}

	total := ledgerSegmentSize*ledgerMaxSegments + ledgerSegmentSize
	for i := 0; i < total; i++ {
		if i == total-2 {
			require.NoError(t, store.SaveSeen(map[string]decimal.Decimal{"0xA": decimal.NewFromInt(int64(i))}))
			continue
		}
		rows := testPositions()[:1]
		rows[0].Address = fmt.Sprintf("0x%d", i)
		require.NoError(t, store.SaveLedger(rows))
	}

	rec, ok, err := store.LatestLedger()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, rec.Positions, 1)
	assert.Equal(t, fmt.Sprintf("0x%d", total-1), rec.Positions[0].Address)

	seen, ok, err := store.LatestSeen()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, seen.Values["0xA"].Equal(decimal.NewFromInt(int64(total-2))))
}
