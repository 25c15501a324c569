package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vadiminshakov/whalewatch/internal/domain"
)

func TestMoney(t *testing.T) {
	cases := map[string]string{
		"2500000":    "$2.50M",
		"1200000000": "$1.20B",
		"15300":      "$15.3K",
		"-420.5":     "-$420.50",
		"0":          "$0.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, Money(decimal.RequireFromString(in)), in)
	}
}

func TestReporterThrottlesProgress(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	for _, p := range []float64{5, 6, 7, 15, 16, 40, 100, 100} {
		r.OnProgress(p)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], "5%")
	assert.Contains(t, lines[1], "15%")
	assert.Contains(t, lines[2], "40%")
	assert.Contains(t, lines[3], "100%")

	buf.Reset()
	r.OnProgress(0)
	assert.Contains(t, buf.String(), "0%")
}

func TestReporterPrintsStatsOnDone(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.OnStatus("Fetching leaderboard…", domain.StatusScanning)
	assert.NotContains(t, buf.String(), "Whales:")

	r.OnLedger(domain.LedgerStats{
		Whales:       2,
		Positions:    3,
		TotalCapital: decimal.NewFromInt(7_000_000),
	})
	r.OnStatus("✓ Done", domain.StatusDone)

	out := buf.String()
	assert.Contains(t, out, "Fetching leaderboard…")
	assert.Contains(t, out, "✓ Done")
	assert.Contains(t, out, "Whales: 2")
	assert.Contains(t, out, "$7.00M")
}
