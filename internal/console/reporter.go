// Package console prints scan progress to a terminal.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/whalewatch/internal/domain"
)

// progressStep is the smallest progress change worth a line.
const progressStep = 10

var (
	scanningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	pausedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F2C94C"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#73F59F")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	statsStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

// Reporter writes status lines and a stats box when a scan finishes.
type Reporter struct {
	mu           sync.Mutex
	out          io.Writer
	lastProgress float64
	stats        domain.LedgerStats
	haveStats    bool
}

func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out, lastProgress: -progressStep}
}

func (r *Reporter) OnProgress(percent float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// a new scan starts from a lower value
	if percent < r.lastProgress {
		r.lastProgress = -progressStep
	}
	if percent-r.lastProgress < progressStep && percent != 100 {
		return
	}
	if percent == r.lastProgress {
		return
	}
	r.lastProgress = percent
	fmt.Fprintln(r.out, mutedStyle.Render(fmt.Sprintf("[%3.0f%%]", percent)))
}

func (r *Reporter) OnStatus(message string, kind domain.StatusKind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, styleFor(kind).Render(message))
	if kind == domain.StatusDone && r.haveStats {
		fmt.Fprintln(r.out, statsStyle.Render(FormatStats(r.stats)))
	}
}

func (r *Reporter) OnLedger(stats domain.LedgerStats) {
	r.mu.Lock()
	r.stats = stats
	r.haveStats = true
	r.mu.Unlock()
}

func styleFor(kind domain.StatusKind) lipgloss.Style {
	switch kind {
	case domain.StatusPaused, domain.StatusWarning:
		return pausedStyle
	case domain.StatusDone:
		return doneStyle
	case domain.StatusError:
		return errorStyle
	case domain.StatusIdle:
		return mutedStyle
	default:
		return scanningStyle
	}
}

// FormatStats renders the headline numbers as plain text.
func FormatStats(s domain.LedgerStats) string {
	return fmt.Sprintf(
		"Whales: %d  Positions: %d\nCapital: %s  uPnL: %s\nLargest: %s\nLong: %s  Short: %s",
		s.Whales, s.Positions,
		Money(s.TotalCapital), Money(s.TotalUpnl),
		Money(s.LargestAccount),
		Money(s.LongNotional), Money(s.ShortNotional),
	)
}

// Money abbreviates a dollar amount, e.g. $2.50M.
func Money(v decimal.Decimal) string {
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Abs()
	}

	switch {
	case v.GreaterThanOrEqual(decimal.NewFromInt(1_000_000_000)):
		return sign + "$" + v.Div(decimal.NewFromInt(1_000_000_000)).StringFixed(2) + "B"
	case v.GreaterThanOrEqual(decimal.NewFromInt(1_000_000)):
		return sign + "$" + v.Div(decimal.NewFromInt(1_000_000)).StringFixed(2) + "M"
	case v.GreaterThanOrEqual(decimal.NewFromInt(1_000)):
		return sign + "$" + v.Div(decimal.NewFromInt(1_000)).StringFixed(1) + "K"
	default:
		return sign + "$" + v.StringFixed(2)
	}
}
