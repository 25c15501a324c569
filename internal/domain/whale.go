// Package domain defines core data structures shared by the scan pipeline.
package domain

import (
	"github.com/shopspring/decimal"
)

// Window leaderboard performance window.
type Window string

const (
	WindowDay     Window = "day"
	WindowWeek    Window = "week"
	WindowMonth   Window = "month"
	WindowAllTime Window = "allTime"
)

// WindowPerformance trader results over one leaderboard window.
type WindowPerformance struct {
	Pnl decimal.Decimal `json:"pnl"`
	Roi decimal.Decimal `json:"roi"`
	Vlm decimal.Decimal `json:"vlm"`
}

// Whale is one roster entry: a tracked address with its headline account value.
// It is immutable for the duration of a scan cycle.
type Whale struct {
	Address            string                       `json:"address"`
	AccountValue       decimal.Decimal              `json:"accountValue"`
	DisplayName        string                       `json:"displayName,omitempty"`
	WindowPerformances map[Window]WindowPerformance `json:"windowPerformances,omitempty"`
}

// HasDisplayName reports whether the leaderboard knows a name for the address.
func (w Whale) HasDisplayName() bool {
	return w.DisplayName != ""
}

// PnlFor returns pnl for the given window, zero when unknown.
func (w Whale) PnlFor(window Window) decimal.Decimal {
	if perf, ok := w.WindowPerformances[window]; ok {
		return perf.Pnl
	}
	return decimal.Zero
}
