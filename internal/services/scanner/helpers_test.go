package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/whalewatch/internal/domain"
)

type statusEvent struct {
	msg  string
	kind domain.StatusKind
}

type recorder struct {
	mu       sync.Mutex
	progress []float64
	statuses []statusEvent
	ledgers  []domain.LedgerStats
}

func (r *recorder) OnProgress(p float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recorder) OnStatus(msg string, kind domain.StatusKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, statusEvent{msg, kind})
}

func (r *recorder) OnLedger(stats domain.LedgerStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ledgers = append(r.ledgers, stats)
}

func (r *recorder) progressValues() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.progress...)
}

func (r *recorder) statusKinds() []domain.StatusKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.StatusKind, 0, len(r.statuses))
	for _, s := range r.statuses {
		out = append(out, s.kind)
	}
	return out
}

func (r *recorder) lastStatus() statusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return statusEvent{}
	}
	return r.statuses[len(r.statuses)-1]
}

// stubFetcher serves canned snapshots. With release set every fetch blocks
// until it receives from release.
type stubFetcher struct {
	snaps   map[string]*domain.Snapshot
	delay   time.Duration
	release chan struct{}
	started chan string

	mu          sync.Mutex
	calls       []string
	inFlight    int
	maxInFlight int
}

func (f *stubFetcher) FetchSnapshot(ctx context.Context, address string) (*domain.Snapshot, error) {
	f.mu.Lock()
	f.calls = append(f.calls, address)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.started != nil {
		f.started <- address
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	return f.snaps[address], nil
}

func (f *stubFetcher) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *stubFetcher) peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

type stubRoster struct {
	whales []domain.Whale
	err    error
	block  chan struct{}
}

func (r *stubRoster) Fetch(ctx context.Context) ([]domain.Whale, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.whales, r.err
}

func strPtr(s string) *string { return &s }

func ethLong() *domain.Snapshot {
	return &domain.Snapshot{AssetPositions: []domain.AssetPosition{{
		Type: "oneWay",
		Position: domain.RawPosition{
			Coin:          "ETH",
			Szi:           "2",
			EntryPx:       strPtr("2000"),
			LiquidationPx: strPtr("1500"),
			PositionValue: "4000",
			UnrealizedPnl: "0",
			MarginUsed:    "400",
		},
	}}}
}

func whale(addr string, value int64) domain.Whale {
	return domain.Whale{Address: addr, AccountValue: decimal.NewFromInt(value)}
}

func whales(n int) []domain.Whale {
	out := make([]domain.Whale, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, whale(string(rune('A'+i)), int64(10_000_000-i)))
	}
	return out
}
