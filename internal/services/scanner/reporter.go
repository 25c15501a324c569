package scanner

import (
	"sync"

	"github.com/vadiminshakov/whalewatch/internal/domain"
)

// Reporter receives scan progress for the presentation layer.
// Implementations must be safe for concurrent use and must not block.
type Reporter interface {
	OnProgress(percent float64)
	OnStatus(message string, kind domain.StatusKind)
	OnLedger(stats domain.LedgerStats)
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) OnProgress(float64)                 {}
func (NopReporter) OnStatus(string, domain.StatusKind) {}
func (NopReporter) OnLedger(domain.LedgerStats)        {}

// Hub fans reports out to every subscriber.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]Reporter
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]Reporter)}
}

// Subscribe adds r and returns a function removing it again.
func (h *Hub) Subscribe(r Reporter) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = r
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *Hub) each(fn func(Reporter)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, r := range h.subs {
		fn(r)
	}
}

func (h *Hub) OnProgress(percent float64) {
	h.each(func(r Reporter) { r.OnProgress(percent) })
}

func (h *Hub) OnStatus(message string, kind domain.StatusKind) {
	h.each(func(r Reporter) { r.OnStatus(message, kind) })
}

func (h *Hub) OnLedger(stats domain.LedgerStats) {
	h.each(func(r Reporter) { r.OnLedger(stats) })
}
