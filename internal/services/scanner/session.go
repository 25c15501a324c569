package scanner

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vadiminshakov/whalewatch/internal/domain"
)

// Progress bands of a scan cycle: roster phase below 15, workers up to 95,
// finalization takes it to 100.
const (
	progressRosterStart = 5.0
	progressRosterDone  = 15.0
	progressWorkSpan    = 80.0
	progressWorkCeiling = 95.0
	progressFinal       = 100.0
)

// Session is the state of one scan cycle. It replaces process-wide flags:
// every scan gets a fresh one.
type Session struct {
	ID        string
	StartedAt time.Time

	mu       sync.Mutex
	scanning bool
	queue    []domain.Whale
	total    int

	gate   *PauseGate
	active atomic.Int64

	progressMu sync.Mutex
	done       int
}

// NewSession creates a running session over entries, in dispatch order.
func NewSession(id string, entries []domain.Whale) *Session {
	queue := make([]domain.Whale, len(entries))
	copy(queue, entries)

	return &Session{
		ID:        id,
		StartedAt: time.Now(),
		scanning:  true,
		queue:     queue,
		total:     len(entries),
		gate:      NewPauseGate(),
	}
}

// next dequeues the head entry. The scanning check and the dequeue share one
// critical section, so nothing is dispatched after Stop.
func (s *Session) next() (domain.Whale, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scanning || len(s.queue) == 0 {
		return domain.Whale{}, false
	}
	w := s.queue[0]
	s.queue[0] = domain.Whale{}
	s.queue = s.queue[1:]
	s.active.Add(1)

	return w, true
}

// Scanning reports whether the session still dispatches work.
func (s *Session) Scanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// Stop ends dispatching and releases paused workers so they can leave.
// In-flight fetches run to completion. It reports false if already stopped.
func (s *Session) Stop() bool {
	s.mu.Lock()
	was := s.scanning
	s.scanning = false
	s.mu.Unlock()

	s.gate.Resume()
	return was
}

// TogglePause flips the pause state while scanning. ok is false when the
// session is no longer scanning.
func (s *Session) TogglePause() (paused bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scanning {
		return false, false
	}
	if s.gate.Paused() {
		s.gate.Resume()
		return false, true
	}
	s.gate.Pause()
	return true, true
}

// Paused reports whether workers are held at the gate.
func (s *Session) Paused() bool {
	return s.gate.Paused()
}

// Active number of dequeued entries not yet finished.
func (s *Session) Active() int {
	return int(s.active.Load())
}

// Queued number of entries waiting for a worker.
func (s *Session) Queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Total number of entries the session started with.
func (s *Session) Total() int {
	return s.total
}

// Done number of finished entries, skipped ones included.
func (s *Session) Done() int {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	return s.done
}

// complete counts one finished entry and hands the new count to report while
// still holding the lock, which keeps reported progress in order.
func (s *Session) complete(report func(done, total int)) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	s.done++
	report(s.done, s.total)
}

// WorkProgress maps done/total into the worker band of overall progress.
func WorkProgress(done, total int) float64 {
	if total <= 0 {
		return progressWorkCeiling
	}
	pct := progressRosterDone + float64(done)/float64(total)*progressWorkSpan
	return math.Min(pct, progressWorkCeiling)
}
