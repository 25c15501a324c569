package scanner

import (
	"context"
	"sync"
)

// PauseGate blocks workers while paused. Resume releases every waiter at once.
type PauseGate struct {
	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

func NewPauseGate() *PauseGate {
	return &PauseGate{}
}

// Pause closes the gate. It reports false if the gate was already paused.
func (g *PauseGate) Pause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.paused {
		return false
	}
	g.paused = true
	g.resume = make(chan struct{})
	return true
}

// Resume opens the gate. It reports false if the gate was not paused.
func (g *PauseGate) Resume() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.paused {
		return false
	}
	g.paused = false
	close(g.resume)
	return true
}

// Paused reports the current state.
func (g *PauseGate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Wait returns immediately when open, otherwise blocks until Resume or ctx ends.
func (g *PauseGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	if !g.paused {
		g.mu.Unlock()
		return nil
	}
	ch := g.resume
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
