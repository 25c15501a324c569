package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPauseGate_OpenDoesNotBlock(t *testing.T) {
	g := NewPauseGate()
	require.NoError(t, g.Wait(context.Background()))
	assert.False(t, g.Resume())
}

func TestPauseGate_BlocksUntilResume(t *testing.T) {
	g := NewPauseGate()
	require.True(t, g.Pause())
	require.False(t, g.Pause())

	released := make(chan error, 1)
	go func() { released <- g.Wait(context.Background()) }()

	select {
	case <-released:
		t.Fatal("wait returned while paused")
	case <-time.After(50 * time.Millisecond):
	}

	require.True(t, g.Resume())
	select {
	case err := <-released:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait did not return after resume")
	}
}

func TestPauseGate_ContextCancel(t *testing.T) {
	g := NewPauseGate()
	g.Pause()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, g.Wait(ctx), context.DeadlineExceeded)
	assert.True(t, g.Paused())
}
