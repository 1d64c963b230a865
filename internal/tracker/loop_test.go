package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runVirtualLoop(t *testing.T, interval, run time.Duration, setup func(*virtualClock, *State)) []time.Time {
	t.Helper()

	state := NewState()
	clock := newVirtualClock(state, run)
	if setup != nil {
		setup(clock, state)
	}

	var ticks []time.Time
	l := &loop{
		name:     "test",
		interval: interval,
		state:    state,
		clock:    clock,
		tick:     func(ctx context.Context) { ticks = append(ticks, clock.Now()) },
	}

	require.NoError(t, l.run(context.Background()))
	return ticks
}

func TestLoopCadenceOverTenMinutes(t *testing.T) {
	activity := runVirtualLoop(t, 30*time.Second, 600*time.Second, nil)
	screenshots := runVirtualLoop(t, 600*time.Second, 600*time.Second, nil)

	assert.Len(t, activity, 20)
	assert.Len(t, screenshots, 1)
}

func TestLoopTicksExactlyOneIntervalApart(t *testing.T) {
	ticks := runVirtualLoop(t, 30*time.Second, 5*time.Minute, nil)
	require.Len(t, ticks, 10)

	for i := 1; i < len(ticks); i++ {
		assert.Equal(t, 30*time.Second, ticks[i].Sub(ticks[i-1]))
	}
}

func TestLoopPauseAndResume(t *testing.T) {
	ticks := runVirtualLoop(t, 30*time.Second, 600*time.Second, func(c *virtualClock, s *State) {
		start := c.Now()
		c.onTick = func(now time.Time) {
			switch now.Sub(start) {
			case 90 * time.Second:
				s.SetPaused(true)
			case 180 * time.Second:
				s.SetPaused(false)
			}
		}
	})

	// 0, 30, 60 then 180 through 570
	assert.Len(t, ticks, 17)
	start := ticks[0]
	for _, tick := range ticks {
		offset := tick.Sub(start)
		assert.False(t, offset >= 90*time.Second && offset < 180*time.Second, "tick at %v while paused", offset)
	}
}

func TestLoopPausedFromStart(t *testing.T) {
	ticks := runVirtualLoop(t, 30*time.Second, 600*time.Second, func(c *virtualClock, s *State) {
		s.SetPaused(true)
	})
	assert.Empty(t, ticks)
}

func TestLoopExitsOnStopWithoutWaitingInterval(t *testing.T) {
	state := NewState()
	ticked := make(chan struct{}, 1)

	l := &loop{
		name:     "test",
		interval: time.Hour,
		state:    state,
		clock:    realClock{},
		tick:     func(ctx context.Context) { ticked <- struct{}{} },
	}

	done := make(chan error, 1)
	go func() { done <- l.run(context.Background()) }()

	<-ticked
	state.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after Stop")
	}
}

func TestLoopExitsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ticked := make(chan struct{}, 1)

	l := &loop{
		name:     "test",
		interval: time.Hour,
		state:    NewState(),
		clock:    realClock{},
		tick:     func(ctx context.Context) { ticked <- struct{}{} },
	}

	done := make(chan error, 1)
	go func() { done <- l.run(ctx) }()

	<-ticked
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after cancel")
	}
}

func TestLoopTickContextIsNotCancelledByStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state := NewState()
	var tickCtx context.Context

	l := &loop{
		name:     "test",
		interval: time.Hour,
		state:    state,
		clock:    realClock{},
		tick: func(c context.Context) {
			tickCtx = c
			cancel()
			state.Stop()
		},
	}

	_ = l.run(ctx)
	require.NotNil(t, tickCtx)
	assert.NoError(t, tickCtx.Err())
}

func TestStateToggleAndStop(t *testing.T) {
	s := NewState()
	assert.False(t, s.IsPaused())
	assert.True(t, s.IsRunning())

	assert.True(t, s.TogglePause())
	assert.True(t, s.IsPaused())
	assert.False(t, s.TogglePause())
	assert.False(t, s.IsPaused())

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done() not closed after Stop")
	}
}

func TestStatePauseChanged(t *testing.T) {
	s := NewState()

	pending := func() bool {
		select {
		case <-s.PauseChanged():
			return true
		default:
			return false
		}
	}

	assert.False(t, pending(), "no change yet")

	s.SetPaused(false)
	assert.False(t, pending(), "setting the same value is not a change")

	s.SetPaused(true)
	assert.True(t, pending())

	s.TogglePause()
	s.TogglePause()
	assert.True(t, pending(), "unread changes coalesce")
	assert.False(t, pending())
}
