package tracker

import (
	"sync"
	"sync/atomic"
)

// State holds the pause and run flags shared by both sampling loops, the
// tray and the status API. The zero value is not usable; call NewState.
type State struct {
	paused  atomic.Bool
	stopped atomic.Bool
	done    chan struct{}
	changed chan struct{}
	once    sync.Once
}

func NewState() *State {
	return &State{
		done:    make(chan struct{}),
		changed: make(chan struct{}, 1),
	}
}

func (s *State) IsPaused() bool {
	return s.paused.Load()
}

func (s *State) SetPaused(paused bool) {
	if s.paused.Swap(paused) != paused {
		s.notify()
	}
}

// TogglePause flips the pause flag and returns the new value.
func (s *State) TogglePause() bool {
	for {
		old := s.paused.Load()
		if s.paused.CompareAndSwap(old, !old) {
			s.notify()
			return !old
		}
	}
}

// PauseChanged receives a value after the pause flag changes. Changes made
// while nobody reads coalesce into one pending signal.
func (s *State) PauseChanged() <-chan struct{} {
	return s.changed
}

func (s *State) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *State) IsRunning() bool {
	return !s.stopped.Load()
}

// Stop clears the run flag and wakes every sleeping loop. Safe to call more than once.
func (s *State) Stop() {
	s.once.Do(func() {
		s.stopped.Store(true)
		close(s.done)
	})
}

// Done is closed once Stop has been called.
func (s *State) Done() <-chan struct{} {
	return s.done
}
