// Package activity tracks the most recent user input and derives the
// working/idle status from it.
package activity

import (
	"sync"
	"time"

	"workagent/internal/models"
)

// Watermark holds the timestamp of the most recent user input.
// Touch may be called from any goroutine, including OS input callbacks.
type Watermark struct {
	mu   sync.RWMutex
	last time.Time
	now  func() time.Time
}

// New returns a watermark that starts as if input had just been seen.
func New() *Watermark {
	return NewWithClock(time.Now)
}

// NewWithClock is New with an injectable clock.
func NewWithClock(now func() time.Time) *Watermark {
	return &Watermark{
		last: now(),
		now:  now,
	}
}

// Touch records user input at the current time.
func (w *Watermark) Touch() {
	t := w.now()
	w.mu.Lock()
	if t.After(w.last) {
		w.last = t
	}
	w.mu.Unlock()
}

// Status reports working while no more than idleThreshold has passed since
// the last touch, idle otherwise.
func (w *Watermark) Status(idleThreshold time.Duration) models.Status {
	if w.IdleFor() <= idleThreshold {
		return models.StatusWorking
	}
	return models.StatusIdle
}

// IdleFor returns the time elapsed since the last touch.
func (w *Watermark) IdleFor() time.Duration {
	w.mu.RLock()
	last := w.last
	w.mu.RUnlock()

	idle := w.now().Sub(last)
	if idle < 0 {
		return 0
	}
	return idle
}

func (w *Watermark) LastActivity() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}
