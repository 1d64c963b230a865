package tracker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Clock abstracts time for the sampling loops.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// loop runs tick, then sleeps a full interval, until the run flag clears.
// A slow tick delays the next one; ticks never overlap within a loop.
type loop struct {
	name     string
	interval time.Duration
	state    *State
	clock    Clock
	tick     func(ctx context.Context)
}

func (l *loop) run(ctx context.Context) error {
	logger := log.WithFields(log.Fields{"loop": l.name, "interval": l.interval})
	logger.Debug("Loop started")

	for l.state.IsRunning() {
		if l.state.IsPaused() {
			logger.Debug("Paused, skipping tick")
		} else {
			// in-flight requests finish or time out on their own
			l.tick(context.WithoutCancel(ctx))
		}

		select {
		case <-ctx.Done():
			logger.Debug("Loop stopped by context")
			return ctx.Err()
		case <-l.state.Done():
		case <-l.clock.After(l.interval):
		}
	}

	logger.Debug("Loop stopped")
	return nil
}
