// Package input turns OS idle-time readings into user-activity events.
package input

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultPoll is how often the OS idle counter is sampled.
const DefaultPoll = time.Second

// IdleProbe reports how long ago the OS last saw keyboard or mouse input.
type IdleProbe interface {
	IdleTime() (time.Duration, error)
}

// Listener samples an IdleProbe and calls onActivity whenever the probe
// shows input that happened after the previous sample.
type Listener struct {
	probe      IdleProbe
	poll       time.Duration
	onActivity func()

	lastIdle time.Duration
	primed   bool
}

func NewListener(probe IdleProbe, onActivity func()) *Listener {
	return &Listener{
		probe:      probe,
		poll:       DefaultPoll,
		onActivity: onActivity,
	}
}

// SetPoll changes the sampling period. Non-positive values are ignored.
func (l *Listener) SetPoll(d time.Duration) {
	if d > 0 {
		l.poll = d
	}
}

// Run samples until ctx is cancelled. Without a probe it returns at once,
// leaving the watermark untouched.
func (l *Listener) Run(ctx context.Context) error {
	if l.probe == nil {
		log.Warn("No input idle probe available, activity status will drift to idle")
		return nil
	}

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	failing := false
	for {
		if err := l.sample(); err != nil {
			if !failing {
				log.WithError(err).Warn("Input idle probe failed")
			}
			failing = true
		} else if failing {
			log.Info("Input idle probe recovered")
			failing = false
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Listener) sample() error {
	idle, err := l.probe.IdleTime()
	if err != nil {
		return err
	}

	if l.sawInput(idle) && l.onActivity != nil {
		l.onActivity()
	}
	l.lastIdle = idle
	l.primed = true
	return nil
}

// sawInput reports whether input happened since the previous sample: the
// idle counter was reset, or it is younger than one poll period.
func (l *Listener) sawInput(idle time.Duration) bool {
	if idle < l.poll {
		return true
	}
	return l.primed && idle < l.lastIdle
}
