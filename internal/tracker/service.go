package tracker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"workagent/internal/activity"
	"workagent/internal/config"
	"workagent/internal/models"
	"workagent/pkg/screenshot"
	"workagent/pkg/window"
)

// Reporter submits samples to the collection endpoint.
type Reporter interface {
	SendActivity(ctx context.Context, rec models.ActivityRecord) error
	UploadScreenshot(ctx context.Context, shot *models.ScreenshotBlob) error
}

// Journal stores delivery outcomes and tick errors locally.
type Journal interface {
	RecordDelivery(d *models.Delivery) error
	CreateErrorLog(errorLog *models.ErrorLog) error
}

type Service struct {
	config    *config.Config
	state     *State
	watermark *activity.Watermark
	reporter  Reporter
	detector  window.Detector
	capturer  screenshot.Capturer
	journal   Journal
	runID     string
	clock     Clock
	running   atomic.Bool
}

type Option func(*Service)

// WithDetector sets the foreground window inspector. Without one every
// activity record reports "Unknown".
func WithDetector(d window.Detector) Option {
	return func(s *Service) { s.detector = d }
}

func WithCapturer(c screenshot.Capturer) Option {
	return func(s *Service) { s.capturer = c }
}

func WithJournal(j Journal) Option {
	return func(s *Service) { s.journal = j }
}

func WithRunID(id string) Option {
	return func(s *Service) { s.runID = id }
}

func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

func NewService(cfg *config.Config, state *State, wm *activity.Watermark, rep Reporter, opts ...Option) *Service {
	s := &Service{
		config:    cfg,
		state:     state,
		watermark: wm,
		reporter:  rep,
		capturer:  &screenshot.Unavailable{},
		clock:     realClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the activity and screenshot loops until the shared state is
// stopped or ctx is cancelled. It blocks until both loops have returned.
func (s *Service) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("tracker is already running")
	}
	defer s.running.Store(false)

	log.WithFields(log.Fields{
		"activity_interval":   s.config.Tracker.ActivityInterval,
		"screenshot_interval": s.config.Tracker.ScreenshotInterval,
		"idle_threshold":      s.config.Tracker.IdleThreshold,
	}).Info("Starting tracker")

	loops := []*loop{
		{
			name:     models.KindActivity,
			interval: s.config.Tracker.ActivityInterval,
			state:    s.state,
			clock:    s.clock,
			tick:     s.trackActivity,
		},
		{
			name:     models.KindScreenshot,
			interval: s.config.Tracker.ScreenshotInterval,
			state:    s.state,
			clock:    s.clock,
			tick:     s.captureScreenshot,
		},
	}

	var wg sync.WaitGroup
	for _, l := range loops {
		wg.Add(1)
		go func(l *loop) {
			defer wg.Done()
			_ = l.run(ctx)
		}(l)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		log.Info("Tracker stopped by context")
		return err
	}

	log.Info("Tracker stopped")
	return nil
}

// Stop clears the shared run flag; loops exit after any in-flight tick.
func (s *Service) Stop() {
	s.state.Stop()
}

func (s *Service) IsRunning() bool {
	return s.running.Load()
}

func (s *Service) State() *State {
	return s.state
}

func (s *Service) recordDelivery(d *models.Delivery) {
	if s.journal == nil {
		return
	}
	d.RunID = s.runID
	if d.Timestamp.IsZero() {
		d.Timestamp = s.clock.Now()
	}
	if err := s.journal.RecordDelivery(d); err != nil {
		log.WithError(err).WithField("kind", d.Kind).Warn("Failed to journal delivery")
	}
}

func (s *Service) storeError(source string, err error) {
	if s.journal == nil {
		log.WithError(err).WithField("source", source).Warn("Tick failed")
		return
	}

	errorLog := &models.ErrorLog{
		RunID:     s.runID,
		Source:    source,
		Timestamp: s.clock.Now(),
		ErrorMsg:  err.Error(),
	}

	if dbErr := s.journal.CreateErrorLog(errorLog); dbErr != nil {
		log.WithError(dbErr).Warnf("Failed to store error in journal (original error: %v)", err)
	} else {
		log.WithError(err).WithField("source", source).Warn("Tick failed, error journaled")
	}
}

func elapsedSince(clock Clock, start time.Time) time.Duration {
	return clock.Now().Sub(start).Round(time.Millisecond)
}
