package tracker

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/pkg/errors"

	"workagent/internal/models"
	"workagent/pkg/window"
)

type fakeReporter struct {
	mu          sync.Mutex
	activities  []models.ActivityRecord
	shots       []*models.ScreenshotBlob
	activityErr error
	shotErr     error
}

func (f *fakeReporter) SendActivity(ctx context.Context, rec models.ActivityRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, rec)
	return f.activityErr
}

func (f *fakeReporter) UploadScreenshot(ctx context.Context, shot *models.ScreenshotBlob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shots = append(f.shots, shot)
	return f.shotErr
}

func (f *fakeReporter) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.activities), len(f.shots)
}

type fakeJournal struct {
	mu         sync.Mutex
	deliveries []*models.Delivery
	errorLogs  []*models.ErrorLog
	err        error
}

func (f *fakeJournal) RecordDelivery(d *models.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, d)
	return f.err
}

func (f *fakeJournal) CreateErrorLog(e *models.ErrorLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errorLogs = append(f.errorLogs, e)
	return f.err
}

type fakeDetector struct {
	title string
	err   error
}

func (f *fakeDetector) GetFocusedWindow() (*window.WindowInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &window.WindowInfo{AppName: "app", WindowTitle: f.title, DisplayServer: "x11"}, nil
}

func (f *fakeDetector) IsAvailable() bool        { return true }
func (f *fakeDetector) GetDisplayServer() string { return "x11" }
func (f *fakeDetector) Close() error             { return nil }

type fakeCapturer struct {
	err error
}

func (f *fakeCapturer) Capture() (image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for i := 0; i < 32; i++ {
		img.Set(i, i, color.RGBA{R: 200, A: 255})
	}
	return img, nil
}

func (f *fakeCapturer) IsAvailable() bool { return f.err == nil }
func (f *fakeCapturer) Name() string      { return "fake" }
func (f *fakeCapturer) Close() error      { return nil }

var errUnreachable = errors.New("dial tcp 203.0.113.7:443: connect: network is unreachable")

// virtualClock advances instantly on every After call and stops the state
// once the horizon is reached.
type virtualClock struct {
	mu      sync.Mutex
	now     time.Time
	horizon time.Time
	state   *State
	onTick  func(now time.Time)
}

func newVirtualClock(state *State, run time.Duration) *virtualClock {
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	return &virtualClock{now: start, horizon: start.Add(run), state: state}
}

func (c *virtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *virtualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	hook := c.onTick
	c.mu.Unlock()

	if hook != nil {
		hook(now)
	}
	if !now.Before(c.horizon) {
		c.state.Stop()
	}

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}
