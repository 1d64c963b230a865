package agent

import (
	"bytes"
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workagent/internal/config"
	"workagent/internal/daemon"
	"workagent/internal/database"
	"workagent/internal/models"
	"workagent/internal/reporter"
	"workagent/pkg/window"
)

type collector struct {
	mu          sync.Mutex
	status      int
	activities  int
	screenshots int
}

func (c *collector) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		defer c.mu.Unlock()
		switch r.URL.Path {
		case reporter.ActivityPath:
			c.activities++
		case reporter.ScreenshotPath:
			c.screenshots++
		}
		w.WriteHeader(c.status)
	})
}

func (c *collector) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activities, c.screenshots
}

type stubDetector struct{}

func (stubDetector) GetFocusedWindow() (*window.WindowInfo, error) {
	return &window.WindowInfo{AppName: "code", WindowTitle: "agent.go - workagent"}, nil
}
func (stubDetector) IsAvailable() bool        { return true }
func (stubDetector) GetDisplayServer() string { return "x11" }
func (stubDetector) Close() error             { return nil }

type stubCapturer struct{}

func (stubCapturer) Capture() (image.Image, error) { return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil }
func (stubCapturer) IsAvailable() bool             { return true }
func (stubCapturer) Name() string                  { return "stub" }
func (stubCapturer) Close() error                  { return nil }

type busyProbe struct{}

func (busyProbe) IdleTime() (time.Duration, error) { return 0, nil }

func testConfig(t *testing.T, url string) *config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.API.Key = "emp_key"
	cfg.API.URL = url
	cfg.Tracker.ActivityInterval = 20 * time.Millisecond
	cfg.Tracker.ScreenshotInterval = 40 * time.Millisecond
	cfg.Journal.Path = filepath.Join(dir, "journal.db")
	cfg.Daemon.PIDFile = filepath.Join(dir, "agent.pid")
	return cfg
}

func testOptions(out *bytes.Buffer) Options {
	return Options{
		NoTray:   true,
		Out:      out,
		Detector: stubDetector{},
		Capturer: stubCapturer{},
		Probe:    busyProbe{},
	}
}

func TestRunSendsSamplesUntilStopped(t *testing.T) {
	c := &collector{status: http.StatusOK}
	srv := httptest.NewServer(c.handler())
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	var out bytes.Buffer
	a, err := New(cfg, testOptions(&out))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		activities, screenshots := c.counts()
		return activities >= 3 && screenshots >= 1
	}, 5*time.Second, 10*time.Millisecond)

	a.State().Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	require.NoError(t, a.Close())

	assert.Contains(t, out.String(), "API key validated successfully!")
	assert.Contains(t, out.String(), "Agent stopped.")

	db, err := database.Connect(cfg.Journal.Path)
	require.NoError(t, err)
	defer db.Close()
	repo := database.NewRepository(db)

	validation, err := repo.GetLatestDelivery(models.KindValidation)
	require.NoError(t, err)
	require.NotNil(t, validation)
	assert.True(t, validation.Success)
	assert.Equal(t, a.RunID(), validation.RunID)

	latest, err := repo.GetLatestDelivery(models.KindActivity)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "agent.go - workagent", latest.AppName)
	assert.Equal(t, "working", latest.Status)

	_, err = os.Stat(cfg.Daemon.PIDFile)
	assert.True(t, os.IsNotExist(err), "PID file should be removed on Close")
}

func TestRunInvalidKey(t *testing.T) {
	c := &collector{status: http.StatusUnauthorized}
	srv := httptest.NewServer(c.handler())
	defer srv.Close()

	var out bytes.Buffer
	a, err := New(testConfig(t, srv.URL), testOptions(&out))
	require.NoError(t, err)
	defer a.Close()

	err = a.Run(context.Background())
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	activities, screenshots := c.counts()
	assert.Equal(t, 1, activities, "only the validation record is sent")
	assert.Zero(t, screenshots)
}

func TestValidateContinuesOnServerError(t *testing.T) {
	c := &collector{status: http.StatusInternalServerError}
	srv := httptest.NewServer(c.handler())
	defer srv.Close()

	var out bytes.Buffer
	a, err := New(testConfig(t, srv.URL), testOptions(&out))
	require.NoError(t, err)
	defer a.Close()

	assert.NoError(t, a.Validate(context.Background()))
	assert.NotContains(t, out.String(), "validated successfully")
}

func TestValidateContinuesOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var out bytes.Buffer
	a, err := New(testConfig(t, url), testOptions(&out))
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Validate(context.Background()))
	assert.Contains(t, out.String(), "WARNING: Could not validate API key")
	assert.Contains(t, out.String(), "Continuing anyway...")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	c := &collector{status: http.StatusOK}
	srv := httptest.NewServer(c.handler())
	defer srv.Close()

	var out bytes.Buffer
	a, err := New(testConfig(t, srv.URL), testOptions(&out))
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		activities, _ := c.counts()
		return activities >= 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, a.State().IsRunning())
}

func TestNewRefusesSecondAgent(t *testing.T) {
	cfg := testConfig(t, "https://collector.example.com")
	require.NoError(t, os.WriteFile(cfg.Daemon.PIDFile, []byte(strconv.Itoa(os.Getppid())), 0o644))

	_, err := New(cfg, Options{Out: &bytes.Buffer{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, daemon.ErrAlreadyRunning)
}

func TestNewWithoutJournal(t *testing.T) {
	cfg := testConfig(t, "https://collector.example.com")
	cfg.Journal.Enabled = false

	a, err := New(cfg, Options{Out: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Nil(t, a.repo)
	assert.Len(t, a.RunID(), 26)
	require.NoError(t, a.Close())

	_, err = os.Stat(cfg.Journal.Path)
	assert.True(t, os.IsNotExist(err))
}
