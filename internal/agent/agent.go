// Package agent assembles the watermark, scheduler, tray and optional
// services into one running agent.
package agent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"workagent/internal/activity"
	"workagent/internal/config"
	"workagent/internal/daemon"
	"workagent/internal/database"
	"workagent/internal/models"
	"workagent/internal/reporter"
	"workagent/internal/tracker"
	"workagent/internal/tray"
	"workagent/internal/web"
	"workagent/pkg/input"
	"workagent/pkg/screenshot"
	"workagent/pkg/window"
	"workagent/version"
)

// ErrInvalidAPIKey is returned when the collector rejects the key at startup.
var ErrInvalidAPIKey = errors.New("invalid API key")

// Options overrides platform backends and presentation. Zero values pick
// the platform defaults.
type Options struct {
	NoTray   bool
	Out      io.Writer
	Detector window.Detector
	Capturer screenshot.Capturer
	Probe    input.IdleProbe
	Client   *reporter.Client
}

type Agent struct {
	config    *config.Config
	opts      Options
	runID     string
	state     *tracker.State
	watermark *activity.Watermark
	client    *reporter.Client
	daemon    *daemon.Daemon
	db        *database.DB
	repo      *database.Repository
}

// New claims the PID file and opens the journal. Close releases both.
func New(cfg *config.Config, opts Options) (*Agent, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	a := &Agent{
		config:    cfg,
		opts:      opts,
		runID:     ulid.Make().String(),
		state:     tracker.NewState(),
		watermark: activity.New(),
		client:    opts.Client,
		daemon:    daemon.New(cfg.Daemon.PIDFile),
	}
	if a.client == nil {
		a.client = reporter.NewClient(cfg.APIBaseURL(), cfg.API.Key,
			reporter.WithUserAgent(version.UserAgent()))
	}

	if err := a.daemon.Acquire(); err != nil {
		return nil, err
	}

	if cfg.Journal.Enabled {
		if err := a.openJournal(); err != nil {
			_ = a.daemon.RemovePID()
			return nil, err
		}
	}

	return a, nil
}

func (a *Agent) openJournal() error {
	db, err := database.Connect(a.config.Journal.Path)
	if err != nil {
		return errors.Wrap(err, "failed to open journal")
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return errors.Wrap(err, "failed to initialize journal")
	}

	a.db = db
	a.repo = database.NewRepository(db)

	if a.config.Journal.Retention > 0 {
		purged, err := a.repo.DeleteOlderThan(time.Now().Add(-a.config.Journal.Retention))
		if err != nil {
			log.WithError(err).Warn("Failed to purge old journal rows")
		} else if purged > 0 {
			log.WithField("rows", purged).Debug("Purged old journal rows")
		}
	}
	return nil
}

func (a *Agent) RunID() string {
	return a.runID
}

func (a *Agent) State() *tracker.State {
	return a.state
}

// Validate sends the startup probe record. Only a 401 is fatal; any other
// failure is logged and the agent continues.
func (a *Agent) Validate(ctx context.Context) error {
	err := a.client.Validate(ctx)

	if a.repo != nil {
		d := &models.Delivery{
			RunID:      a.runID,
			Kind:       models.KindValidation,
			AppName:    reporter.ValidationAppName,
			Status:     models.StatusWorking.String(),
			StatusCode: reporter.StatusCode(err),
			Success:    err == nil,
			Timestamp:  time.Now(),
		}
		if err != nil {
			d.ErrorMsg = err.Error()
		}
		if jErr := a.repo.RecordDelivery(d); jErr != nil {
			log.WithError(jErr).Warn("Failed to journal validation")
		}
	}

	switch {
	case err == nil:
		fmt.Fprintln(a.opts.Out, "API key validated successfully!")
		return nil
	case errors.Is(err, reporter.ErrUnauthorized):
		return ErrInvalidAPIKey
	default:
		fmt.Fprintf(a.opts.Out, "WARNING: Could not validate API key: %v\n", err)
		fmt.Fprintln(a.opts.Out, "Continuing anyway...")
		return nil
	}
}

func (a *Agent) printBanner() {
	line := "=================================================="
	fmt.Fprintln(a.opts.Out, line)
	fmt.Fprintln(a.opts.Out, "Work Agent")
	fmt.Fprintln(a.opts.Out, line)
	fmt.Fprintf(a.opts.Out, "API URL: %s\n", a.config.APIBaseURL())
	fmt.Fprintf(a.opts.Out, "Activity Interval: %ds\n", a.config.GetActivityIntervalSeconds())
	fmt.Fprintf(a.opts.Out, "Screenshot Interval: %ds\n", int64(a.config.Tracker.ScreenshotInterval/time.Second))
	fmt.Fprintf(a.opts.Out, "Idle Threshold: %ds\n", a.config.GetIdleThresholdSeconds())
	fmt.Fprintln(a.opts.Out, line)
	fmt.Fprintln(a.opts.Out, "Starting monitoring...")
	if !a.opts.NoTray {
		fmt.Fprintln(a.opts.Out, "Look for the green icon in your system tray.")
	}
	fmt.Fprintln(a.opts.Out, line)
}

// Run validates the key, starts every component and blocks until the tray
// Exit item, ctx cancellation or State().Stop(). It must be called from
// the main goroutine when the tray is enabled.
func (a *Agent) Run(ctx context.Context) error {
	a.printBanner()

	if err := a.Validate(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-runCtx.Done():
			a.state.Stop()
		case <-a.state.Done():
			cancel()
		}
	}()

	var wg sync.WaitGroup

	listener := input.NewListener(a.opts.Probe, a.watermark.Touch)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = listener.Run(runCtx)
	}()

	svc := tracker.NewService(a.config, a.state, a.watermark, a.client, a.serviceOptions()...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := svc.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Tracker error")
		}
	}()

	var srv *web.Server
	if a.config.Web.Enabled {
		srv = a.startWeb()
	}

	if a.opts.NoTray {
		<-a.state.Done()
	} else {
		tray.NewController(a.state).Run()
		a.state.Stop()
	}

	cancel()
	wg.Wait()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Error shutting down status API")
		}
	}

	fmt.Fprintln(a.opts.Out, "Agent stopped.")
	return nil
}

func (a *Agent) serviceOptions() []tracker.Option {
	opts := []tracker.Option{tracker.WithRunID(a.runID)}
	if a.opts.Detector != nil {
		opts = append(opts, tracker.WithDetector(a.opts.Detector))
	}
	if a.opts.Capturer != nil {
		opts = append(opts, tracker.WithCapturer(a.opts.Capturer))
	}
	if a.repo != nil {
		opts = append(opts, tracker.WithJournal(a.repo))
	}
	return opts
}

func (a *Agent) startWeb() *web.Server {
	var store web.Store
	if a.repo != nil {
		store = a.repo
	}
	handler := web.NewHandler(a.config, a.state, a.watermark, store, a.runID)
	srv := web.NewServer(a.config, handler)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Status API error")
		}
	}()
	return srv
}

// Close releases platform backends, the journal and the PID file.
func (a *Agent) Close() error {
	if a.opts.Detector != nil {
		_ = a.opts.Detector.Close()
	}
	if a.opts.Capturer != nil {
		_ = a.opts.Capturer.Close()
	}
	if c, ok := a.opts.Probe.(io.Closer); ok {
		_ = c.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.WithError(err).Warn("Error closing journal")
		}
	}
	return a.daemon.RemovePID()
}
