package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"workagent/internal/agent"
	"workagent/internal/config"
	"workagent/internal/daemon"
	"workagent/internal/logging"
	"workagent/pkg/detector"
)

type runFlags struct {
	noTray             bool
	web                bool
	webPort            int
	activityInterval   time.Duration
	screenshotInterval time.Duration
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent in the foreground",
	Args:  cobra.NoArgs,
	RunE:  runAgent,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the agent in the background",
	Args:  cobra.NoArgs,
	RunE:  startAgent,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a background agent",
	Args:  cobra.NoArgs,
	RunE:  stopAgent,
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&runOpts.noTray, "no-tray", false, "run without the system tray icon")
	cmd.Flags().BoolVar(&runOpts.web, "web", false, "serve the local status API")
	cmd.Flags().IntVar(&runOpts.webPort, "web-port", 0, "status API port")
	cmd.Flags().DurationVar(&runOpts.activityInterval, "activity-interval", 0, "activity reporting interval (e.g. 30s)")
	cmd.Flags().DurationVar(&runOpts.screenshotInterval, "screenshot-interval", 0, "screenshot upload interval (e.g. 10m)")
}

func init() {
	addRunFlags(runCmd)
	addRunFlags(startCmd)
}

// applyRunFlags layers explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, f runFlags) error {
	flags := cmd.Flags()
	if flags.Changed("activity-interval") {
		if err := cfg.SetActivityInterval(f.activityInterval); err != nil {
			return err
		}
	}
	if flags.Changed("screenshot-interval") {
		if err := cfg.SetScreenshotInterval(f.screenshotInterval); err != nil {
			return err
		}
	}
	if flags.Changed("web") {
		cfg.Web.Enabled = f.web
	}
	if flags.Changed("web-port") {
		if err := cfg.SetWebPort(f.webPort); err != nil {
			return err
		}
	}
	return nil
}

// forwardedArgs rebuilds the command line a background child runs with.
func forwardedArgs(cmd *cobra.Command) []string {
	args := []string{"run"}
	if configPath != "" {
		if abs, err := filepath.Abs(configPath); err == nil {
			args = append(args, "--config", abs)
		} else {
			args = append(args, "--config", configPath)
		}
	}
	if logLevel != "" {
		args = append(args, "--log-level", logLevel)
	}

	flags := cmd.Flags()
	for _, name := range []string{"no-tray", "web", "web-port", "activity-interval", "screenshot-interval"} {
		if flags.Changed(name) {
			args = append(args, "--"+name+"="+flags.Lookup(name).Value.String())
		}
	}
	return args
}

// headless reports whether the tray must be skipped because no graphical
// session is reachable.
func headless(goos, displayServer string) bool {
	return goos == "linux" && displayServer == "unknown"
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg, runOpts); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	closer, err := logging.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	noTray := runOpts.noTray
	if !noTray && headless(runtime.GOOS, detector.DetectDisplayServer()) {
		log.Warn("No display found, running without tray icon")
		noTray = true
	}

	opts := agent.Options{
		NoTray:   noTray,
		Out:      cmd.OutOrStdout(),
		Capturer: detector.NewCapturer(),
		Probe:    detector.NewIdleProbe(),
	}
	if det, err := detector.New(); err != nil {
		log.WithError(err).Warn("No window detector available, window titles will be reported as Unknown")
	} else {
		log.WithField("backend", det.GetDisplayServer()).Info("Window detector initialized")
		opts.Detector = det
	}
	log.WithField("backend", opts.Capturer.Name()).Info("Screenshot capturer initialized")

	a, err := agent.New(cfg, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if daemon.IsChild() {
		log.WithField("pid", os.Getpid()).Info("Running as background agent")
	}
	log.WithField("run_id", a.RunID()).Debug(cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Run(ctx)
}

// waitForEnter blocks on stdin only when a user can answer.
func waitForEnter(in *os.File, out io.Writer) {
	if !term.IsTerminal(int(in.Fd())) {
		return
	}
	fmt.Fprint(out, "Press Enter to exit...")
	_, _ = bufio.NewReader(in).ReadString('\n')
}

func startAgent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg, runOpts); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check agent status")
	}
	if running {
		return errors.Errorf("agent is already running (PID: %d)", pid)
	}

	// A configured log file is written by the child itself; otherwise its
	// stdout is captured.
	logFile, capture := cfg.Log.File, ""
	if logFile == "" {
		logFile = filepath.Join(os.TempDir(), appName+".log")
		capture = logFile
	}

	pid, err = daemon.Spawn(forwardedArgs(cmd), capture)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Agent started (PID: %d)\n", pid)
	if cfg.Web.Enabled {
		fmt.Fprintf(out, "Status API available at: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	}
	fmt.Fprintf(out, "Logs: %s\n", logFile)
	return nil
}

func stopAgent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check agent status")
	}

	out := cmd.OutOrStdout()
	if !running {
		fmt.Fprintln(out, "Agent is not running")
		return nil
	}

	fmt.Fprintf(out, "Stopping agent (PID: %d)...\n", pid)
	if err := dm.Stop(); err != nil {
		return errors.Wrap(err, "failed to stop agent")
	}
	fmt.Fprintln(out, "Agent stopped successfully")
	return nil
}
