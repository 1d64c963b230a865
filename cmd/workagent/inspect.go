package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"workagent/internal/config"
	"workagent/internal/daemon"
	"workagent/internal/database"
	"workagent/internal/reporter"
	"workagent/pkg/detector"
	"workagent/pkg/utils"
	"workagent/version"
)

var (
	historyJSON bool
	clearYes    bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent status, current window and recent deliveries",
	Args:  cobra.NoArgs,
	RunE:  showStatus,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the API key against the collector",
	Args:  cobra.NoArgs,
	RunE:  validateKey,
}

var historyCmd = &cobra.Command{
	Use:   "history [period]",
	Short: "Summarize journaled deliveries (period: day, week, month)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  showHistory,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all rows from the delivery journal",
	Args:  cobra.NoArgs,
	RunE:  clearJournal,
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print JSON instead of text")
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
}

func openJournal(cfg *config.Config) (*database.DB, *database.Repository, error) {
	if !cfg.Journal.Enabled {
		return nil, nil, errors.New("delivery journal is disabled (journal_enabled: false)")
	}
	db, err := database.Connect(cfg.Journal.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, database.NewRepository(db), nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check agent status")
	}
	if running {
		fmt.Fprintf(out, "Status: Running (PID: %d)\n", pid)
	} else {
		fmt.Fprintln(out, "Status: Not running")
	}
	fmt.Fprintf(out, "API URL: %s\n", cfg.APIBaseURL())
	fmt.Fprintf(out, "API Key: %s\n", cfg.MaskedAPIKey())
	fmt.Fprintf(out, "Intervals: activity %s, screenshot %s, idle after %s\n",
		utils.FormatRoundedUnit(cfg.GetActivityIntervalSeconds()),
		utils.FormatRoundedUnit(int64(cfg.Tracker.ScreenshotInterval/time.Second)),
		utils.FormatRoundedUnit(cfg.GetIdleThresholdSeconds()))

	if det, err := detector.New(); err != nil {
		fmt.Fprintf(out, "\nCould not detect current window: %v\n", err)
	} else {
		if s, ok := det.(interface{ GetStatus() string }); ok {
			fmt.Fprintf(out, "\n%s", s.GetStatus())
		}
		if info, err := det.GetFocusedWindow(); err == nil && info != nil {
			fmt.Fprintln(out, "Current Window:")
			fmt.Fprintf(out, "  App: %s\n", info.AppName)
			fmt.Fprintf(out, "  Title: %s\n", info.WindowTitle)
			fmt.Fprintf(out, "  Display: %s\n", info.DisplayServer)
		}
		det.Close()
	}

	capturer := detector.NewCapturer()
	fmt.Fprintf(out, "Screenshot backend: %s\n", capturer.Name())
	capturer.Close()

	if probe := detector.NewIdleProbe(); probe == nil {
		fmt.Fprintln(out, "Idle source: none")
	} else {
		if idle, err := probe.IdleTime(); err == nil {
			fmt.Fprintf(out, "Idle for: %s\n", utils.FormatRoundedUnit(int64(idle/time.Second)))
		}
		if c, ok := probe.(io.Closer); ok {
			c.Close()
		}
	}

	if !cfg.Journal.Enabled {
		return nil
	}
	db, repo, err := openJournal(cfg)
	if err != nil {
		fmt.Fprintf(out, "\nCould not open journal: %v\n", err)
		return nil
	}
	defer db.Close()

	recent, err := repo.GetRecentDeliveries(5)
	if err != nil || len(recent) == 0 {
		return nil
	}
	now := time.Now()
	fmt.Fprintln(out, "\nRecent Deliveries:")
	for _, d := range recent {
		fmt.Fprintf(out, "  %s\n", reporter.FormatDeliveryLine(d, now))
	}
	return nil
}

func validateKey(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	client := reporter.NewClient(cfg.APIBaseURL(), cfg.API.Key,
		reporter.WithUserAgent(version.UserAgent()))

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	start := time.Now()
	err = client.Validate(ctx)
	took := time.Since(start).Round(time.Millisecond)

	out := cmd.OutOrStdout()
	switch {
	case err == nil:
		fmt.Fprintf(out, "API key validated successfully! (%s)\n", took)
		return nil
	case errors.Is(err, reporter.ErrUnauthorized):
		return errors.New("invalid API key, please check your config.json file")
	default:
		return errors.Wrap(err, "could not validate API key")
	}
}

func showHistory(cmd *cobra.Command, args []string) error {
	periodType := "day"
	if len(args) > 0 {
		periodType = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, repo, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	history, err := reporter.NewHistory(repo).Generate(periodType)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		s, err := reporter.FormatHistoryJSON(history)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, s)
		return nil
	}
	fmt.Fprintln(out, reporter.FormatHistoryText(history))
	return nil
}

func clearJournal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !clearYes && !confirm(cmd.InOrStdin(), out, "This will delete all journaled deliveries. Are you sure? (yes/no): ") {
		fmt.Fprintln(out, "Operation cancelled")
		return nil
	}

	db, repo, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.Clear(); err != nil {
		return errors.Wrap(err, "failed to clear journal")
	}

	fmt.Fprintln(out, "Journal cleared successfully")
	return nil
}

// confirm accepts "yes" or "y" in any case.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "yes", "y":
		return true
	}
	return false
}
