package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"workagent/internal/agent"
	"workagent/internal/config"
	"workagent/version"
)

const appName = "workagent"

var (
	configPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   appName,
		Short: "Endpoint activity and screenshot reporting agent",
		Long: `workagent samples the focused window and keyboard/mouse idleness on a fixed
cadence, reports activity records and periodic screenshots to a remote
collection API, and exposes a tray icon to pause or stop reporting.

Running without a command is the same as "workagent run".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runAgent,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: config.json beside the binary, then ~/.config/workagent/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level (trace, debug, info, warn, error)")

	addRunFlags(rootCmd)

	rootCmd.AddCommand(runCmd, startCmd, stopCmd, statusCmd, validateCmd, historyCmd, clearCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

// loadConfig reads the file and environment layers, then the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		if _, err := log.ParseLevel(logLevel); err != nil {
			return nil, errors.Errorf("invalid --log-level %q", logLevel)
		}
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// exitCode reports err to the operator and maps it to the process exit
// status. A rejected API key waits for Enter when in is a terminal.
func exitCode(err error, in *os.File, out, errOut io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, agent.ErrInvalidAPIKey):
		fmt.Fprintln(errOut, "ERROR: Invalid API key. Please check your config.json file.")
		waitForEnter(in, out)
		return 1
	default:
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
}

func main() {
	os.Exit(exitCode(rootCmd.Execute(), os.Stdin, os.Stdout, os.Stderr))
}
