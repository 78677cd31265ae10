// Package cmd provides the libmvt command-line interface.
package cmd

import (
	"time"

	"libmvt/bootstrap"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags
var (
	outputJSON bool
	configFile string
	dataDir    string
	logLevel   string
	noColor    bool
	quiet      bool
)

// defaultTimeout bounds network and database work of a single command
const defaultTimeout = 5 * time.Minute

// appFs is the filesystem commands read acquisitions and backups from
var appFs afero.Fs = afero.NewOsFs()

// NewRootCmd creates the libmvt command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "libmvt",
		Short: "Check Android acquisitions and backups for indicators of compromise",
		Long: `libmvt checks AndroidQF acquisitions and Android backups against indicators
of compromise published for mobile surveillance tooling.

Indicators are read from the data directory (populated by download-iocs) and
from any extra files passed with --iocs. Results are stored in a local SQLite
database unless --no-store is given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory for indicators and results")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	rootCmd.AddCommand(newDownloadIOCsCmd())
	rootCmd.AddCommand(newCheckAndroidQFCmd())
	rootCmd.AddCommand(newCheckBackupCmd())
	rootCmd.AddCommand(newMatchCmd())
	rootCmd.AddCommand(newModulesCmd())
	rootCmd.AddCommand(newResultsCmd())

	return rootCmd
}

// initApp builds the shared components from the global flags
func initApp() (*bootstrap.App, error) {
	level := logLevel
	if quiet && level == "" {
		level = "error"
	}
	return bootstrap.NewApp(bootstrap.Options{
		ConfigPath: configFile,
		Overrides: map[string]any{
			"data_dir":  dataDir,
			"log_level": level,
		},
		Color: !noColor,
		Fs:    appFs,
	})
}

// warnIfStale suggests download-iocs when the last check is older than the
// configured interval
func warnIfStale(cmd *cobra.Command, app *bootstrap.App) {
	if quiet || outputJSON || app.Config.Updater.CheckInterval == 0 {
		return
	}
	updater, err := app.Updater()
	if err != nil {
		return
	}
	if updater.ShouldCheck(app.Config.Updater.CheckInterval) {
		warningColor.Fprintln(cmd.ErrOrStderr(), "Indicators may be outdated, run 'libmvt download-iocs' to refresh them")
	}
}
