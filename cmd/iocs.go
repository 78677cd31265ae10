package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// newDownloadIOCsCmd creates the 'download-iocs' command
func newDownloadIOCsCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "download-iocs",
		Aliases: []string{"update-iocs"},
		Short:   "Download indicators of compromise",
		Long: `Download the indicator files listed in the public indicators index into the
data directory. Later checks load every file found there.

Examples:
  libmvt download-iocs
  libmvt download-iocs --data-dir /srv/libmvt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.Shutdown()

			updater, err := app.Updater()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !force && !updater.ShouldCheck(app.Config.Updater.CheckInterval) {
				if outputJSON {
					return outputAsJSON(out, map[string]interface{}{
						"skipped":      true,
						"last_check":   updater.LatestCheck(),
						"last_update":  updater.LatestUpdate(),
						"download_dir": updater.IndicatorsDir(),
					})
				}
				infoColor.Fprintf(out, "Indicators were checked %s, use --force to download again\n",
					formatTimeSince(updater.LatestCheck()))
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			var s *spinner.Spinner
			if !outputJSON && !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Writer = cmd.ErrOrStderr()
				s.Suffix = " Downloading indicators..."
				s.Start()
			}

			written, err := updater.Update(ctx)

			if s != nil {
				s.Stop()
			}

			if err != nil {
				return fmt.Errorf("failed to download indicators: %w", err)
			}

			if outputJSON {
				return outputAsJSON(out, map[string]interface{}{
					"skipped":      false,
					"files":        written,
					"download_dir": updater.IndicatorsDir(),
				})
			}

			if len(written) == 0 {
				warningColor.Fprintln(out, "No indicator files were downloaded")
				return nil
			}
			successColor.Fprintf(out, "✓ Downloaded %d indicator files\n", len(written))
			for _, path := range written {
				fmt.Fprintf(out, "  %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Download even if indicators were checked recently")

	return cmd
}
