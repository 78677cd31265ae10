package cmd

import (
	"fmt"

	"libmvt/core"

	"github.com/spf13/cobra"
)

// newMatchCmd creates the 'match' command
func newMatchCmd() *cobra.Command {
	var iocs []string

	cmd := &cobra.Command{
		Use:   "match <category> <text>",
		Short: "Check a single value against the indicators",
		Long: `Check one observed value against the indicators of a category.

Categories: domain, url, process, app, property

Examples:
  libmvt match domain "https://www.evil.example/landing"
  libmvt match process com.bad.daemon --iocs extra.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := core.ParseIndicatorCategory(args[0])
			if err != nil {
				return err
			}
			text := args[1]

			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.Shutdown()

			matcher, _, err := app.LoadIndicators(iocs...)
			if err != nil {
				return err
			}
			dets := matcher.MatchString(text, cat)

			out := cmd.OutOrStdout()
			if outputJSON {
				return outputAsJSON(out, detectionViews("", dets))
			}

			if len(dets) == 0 {
				successColor.Fprintf(out, "✓ No %s indicator matches %q\n", cat, text)
				return nil
			}
			for _, d := range dets {
				errorColor.Fprintf(out, "✗ %s\n", d.String())
			}
			fmt.Fprintf(out, "%d matches\n", len(dets))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&iocs, "iocs", "i", nil, "Extra indicator files or directories")

	return cmd
}
