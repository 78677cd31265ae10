package cmd

import (
	"context"
	"errors"
	"fmt"

	"libmvt/core"
	"libmvt/storage"

	"github.com/spf13/cobra"
)

// newResultsCmd creates the 'results' command for stored runs
func newResultsCmd() *cobra.Command {
	resultsCmd := &cobra.Command{
		Use:     "results",
		Aliases: []string{"runs"},
		Short:   "Inspect stored check results",
		Long: `List, show and delete the runs stored by check-androidqf and check-backup.

Examples:
  libmvt results list
  libmvt results show 3f2c...
  libmvt results delete 3f2c...`,
	}

	resultsCmd.AddCommand(newResultsListCmd())
	resultsCmd.AddCommand(newResultsShowCmd())
	resultsCmd.AddCommand(newResultsDeleteCmd())

	return resultsCmd
}

func newResultsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored runs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.Shutdown()

			store, err := app.Store()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			runs, err := store.ListRuns(ctx)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if outputJSON {
				if runs == nil {
					runs = []*storage.Run{}
				}
				return outputAsJSON(cmd.OutOrStdout(), runs)
			}
			renderRunsTable(cmd.OutOrStdout(), runs)
			return nil
		},
	}
}

// runDetails is the JSON output of 'results show'
type runDetails struct {
	Run        *storage.Run              `json:"run"`
	Detections []storage.StoredDetection `json:"detections"`
	Messages   []core.SmsRecord          `json:"messages,omitempty"`
}

func newResultsShowCmd() *cobra.Command {
	var withMessages bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the detections of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.Shutdown()

			store, err := app.Store()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			run, err := store.GetRun(ctx, args[0])
			if errors.Is(err, storage.ErrRunNotFound) {
				return fmt.Errorf("run %s not found", args[0])
			}
			if err != nil {
				return err
			}
			dets, err := store.ListDetections(ctx, run.ID)
			if err != nil {
				return err
			}

			details := runDetails{Run: run, Detections: dets}
			if details.Detections == nil {
				details.Detections = []storage.StoredDetection{}
			}
			if withMessages && run.Kind == storage.RunBackup {
				if details.Messages, err = store.ListSmsRecords(ctx, run.ID); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return outputAsJSON(out, details)
			}
			renderRunDetails(out, run, dets)
			if withMessages {
				fmt.Fprintln(out)
				printSection(out, "Messages")
				for _, msg := range details.Messages {
					body, _ := msg.Body()
					fmt.Fprintf(out, "  %s %-8s %s\n", msg.ISODate(), msg.Direction(), body)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withMessages, "messages", false, "Include stored SMS records of backup runs")

	return cmd
}

func newResultsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <run-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored run and its results",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.Shutdown()

			store, err := app.Store()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			if err := store.DeleteRun(ctx, args[0]); err != nil {
				if errors.Is(err, storage.ErrRunNotFound) {
					return fmt.Errorf("run %s not found", args[0])
				}
				return err
			}

			if outputJSON {
				return outputAsJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
			}
			successColor.Fprintf(cmd.OutOrStdout(), "✓ Deleted run %s\n", args[0])
			return nil
		},
	}
}
