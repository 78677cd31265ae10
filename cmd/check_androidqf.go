package cmd

import (
	"context"
	"fmt"
	"time"

	"libmvt/artifacts"
	"libmvt/bootstrap"
	"libmvt/storage"
	"libmvt/util"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// androidqfReport is the JSON output of check-androidqf
type androidqfReport struct {
	RunID      string          `json:"run_id,omitempty"`
	Source     string          `json:"source"`
	Modules    []moduleReport  `json:"modules"`
	Detections []detectionView `json:"detections"`
	Errors     []string        `json:"errors,omitempty"`
}

type moduleReport struct {
	Name       string `json:"name"`
	Records    int    `json:"records"`
	Detections int    `json:"detections"`
}

// newCheckAndroidQFCmd creates the 'check-androidqf' command
func newCheckAndroidQFCmd() *cobra.Command {
	var (
		module  string
		iocs    []string
		noStore bool
	)

	cmd := &cobra.Command{
		Use:   "check-androidqf <dir>",
		Short: "Check an AndroidQF acquisition",
		Long: `Parse the artifacts of an AndroidQF acquisition directory and check them
against the loaded indicators.

Examples:
  libmvt check-androidqf ./acquisition
  libmvt check-androidqf ./acquisition --module processes
  libmvt check-androidqf ./acquisition --iocs pegasus.stix2 --no-store`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := util.ResolveInputPath(args[0])
			if err != nil {
				return err
			}
			if module != "" && !isKnownModule(module) {
				return fmt.Errorf("%w: %s", artifacts.ErrUnknownModule, module)
			}

			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.Shutdown()

			out := cmd.OutOrStdout()
			warnIfStale(cmd, app)

			matcher, loaded, err := app.LoadIndicators(iocs...)
			if err != nil {
				return err
			}
			if !outputJSON && !quiet {
				renderLoadResult(out, loaded)
			}

			var s *spinner.Spinner
			if !outputJSON && !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Writer = cmd.ErrOrStderr()
				s.Suffix = " Running modules..."
				s.Start()
			}

			runner := artifacts.NewRunner(app.Fs, dir, matcher, app.Sugar)
			results, runErr := runModules(runner, module)

			if s != nil {
				s.Stop()
			}

			if runErr != nil && len(results) == 0 {
				return fmt.Errorf("check failed: %w", runErr)
			}

			report := androidqfReport{Source: dir}
			if runErr != nil {
				report.Errors = append(report.Errors, runErr.Error())
			}

			if !noStore {
				ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
				defer cancel()
				runID, err := storeAndroidQF(ctx, app, dir, results)
				if err != nil {
					return err
				}
				report.RunID = runID
			}

			if outputJSON {
				report.Detections = []detectionView{}
				for _, res := range results {
					report.Modules = append(report.Modules, moduleReport{
						Name:       res.Module,
						Records:    len(res.Artifact.Results()),
						Detections: len(res.Detections),
					})
					report.Detections = append(report.Detections, detectionViews(res.Module, res.Detections)...)
				}
				return outputAsJSON(out, report)
			}

			renderModuleResults(out, results)
			if runErr != nil {
				warningColor.Fprintf(out, "Some modules failed: %v\n", runErr)
			}
			if report.RunID != "" {
				infoColor.Fprintf(out, "Results stored as run %s\n", report.RunID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&module, "module", "m", "", "Run a single module (see 'libmvt modules')")
	cmd.Flags().StringSliceVarP(&iocs, "iocs", "i", nil, "Extra indicator files or directories")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not store results in the database")

	return cmd
}

func runModules(runner *artifacts.Runner, module string) ([]*artifacts.Result, error) {
	if module == "" {
		return runner.RunAll()
	}
	res, err := runner.RunModule(module)
	if err != nil || res == nil {
		return nil, err
	}
	return []*artifacts.Result{res}, nil
}

// storeAndroidQF records the run and every module's detections
func storeAndroidQF(ctx context.Context, app *bootstrap.App, dir string, results []*artifacts.Result) (string, error) {
	store, err := app.Store()
	if err != nil {
		return "", err
	}
	runID, err := store.CreateRun(ctx, storage.RunAndroidQF, dir)
	if err != nil {
		return "", fmt.Errorf("failed to store run: %w", err)
	}
	for _, res := range results {
		if err := store.SaveDetections(ctx, runID, res.Module, res.Detections); err != nil {
			return "", fmt.Errorf("failed to store detections for %s: %w", res.Module, err)
		}
	}
	return runID, nil
}

func isKnownModule(name string) bool {
	for _, m := range artifacts.AvailableModules() {
		if m == name {
			return true
		}
	}
	return false
}
