package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"libmvt/backup"
	"libmvt/bootstrap"
	"libmvt/core"
	"libmvt/storage"
	"libmvt/util"

	"github.com/briandowns/spinner"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// backupPasswordEnv supplies the password without putting it on the command line
const backupPasswordEnv = "LIBMVT_BACKUP_PASSWORD"

// newCheckBackupCmd creates the 'check-backup' command
func newCheckBackupCmd() *cobra.Command {
	var (
		password string
		iocs     []string
		noStore  bool
	)

	cmd := &cobra.Command{
		Use:   "check-backup <file>",
		Short: "Check an Android backup (.ab) for malicious SMS links",
		Long: `Decrypt an Android backup, extract its SMS and MMS messages and check every
link they contain against the domain and URL indicators.

The password of an encrypted backup is taken from --password, then from the
` + backupPasswordEnv + ` environment variable, and is otherwise prompted for.

Examples:
  libmvt check-backup backup.ab
  libmvt check-backup backup.ab --password hunter2 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := util.ResolveInputPath(args[0])
			if err != nil {
				return err
			}

			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.Shutdown()

			data, err := afero.ReadFile(app.Fs, path)
			if err != nil {
				return fmt.Errorf("failed to read backup: %w", err)
			}

			header, _, err := backup.ReadHeader(data)
			if err != nil {
				return err
			}
			if header.Encrypted() && password == "" {
				password = os.Getenv(backupPasswordEnv)
			}
			if header.Encrypted() && password == "" {
				password, err = promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
			}

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
				s.Suffix = " Decrypting backup..."
				s.Start()
			}

			records, err := backup.NewParser(app.Sugar).Parse(data, password)

			if s != nil {
				s.Stop()
			}

			if err != nil {
				return describeBackupError(err)
			}

			dets := backup.CheckIndicators(records, matcher)
			summary := summarizeSms(records, dets)

			if !noStore {
				ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
				defer cancel()
				summary.RunID, err = storeBackup(ctx, app, path, records, dets)
				if err != nil {
					return err
				}
			}

			if outputJSON {
				return outputAsJSON(out, summary)
			}
			renderSmsSummary(out, summary, dets)
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Backup password")
	cmd.Flags().StringSliceVarP(&iocs, "iocs", "i", nil, "Extra indicator files or directories")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not store results in the database")

	return cmd
}

// describeBackupError turns a pipeline failure into a user-facing error,
// keeping the error kind reachable through errors.Is
func describeBackupError(err error) error {
	switch {
	case errors.Is(err, core.ErrInvalidPassword):
		return fmt.Errorf("wrong backup password: %w", err)
	case errors.Is(err, core.ErrFormat):
		return fmt.Errorf("not a valid Android backup: %w", err)
	case errors.Is(err, core.ErrDecompression):
		return fmt.Errorf("backup payload is corrupt: %w", err)
	default:
		return fmt.Errorf("failed to process backup: %w", err)
	}
}

func storeBackup(ctx context.Context, app *bootstrap.App, path string, records []core.SmsRecord, dets []core.Detection) (string, error) {
	store, err := app.Store()
	if err != nil {
		return "", err
	}
	runID, err := store.CreateRun(ctx, storage.RunBackup, path)
	if err != nil {
		return "", fmt.Errorf("failed to store run: %w", err)
	}
	if err := store.SaveSmsRecords(ctx, runID, records); err != nil {
		return "", fmt.Errorf("failed to store messages: %w", err)
	}
	if err := store.SaveDetections(ctx, runID, "sms", dets); err != nil {
		return "", fmt.Errorf("failed to store detections: %w", err)
	}
	return runID, nil
}
