package cmd

import (
	"fmt"

	"libmvt/artifacts"

	"github.com/spf13/cobra"
)

// newModulesCmd creates the 'modules' command
func newModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List AndroidQF check modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := artifacts.AvailableModules()
			out := cmd.OutOrStdout()
			if outputJSON {
				return outputAsJSON(out, names)
			}
			headerColor.Fprintln(out, "MODULES")
			for _, name := range names {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}
}
