package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "pathscope %s (commit %s, built %s)\n",
				deps.Build.Version, deps.Build.Commit, deps.Build.Date)
			return err
		},
	}
}
