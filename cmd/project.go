package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newProjectCmd(st *state) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "project [DIR]",
		Short: "Run the batch tool over a whole project",
		Long: `Run the configured whole-project tool (project.command, rustywind by
default) over DIR or the working directory. The tool is invoked as

  <command> [project.args...] <DIR> --write

Its error output is reported line by line.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := workspaceRoot()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if root, err = filepath.Abs(args[0]); err != nil {
					return err
				}
			}

			errOut := cmd.ErrOrStderr()
			shot, err := newOneShot(cmd.Context(), st, root, cliNotifier{w: errOut, color: colorEnabled(errOut)})
			if err != nil {
				return err
			}
			defer shot.Close()

			res, err := shot.svc.SortProject(cmd.Context())
			if verbose {
				for _, line := range res.Stdout {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the tool's standard output")
	return cmd
}
