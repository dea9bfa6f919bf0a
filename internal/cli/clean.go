package cli

import (
	"github.com/spf13/cobra"
)

// cleanCommand creates the clean command.
func (c *CLI) cleanCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove previously generated files",
		Long: `Remove every generated dataset, chart spec and page from the output root.

Only data/*.csv, data/*.json, specs/*.json and top-level *.html files are
removed. Directories are kept, and a missing output root is not an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := c.newRunner(dir, true, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			n, err := runner.RemoveAllGenerated(cmd.Context())
			if err != nil {
				return err
			}
			if n == 0 {
				printInfo("Nothing to clean in %s", dir)
				return nil
			}
			printSuccess("Removed %d generated file(s)", n)
			printDetail("Directory: %s", dir)
			return nil
		},
	}

	addDirFlag(cmd, &dir)
	return cmd
}
