package cli

import (
	"path"

	"github.com/spf13/cobra"

	"github.com/matzehuels/visstudy/pkg/sink"
	"github.com/matzehuels/visstudy/pkg/study"
)

// initCommand creates the init command.
func (c *CLI) initCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the output directory tree",
		Long: `Create the output root with its data/ and specs/ subdirectories.

No other command creates directories, so a fresh checkout needs this once
(or generate --init).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := sink.Dir{Root: dir}
			if err := d.Init(); err != nil {
				return err
			}
			printSuccess("Initialized %s", dir)
			printFile(path.Join(dir, study.DataDir))
			printFile(path.Join(dir, study.SpecsDir))
			printNextStep("Generate the default experiment", "visstudy generate --dir "+dir)
			return nil
		},
	}

	addDirFlag(cmd, &dir)
	return cmd
}
