package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/visstudy/pkg/errors"
	"github.com/matzehuels/visstudy/pkg/page"
	"github.com/matzehuels/visstudy/pkg/study"
)

// indexOpts holds the command-line flags for the index command.
type indexOpts struct {
	dir         string
	title       string
	description string
	descFile    string
	force       bool
	minify      bool
}

// indexCommand creates the index command.
func (c *CLI) indexCommand() *cobra.Command {
	var opts indexOpts

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Write index.html linking every generated page",
		Long: `Write index.html into the output root with one link per generated chart page.

An existing index is never overwritten unless --force is given. The
description is rendered as Markdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.descFile != "" {
				b, err := os.ReadFile(opts.descFile)
				if err != nil {
					return errors.Wrap(errors.ErrCodeFileNotFound, err, "read description")
				}
				opts.description = string(b)
			}
			return c.runIndex(cmd.Context(), opts)
		},
	}

	addDirFlag(cmd, &opts.dir)
	cmd.Flags().StringVar(&opts.title, "title", page.DefaultIndexTitle, "page title")
	cmd.Flags().StringVar(&opts.description, "description", "", "Markdown description shown above the list")
	cmd.Flags().StringVar(&opts.descFile, "description-file", "", "read the description from a Markdown file")
	cmd.Flags().BoolVar(&opts.force, "force", false, "replace an existing index.html")
	cmd.Flags().BoolVar(&opts.minify, "minify", false, "minify the page")
	cmd.MarkFlagsMutuallyExclusive("description", "description-file")

	return cmd
}

func (c *CLI) runIndex(ctx context.Context, opts indexOpts) error {
	runner, err := c.newRunner(opts.dir, true, opts.minify)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	if opts.force {
		path, err := runner.Sink.Path(study.IndexFile)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeIO, err, "remove %s", study.IndexFile)
		}
	}

	pages, err := runner.Sink.Pages()
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		printWarning("No chart pages in %s", opts.dir)
	}

	path, err := runner.GenerateIndex(ctx, page.IndexOptions{
		Title:       opts.title,
		Description: opts.description,
	})
	if err != nil {
		if errors.Is(err, errors.ErrCodeAlreadyExists) {
			printNextStep("Replace it with", "visstudy index --force --dir "+opts.dir)
		}
		return err
	}

	printSuccess("Indexed %d page(s)", len(pages))
	printFile(path)
	return nil
}
