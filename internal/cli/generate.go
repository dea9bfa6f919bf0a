package cli

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/visstudy/pkg/errors"
	"github.com/matzehuels/visstudy/pkg/observability"
	"github.com/matzehuels/visstudy/pkg/page"
	"github.com/matzehuels/visstudy/pkg/pipeline"
	"github.com/matzehuels/visstudy/pkg/study"
)

// requestFlags are the flags that describe a single experiment. They cannot
// be combined with --plan.
var requestFlags = []string{"name", "points", "categories", "attributes", "width", "height", "format", "renderer"}

// generateOpts holds the command-line flags for the generate command.
type generateOpts struct {
	dir       string
	plan      string
	req       study.Request
	format    string
	renderer  string
	seed      uint64
	clean     bool
	index     bool
	init      bool
	minify    bool
	noCache   bool
	workers   int
	selectExp bool
	title     string
}

// generateCommand creates the generate command.
//
// Without flags it cleans the output tree and writes the default experiment
// (exp_300k_canvas_csv: 3000 points, 14 categories, 5 attributes, 500x500,
// CSV, canvas).
func (c *CLI) generateCommand() *cobra.Command {
	def := study.DefaultRequest()
	opts := generateOpts{
		req:      def,
		format:   def.DataFormat.String(),
		renderer: def.Renderer.String(),
		clean:    true,
		workers:  1,
	}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate experiment datasets, chart specs and pages",
		Long: `Generate the artifacts of one experiment, or of every experiment in a plan.

Each experiment writes three files below the output root:

  data/<slug>_data.<csv|json>   random dataset (overwritten)
  specs/<slug>_spec.json        Vega chart specification (overwritten)
  <slug>.html                   page loading both (never overwritten)

A plan is a TOML file with a [defaults] table and one [[experiment]] table
per experiment. Previously generated files are removed first unless
--clean=false is given.`,
		Example: `  visstudy generate --init
  visstudy generate --name exp_1m_svg_json --points 1000000 --format json --renderer svg
  visstudy generate --plan study.toml --index --workers 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.plan != "" {
				for _, name := range requestFlags {
					if cmd.Flags().Changed(name) {
						return errors.New(errors.ErrCodeInvalidInput, "--%s cannot be combined with --plan", name)
					}
				}
			}
			reqs, plan, err := opts.requests()
			if err != nil {
				return err
			}
			if opts.selectExp {
				if reqs, err = selectExperiments(reqs); err != nil {
					return err
				}
				if len(reqs) == 0 {
					printInfo("No experiments selected")
					return nil
				}
			}
			return c.runGenerate(cmd.Context(), reqs, plan, opts)
		},
	}

	addDirFlag(cmd, &opts.dir)
	cmd.Flags().StringVarP(&opts.plan, "plan", "p", "", "TOML study plan with one or more experiments")

	// Request flags
	cmd.Flags().StringVarP(&opts.req.ExperimentName, "name", "n", def.ExperimentName, "experiment name")
	cmd.Flags().IntVar(&opts.req.NumPoints, "points", def.NumPoints, "number of data points")
	cmd.Flags().IntVar(&opts.req.NumCategories, "categories", def.NumCategories, "number of categories")
	cmd.Flags().IntVar(&opts.req.NumAttributes, "attributes", def.NumAttributes, "number of extra numeric attributes")
	cmd.Flags().IntVar(&opts.req.Width, "width", def.Width, "chart width in pixels")
	cmd.Flags().IntVar(&opts.req.Height, "height", def.Height, "chart height in pixels")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "dataset format: csv, json")
	cmd.Flags().StringVarP(&opts.renderer, "renderer", "r", opts.renderer, "chart renderer: canvas, svg")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed for reproducible datasets (0 = random)")

	// Run flags
	cmd.Flags().BoolVar(&opts.clean, "clean", opts.clean, "remove previously generated files first")
	cmd.Flags().BoolVar(&opts.index, "index", false, "write index.html after generating")
	cmd.Flags().StringVar(&opts.title, "title", "", "index page title (defaults to the plan title)")
	cmd.Flags().BoolVar(&opts.init, "init", false, "create the output directories if missing")
	cmd.Flags().BoolVar(&opts.minify, "minify", false, "minify generated pages")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "experiments generated concurrently")
	cmd.Flags().BoolVarP(&opts.selectExp, "select", "s", false, "interactively pick experiments from the plan")

	return cmd
}

// requests resolves the flags into the requests to generate. With --plan the
// plan is returned as well.
func (o *generateOpts) requests() ([]study.Request, *study.Plan, error) {
	if o.plan != "" {
		plan, err := study.LoadPlan(o.plan)
		if err != nil {
			return nil, nil, err
		}
		reqs, err := plan.Requests()
		if err != nil {
			return nil, nil, err
		}
		for i := range reqs {
			if reqs[i].Seed == 0 {
				reqs[i].Seed = o.seed
			}
		}
		return reqs, plan, nil
	}

	if o.selectExp {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "--select needs a --plan to pick from")
	}

	req := o.req
	var err error
	if req.DataFormat, err = study.ParseDataFormat(o.format); err != nil {
		return nil, nil, err
	}
	if req.Renderer, err = study.ParseRenderer(o.renderer); err != nil {
		return nil, nil, err
	}
	req.Seed = o.seed
	return []study.Request{req}, nil, nil
}

// selectExperiments shows the interactive picker.
func selectExperiments(reqs []study.Request) ([]study.Request, error) {
	final, err := tea.NewProgram(NewExperimentListModel(reqs)).Run()
	if err != nil {
		return nil, fmt.Errorf("experiment picker: %w", err)
	}
	return final.(ExperimentListModel).Selected(), nil
}

// runGenerate runs the batch and prints what was written.
func (c *CLI) runGenerate(ctx context.Context, reqs []study.Request, plan *study.Plan, opts generateOpts) error {
	runner, err := c.newRunner(opts.dir, opts.noCache, opts.minify)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	if opts.init {
		if err := runner.Sink.Init(); err != nil {
			return err
		}
	}
	if !runner.Sink.Ready() {
		printWarning("%s is missing data/ or specs/", opts.dir)
		printNextStep("Create them with", "visstudy init --dir "+opts.dir)
		return errors.New(errors.ErrCodeIO, "output tree %s is not initialized", opts.dir)
	}

	batch := pipeline.BatchOptions{
		Clean:   opts.clean,
		Index:   opts.index,
		Workers: opts.workers,
		IndexOptions: page.IndexOptions{
			Title: opts.title,
		},
	}
	if plan != nil {
		printInfo("Plan %s", StyleHighlight.Render(opts.plan))
		fmt.Println(planTable(reqs))
		if batch.IndexOptions.Title == "" {
			batch.IndexOptions.Title = plan.Title
		}
		batch.IndexOptions.Description = plan.Description
	}

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Generating %d experiment(s)...", len(reqs)))
	spinner.Start()

	observability.SetPipelineHooks(&progressHooks{spinner: spinner, total: len(reqs)})
	defer observability.Reset()

	out, err := runner.RunBatch(ctx, reqs, batch)
	if err != nil {
		spinner.StopWithError("Generation failed")
		if out != nil {
			printCharts(out.Charts)
		}
		return err
	}
	spinner.Stop()

	if out.Removed > 0 {
		printDetail("Removed %d previously generated files", out.Removed)
	}
	printCharts(out.Charts)
	if out.IndexPath != "" {
		printSuccess("Index")
		printFile(out.IndexPath)
	}
	prog.done(fmt.Sprintf("Generated %d experiment(s) in %s", len(out.Charts), opts.dir))

	printNewline()
	printNextStep("Preview", "visstudy serve --dir "+opts.dir)
	return nil
}

// printCharts prints every completed chart; nil entries were never run.
func printCharts(charts []*pipeline.Result) {
	for _, res := range charts {
		if res == nil {
			continue
		}
		printSuccess("%s", StyleHighlight.Render(res.Request.ExperimentName))
		printFile(res.DataPath)
		printFile(res.SpecPath)
		printFile(res.PagePath)
		printStats(res.Stats.Rows, res.CacheInfo.SpecHit, res.CacheInfo.PageHit)
	}
}

// progressHooks reports finished charts on the spinner.
type progressHooks struct {
	observability.NoopPipelineHooks
	spinner *Spinner
	total   int
	done    atomic.Int32
}

func (h *progressHooks) OnChartComplete(_ context.Context, _, _ string, _ int, _ time.Duration, err error) {
	if err != nil {
		return
	}
	n := h.done.Add(1)
	h.spinner.SetMessage(fmt.Sprintf("Generated %d/%d experiment(s)...", n, h.total))
}
