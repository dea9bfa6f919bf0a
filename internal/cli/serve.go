package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/visstudy/internal/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr  string
		dir   string
		redis string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the output tree and the generation API",
		Long: `Serve the output tree over HTTP so chart pages can load their spec and
dataset, together with a JSON API:

  GET    /api/experiments          list generated pages
  POST   /api/experiments          generate one experiment
  GET    /api/experiments/{slug}   parameters and dataset summary
  DELETE /api/experiments          remove generated files
  POST   /api/index                write index.html
  GET    /healthz, /metrics

Settings are read from VISSTUDY_* environment variables; flags override them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := server.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Server.Addr = addr
			}
			if flags.Changed("dir") {
				cfg.OutputDir = dir
			}
			if flags.Changed("minify") {
				cfg.Minify, _ = flags.GetBool("minify")
			}
			if flags.Changed("redis") {
				cfg.Cache.Enable = true
				cfg.Cache.RedisAddr = redis
			}

			ctx := cmd.Context()
			srv := server.New(ctx, *cfg, c.Logger)
			printInfo("Serving %s at %s", StyleValue.Render(cfg.OutputDir), StyleLink.Render(serverURL(cfg.Server.Addr)))
			return srv.Run(ctx)
		},
	}

	addDirFlag(cmd, &dir)
	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "listen address")
	cmd.Flags().Bool("minify", false, "minify generated pages")
	cmd.Flags().StringVar(&redis, "redis", "", "Redis address for the shared cache (enables caching)")

	return cmd
}

// serverURL turns a listen address into a browsable URL.
func serverURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
