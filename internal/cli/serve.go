package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/gitway/pkg/cache"
	"github.com/matzehuels/gitway/pkg/config"
	"github.com/matzehuels/gitway/pkg/feed"
	"github.com/matzehuels/gitway/pkg/layout"
	"github.com/matzehuels/gitway/pkg/observability"
	"github.com/matzehuels/gitway/pkg/pipeline"
	"github.com/matzehuels/gitway/pkg/server"
)

// serveOpts holds the command-line overrides for serve.
type serveOpts struct {
	listen    string   // listen address
	directory string   // repository directory
	upstream  string   // follow another gitway server instead of a repository
	redis     string   // shared render cache
	noFetch   bool     // never fetch the remote
	origins   []string // extra origins allowed on the websocket
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live diagram of a repository",
		Long: `Serve opens (or clones) the configured repository, fetches it periodically
and serves the swimlane diagram over HTTP. Browsers connected to /api/ws
receive every changed diagram as it is built.

With --upstream the snapshots are polled from another gitway server instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.listen, "listen", "l", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&opts.directory, "repo", "", "repository directory (overrides config)")
	cmd.Flags().StringVar(&opts.upstream, "upstream", "", "poll snapshots from this gitway server")
	cmd.Flags().StringVar(&opts.redis, "redis", "", "redis URL for a shared render cache")
	cmd.Flags().BoolVar(&opts.noFetch, "no-fetch", false, "do not fetch the remote periodically")
	cmd.Flags().StringSliceVar(&opts.origins, "allow-origin", nil, "extra origin allowed to open the websocket (repeatable)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.listen != "" {
		cfg.Listen = opts.listen
	}
	if opts.directory != "" {
		cfg.Directory = opts.directory
	}
	if opts.redis != "" {
		cfg.Redis = opts.redis
	}

	store, err := serverCache(ctx, cfg)
	if err != nil {
		return err
	}
	engine, err := layout.NewEngine(layout.Options{
		Width:      cfg.Width,
		LaneHeight: cfg.LaneHeight,
		Logger:     c.Logger,
	})
	if err != nil {
		return err
	}
	keyer := cache.NewScopedKeyer(nil, "repo:"+cfg.Repository+":")
	runner := pipeline.NewRunner(store, keyer, engine, c.Logger)
	defer runner.Close()

	counters := observability.NewCounters()
	observability.SetPipelineHooks(counters)
	observability.SetCacheHooks(counters)
	observability.SetFeedHooks(counters)
	defer observability.Reset()

	srvOpts := server.Options{
		Listen:   cfg.Listen,
		Runner:   runner,
		Window:   cfg.WindowDuration(),
		Counters: counters,
		Logger:   c.Logger,

		AllowedOrigins: append(cfg.Origins, opts.origins...),
	}

	g, ctx := errgroup.WithContext(ctx)

	var src feed.Source
	if opts.upstream != "" {
		hs, err := feed.NewHTTPSource(opts.upstream, nil)
		if err != nil {
			return err
		}
		hs.Window = cfg.WindowDuration()
		src = hs
	} else {
		spinner := newSpinnerWithContext(ctx, "Opening "+cfg.Repository)
		spinner.Start()
		repo, err := c.openRepository(ctx, cfg)
		if err != nil {
			spinner.StopWithError("Could not open repository")
			return err
		}
		spinner.Stop()

		src = &feed.GitSource{Repo: repo, Window: cfg.WindowDuration()}
		srvOpts.Source = repo
		srvOpts.WatchDir = repo.GitDir()
		if !opts.noFetch {
			g.Go(func() error {
				repo.FetchLoop(ctx, cfg.FetchEvery())
				return nil
			})
		}
	}

	var srv *server.Server
	poller := feed.NewPoller(src, cfg.PollEvery(), func(ctx context.Context, seq uint64, data []byte) error {
		return srv.Apply(ctx, seq, data)
	}, c.Logger)
	srvOpts.Poller = poller
	srv = server.New(srvOpts)

	printSuccess("Serving %s", StyleTitle.Render(src.Name()))
	printKeyValue("Listen", StyleLink.Render(listenURL(cfg.Listen)))
	printKeyValue("Window", cfg.Window)
	printKeyValue("Poll", cfg.PollEvery().String())
	if cfg.Redis != "" {
		printKeyValue("Cache", "redis")
	}

	g.Go(func() error {
		return poller.Run(ctx)
	})
	g.Go(func() error {
		return srv.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serverCache returns the shared Redis cache when configured and an
// in-process cache otherwise.
func serverCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.Redis == "" {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return rc, nil
}

// listenURL turns a listen address into a browsable URL.
func listenURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}
