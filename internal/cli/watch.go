package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/matzehuels/gitway/pkg/config"
	"github.com/matzehuels/gitway/pkg/feed"
	"github.com/matzehuels/gitway/pkg/layout"
	"github.com/matzehuels/gitway/pkg/pipeline"
	"github.com/matzehuels/gitway/pkg/render/text"
)

// watchOpts holds the command-line flags for the watch command.
type watchOpts struct {
	url      string        // gitway server to poll
	repo     string        // repository directory to snapshot
	file     string        // snapshot file to re-read
	interval time.Duration // poll interval
	once     bool          // print one diagram and exit
}

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var opts watchOpts

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a diagram in the terminal",
		Long: `Watch polls a snapshot source and redraws the diagram whenever it changes.
The source is a gitway server (--url), a repository (--repo) or a snapshot
file (--file); without one the configured repository is used.

Lanes keep their rows for as long as watch runs. When stdout is not a
terminal every changed diagram is printed as plain text.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "gitway server to poll, e.g. http://localhost:8080")
	cmd.Flags().StringVar(&opts.repo, "repo", "", "repository directory")
	cmd.Flags().StringVar(&opts.file, "file", "", "snapshot file")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "poll interval (default from config, 10s)")
	cmd.Flags().BoolVar(&opts.once, "once", false, "print the diagram once and exit")
	cmd.MarkFlagsMutuallyExclusive("url", "repo", "file")

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, opts watchOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.interval <= 0 {
		opts.interval = cfg.PollEvery()
	}

	src, err := c.watchSource(ctx, cfg, opts)
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
	runner := pipeline.NewRunner(nil, nil, engine, c.Logger)
	defer runner.Close()

	if opts.once || !term.IsTerminal(int(os.Stdout.Fd())) {
		return c.watchPlain(ctx, src, runner, opts, os.Stdout)
	}
	return c.watchTUI(ctx, src, runner, opts)
}

// watchSource picks the snapshot source from the flags.
func (c *CLI) watchSource(ctx context.Context, cfg *config.Config, opts watchOpts) (feed.Source, error) {
	switch {
	case opts.url != "":
		return feed.NewHTTPSource(opts.url, nil)
	case opts.file != "":
		return &feed.FileSource{Path: opts.file}, nil
	}

	if opts.repo != "" {
		cfg.Directory = opts.repo
		cfg.Repository = ""
	}
	repo, err := c.openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &feed.GitSource{Repo: repo, Window: cfg.WindowDuration()}, nil
}

// watchPlain prints every changed diagram to w. With opts.once it stops
// after the first pass.
func (c *CLI) watchPlain(ctx context.Context, src feed.Source, runner *pipeline.Runner, opts watchOpts, w io.Writer) error {
	handle := func(ctx context.Context, seq uint64, data []byte) error {
		res, err := runner.Apply(ctx, seq, data)
		if errors.Is(err, pipeline.ErrStale) {
			return nil
		}
		if err != nil {
			return err
		}
		if res.Changed {
			fmt.Fprint(w, text.Render(res.Diagram, text.Options{Now: time.Now(), Plain: true}))
			fmt.Fprintln(w)
		}
		return nil
	}

	poller := feed.NewPoller(src, opts.interval, handle, c.Logger)
	if opts.once {
		return poller.Once(ctx)
	}
	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchTUI runs the interactive view until the user quits or ctx is done.
func (c *CLI) watchTUI(ctx context.Context, src feed.Source, runner *pipeline.Runner, opts watchOpts) error {
	var poller *feed.Poller
	model := NewWatchModel(src.Name(), func() { poller.Trigger() })
	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	src = reportingSource{Source: src, report: func(err error) { program.Send(passErrMsg{err: err}) }}
	poller = feed.NewPoller(src, opts.interval, func(ctx context.Context, seq uint64, data []byte) error {
		res, err := runner.Apply(ctx, seq, data)
		if errors.Is(err, pipeline.ErrStale) {
			return nil
		}
		if err != nil {
			program.Send(passErrMsg{err: err})
			return err
		}
		if res.Changed {
			program.Send(diagramMsg{res: res})
		}
		return nil
	}, c.Logger)

	// The alt screen owns the terminal until the program exits.
	c.Logger.SetOutput(io.Discard)

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = poller.Run(pollCtx)
	}()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// reportingSource forwards fetch errors to the view.
type reportingSource struct {
	feed.Source
	report func(error)
}

func (s reportingSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := s.Source.Fetch(ctx)
	if err != nil {
		s.report(err)
	}
	return data, err
}
