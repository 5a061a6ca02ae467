package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gitway/pkg/pipeline"
)

// layoutOpts holds the command-line flags for the layout command.
type layoutOpts struct {
	output     string
	width      float64
	laneHeight float64
	noCache    bool
	refresh    bool
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var opts layoutOpts

	cmd := &cobra.Command{
		Use:   "layout <snapshot.json>",
		Short: "Compute the positioned diagram of a snapshot",
		Long: `Layout assigns lanes, places commits on the time axis and connects them,
writing the diagram (lanes, nodes and links with coordinates) as JSON.

Lanes are assigned afresh for every invocation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <input>.diagram.json)")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "width of the time axis in pixels (default 1600)")
	cmd.Flags().Float64Var(&opts.laneHeight, "lane-height", 0, "distance between lanes in pixels (default 60)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even if cached")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input string, opts layoutOpts) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := pipeline.Options{
		Width:      opts.width,
		LaneHeight: opts.laneHeight,
		Refresh:    opts.refresh,
		Logger:     c.Logger,
	}
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	prog := newProgress(loggerFromContext(ctx))
	res, hit, err := runner.LayoutWithCacheInfo(ctx, data, popts)
	if err != nil {
		return err
	}
	prog.done("Built diagram")

	out := opts.output
	if out == "" {
		out = outputPath("", input, pipeline.FormatJSON, true)
	}
	if err := os.WriteFile(out, res.DiagramJSON, 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	printSuccess("Layout complete")
	printStats(len(res.Diagram.Lanes), res.Stats.Nodes, droppedOf(res), hit)
	printFile(out)
	return nil
}

// droppedOf returns the number of dangling links and refs dropped by a pass.
func droppedOf(res *pipeline.Result) int {
	return res.Diagram.Stats.DanglingLinks + res.Diagram.Stats.DanglingRefs
}
