package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gitway/pkg/pipeline"
	"github.com/matzehuels/gitway/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string   // output file (single format) or base path (multiple)
	formats    []string // svg, dot, json, nodelink-svg, text, png, pdf
	width      float64  // width of the time axis in pixels
	laneHeight float64  // distance between lanes in pixels
	at         string   // reference time for lane ages
	noCache    bool     // disable caching
	refresh    bool     // recompute even if cached
}

// renderCommand creates the render command.
//
// Default settings:
//   - format: svg
//   - width: 1600px, lane height: 60px
//   - lane ages relative to now
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <snapshot.json>",
		Short: "Render a snapshot to SVG, DOT, JSON, PNG, PDF or text",
		Long: `Render lays out a snapshot and writes it in one or more formats:

  svg           swimlane diagram with lane labels and ages
  dot           Graphviz topology of the diagram
  nodelink-svg  the DOT topology laid out by Graphviz
  json          the positioned diagram
  text          terminal rendering
  png, pdf      the swimlane SVG converted with rsvg-convert`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = pipeline.ParseFormats(formatsStr)
			if len(opts.formats) == 0 {
				opts.formats = []string{pipeline.FormatSVG}
			}
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s), comma-separated (default: svg)")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "width of the time axis in pixels (default 1600)")
	cmd.Flags().Float64Var(&opts.laneHeight, "lane-height", 0, "distance between lanes in pixels (default 60)")
	cmd.Flags().StringVar(&opts.at, "at", "", "reference time for lane ages: unix seconds or RFC 3339 (default: now)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute the layout even if cached")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	logger := loggerFromContext(ctx)

	if needsConverter(opts.formats) && !render.Available() {
		return fmt.Errorf("png and pdf output need rsvg-convert on PATH")
	}

	now := time.Now()
	if opts.at != "" {
		t, err := parseTime(opts.at)
		if err != nil {
			return err
		}
		now = t
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}
	logger.Infof("Rendering %s", input)

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	res, err := runner.Execute(ctx, data, pipeline.Options{
		Width:      opts.width,
		LaneHeight: opts.laneHeight,
		Formats:    opts.formats,
		Now:        now,
		Refresh:    opts.refresh,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	single := len(opts.formats) == 1
	var written []string
	for _, format := range opts.formats {
		out := outputPath(opts.output, input, format, single)
		if err := os.WriteFile(out, res.Artifacts[format], 0644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		written = append(written, out)
	}

	printSuccess("Rendered %s", input)
	printStats(len(res.Diagram.Lanes), res.Stats.Nodes, droppedOf(res), res.CacheInfo.DiagramHit && res.CacheInfo.RenderHit)
	for _, out := range written {
		printFile(out)
	}
	if res.Diagram.Stats.SkippedBranches > 0 {
		printWarning("%d branches skipped: last commit before the window", res.Diagram.Stats.SkippedBranches)
	}
	return nil
}

func needsConverter(formats []string) bool {
	return slices.Contains(formats, pipeline.FormatPNG) || slices.Contains(formats, pipeline.FormatPDF)
}
