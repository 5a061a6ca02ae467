package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/gitway/pkg/layout"
	"github.com/matzehuels/gitway/pkg/render"
)

// Options configures DOT generation.
type Options struct {
	// Detailed adds commit times and refs to node labels.
	// When false, only the short hash is shown.
	Detailed bool

	// AllNodes includes commits that are not important.
	AllNodes bool
}

// ToDOT converts a diagram to Graphviz DOT. Edges point from child to
// parent, so with rankdir=RL older commits end up on the left.
func ToDOT(d *layout.Diagram, opts Options) string {
	byLane := make(map[string][]*layout.Node)
	linked := make(map[string]bool)
	for _, l := range d.Links {
		linked[l.Source.ID] = true
		linked[l.Target.ID] = true
	}
	for _, n := range d.Nodes {
		if opts.AllNodes || n.Important || linked[n.ID] {
			byLane[n.Branch] = append(byLane[n.Branch], n)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=RL;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"monospace\", fontsize=12];\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for i, lane := range d.Lanes {
		fmt.Fprintf(&buf, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&buf, "    label=%q;\n", lane.Label)
		buf.WriteString("    style=\"rounded,filled\";\n")
		fmt.Fprintf(&buf, "    fillcolor=%q;\n", laneColor(lane.Priority))
		for _, n := range byLane[lane.Name] {
			attrs := fmtAttrs(n, fmtLabel(n, opts.Detailed))
			fmt.Fprintf(&buf, "    %q [%s];\n", n.ID, strings.Join(attrs, ", "))
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("\n")
	for _, l := range d.Links {
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", l.Source.ID, l.Target.ID, strings.Join(edgeAttrs(l), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *layout.Node, detailed bool) string {
	label := n.Hash
	if len(label) > 8 {
		label = label[:8]
	}
	if !detailed {
		return label
	}

	parts := []string{label, time.Unix(n.Timestamp, 0).UTC().Format(time.DateTime)}
	for _, r := range n.Refs {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Type, r.Ref))
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(n *layout.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.Prehistoric:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	case len(n.Refs) > 0:
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}

func edgeAttrs(l layout.Link) []string {
	attrs := []string{fmt.Sprintf("class=%q", l.Kind)}
	if l.Prehistoric {
		attrs = append(attrs, "style=dashed")
	}
	if l.Kind == layout.LinkDivergence {
		attrs = append(attrs, "color=\"#0969da\"", "constraint=false")
	}
	return attrs
}

func laneColor(priority int) string {
	switch priority {
	case 0:
		return "#e6f0ff"
	case 1:
		return "#ffe9e6"
	case 2:
		return "#fff6e0"
	case 3:
		return "#eaf7ea"
	case 4:
		return "#f3ecfa"
	default:
		return "#f6f8fa"
	}
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
func RenderPNG(dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
