package svg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/gitway/pkg/layout"
	"github.com/matzehuels/gitway/pkg/snapshot"
)

// DefaultGutter is the width of the label column right of the time axis.
const DefaultGutter = 200.0

const (
	importantRadius = 6.0
	plainRadius     = 2.0
	lanePadding     = 3.0
	fontFamily      = "-apple-system, BlinkMacSystemFont, 'Segoe UI', Helvetica, Arial, sans-serif"
)

const stylesheet = `
    .swimlane { fill: #f6f8fa; stroke: #ffffff; stroke-width: 2; }
    .swimlane[data-priority="0"] { fill: #e6f0ff; }
    .swimlane[data-priority="1"] { fill: #ffe9e6; }
    .swimlane[data-priority="2"] { fill: #fff6e0; }
    .swimlane[data-priority="3"] { fill: #eaf7ea; }
    .swimlane[data-priority="4"] { fill: #f3ecfa; }
    .branchname { font-size: 14px; font-weight: 600; fill: #24292f; }
    .branchauthor, .branchtime { font-size: 11px; fill: #57606a; }
    .commitline { stroke: #57606a; stroke-width: 2; }
    .commitline.divergence { stroke: #0969da; }
    .commitline.prehistoric { stroke-dasharray: 4 4; stroke-opacity: 0.6; }
    .commitnode { fill: #24292f; }
    .commitnode.important { fill: #ffffff; stroke: #24292f; stroke-width: 2; }
    .ref { font-size: 10px; fill: #24292f; }
    .ref.tag { fill: #9a6700; }`

// Option configures Render.
type Option func(*renderer)

type renderer struct {
	now      time.Time
	gutter   float64
	allNodes bool
	refs     bool
}

// WithNow sets the reference time for lane ages. Defaults to time.Now.
func WithNow(t time.Time) Option { return func(r *renderer) { r.now = t } }

// WithGutter sets the label column width.
func WithGutter(w float64) Option { return func(r *renderer) { r.gutter = w } }

// WithAllNodes also draws small dots for commits that are not important.
func WithAllNodes() Option { return func(r *renderer) { r.allNodes = true } }

// WithoutRefs suppresses ref labels.
func WithoutRefs() Option { return func(r *renderer) { r.refs = false } }

func newRenderer(opts ...Option) renderer {
	r := renderer{gutter: DefaultGutter, refs: true}
	for _, opt := range opts {
		opt(&r)
	}
	if r.now.IsZero() {
		r.now = time.Now()
	}
	return r
}

// Render draws d. The canvas is d.Width plus the gutter wide and d.Height
// tall.
func Render(d *layout.Diagram, opts ...Option) []byte {
	r := newRenderer(opts...)
	width := d.Width + r.gutter

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		width, d.Height, width, d.Height)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", stylesheet)

	buf.WriteString(`  <g id="swimlanes">` + "\n")
	for _, l := range d.Lanes {
		r.renderLane(&buf, d, l, width)
	}
	buf.WriteString("  </g>\n")

	buf.WriteString(`  <g id="lines">` + "\n")
	for _, l := range d.Links {
		renderLink(&buf, l)
	}
	buf.WriteString("  </g>\n")

	buf.WriteString(`  <g id="commits">` + "\n")
	for _, n := range d.Nodes {
		r.renderNode(&buf, n)
	}
	buf.WriteString("  </g>\n")

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *renderer) renderLane(buf *bytes.Buffer, d *layout.Diagram, l layout.Lane, width float64) {
	top := l.Y - d.LaneHeight/2
	fmt.Fprintf(buf, `    <g class="branchlane" data-branch="%s" transform="translate(0, %.1f)">`+"\n",
		escape(l.Name), top)
	fmt.Fprintf(buf, `      <rect class="swimlane" data-priority="%d" width="%.1f" height="%.1f"/>`+"\n",
		l.Priority, width, d.LaneHeight)

	x := d.Width + 8
	lines := []struct {
		class, text string
	}{
		{"branchname", l.Label},
		{"branchauthor", l.LastCommitter},
		{"branchtime", Elapsed(r.now.Unix(), l.LastCommit)},
	}
	step := (d.LaneHeight - 2*lanePadding) / float64(len(lines))
	for i, ln := range lines {
		if ln.text == "" {
			continue
		}
		y := lanePadding + step*float64(i) + step*0.75
		fmt.Fprintf(buf, `      <text class="branchlabel %s" x="%.1f" y="%.1f" font-family="%s">%s</text>`+"\n",
			ln.class, x, y, fontFamily, escape(ln.text))
	}
	buf.WriteString("    </g>\n")
}

func renderLink(buf *bytes.Buffer, l layout.Link) {
	class := "commitline " + string(l.Kind)
	if l.Prehistoric {
		class += " prehistoric"
	}
	fmt.Fprintf(buf, `    <line class="%s" data-source="%s" data-target="%s" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n",
		class, escape(l.Source.ID), escape(l.Target.ID),
		l.Source.X, l.Source.Y, l.Target.X, l.Target.Y)
}

func (r *renderer) renderNode(buf *bytes.Buffer, n *layout.Node) {
	if !n.Important && !r.allNodes {
		return
	}
	radius, class := plainRadius, "commitnode"
	if n.Important {
		radius, class = importantRadius, "commitnode important"
	}
	fmt.Fprintf(buf, `    <g class="commitobject" id="%s" transform="translate(%.1f, %.1f)">`+"\n",
		escape(n.ID), n.X, n.Y)
	fmt.Fprintf(buf, `      <circle class="%s" r="%.0f"><title>%s</title></circle>`+"\n",
		class, radius, escape(shortHash(n.Hash)))
	if r.refs {
		for i, ref := range n.Refs {
			fmt.Fprintf(buf, `      <text class="%s" x="8" y="%.1f" font-family="%s">%s</text>`+"\n",
				refClass(ref), -8-float64(i)*11, fontFamily, escape(ref.Ref))
		}
	}
	buf.WriteString("    </g>\n")
}

func refClass(ref snapshot.Ref) string {
	if ref.Type == snapshot.RefTag {
		return "ref tag"
	}
	return "ref " + strings.ToLower(string(ref.Type))
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
