// Package text renders a [layout.Diagram] for a terminal.
//
// Every lane becomes one row: the branch label, then the time axis scaled
// to the requested number of columns. Important commits are drawn as ●,
// other commits as ·, the span between a lane's first and last commit as ─,
// and a lane that continues from before the window starts with ┄.
// Divergence points are marked with ┬ on the parent's lane.
package text

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/gitway/pkg/layout"
)

const (
	glyphImportant   = '●'
	glyphCommit      = '·'
	glyphSpan        = '─'
	glyphPrehistoric = '┄'
	glyphFork        = '┬'
)

var (
	colorLabel  = lipgloss.Color("36")
	colorDim    = lipgloss.Color("240")
	colorCommit = lipgloss.Color("255")
	colorFork   = lipgloss.Color("75")

	laneColors = []lipgloss.Color{"75", "167", "220", "35", "141"}
)

// Options configures Render.
type Options struct {
	// Columns is the width of the time axis in cells. Defaults to 60.
	Columns int

	// LabelWidth is the width of the branch label column. Defaults to 20.
	LabelWidth int

	// Now is used for lane ages. Zero hides them.
	Now time.Time

	// Plain disables colours.
	Plain bool
}

func (o *Options) setDefaults() {
	if o.Columns <= 0 {
		o.Columns = 60
	}
	if o.LabelWidth <= 0 {
		o.LabelWidth = 20
	}
}

// Render returns one line per lane, newline terminated.
func Render(d *layout.Diagram, opts Options) string {
	opts.setDefaults()
	st := newStyles(opts.Plain)

	rows := make(map[string][]rune, len(d.Lanes))
	for _, l := range d.Lanes {
		rows[l.Name] = []rune(strings.Repeat(" ", opts.Columns))
	}

	col := func(x float64) int {
		if d.Width <= 0 {
			return 0
		}
		c := int(math.Round(x / d.Width * float64(opts.Columns-1)))
		return max(0, min(opts.Columns-1, c))
	}

	for _, l := range d.Links {
		row := rows[l.Source.Branch]
		if row == nil {
			continue
		}
		switch l.Kind {
		case layout.LinkLane:
			for c := col(l.Target.X); c <= col(l.Source.X); c++ {
				row[c] = glyphSpan
			}
		case layout.LinkAncestor:
			for c := 0; c < col(l.Source.X); c++ {
				row[c] = glyphPrehistoric
			}
		}
	}
	for _, n := range d.Nodes {
		row := rows[n.Branch]
		if row == nil || n.Prehistoric {
			continue
		}
		c := col(n.X)
		if n.Important {
			row[c] = glyphImportant
		} else if row[c] == ' ' || row[c] == glyphSpan {
			row[c] = glyphCommit
		}
	}
	for _, l := range d.Links {
		if l.Kind != layout.LinkDivergence || l.Target.Prehistoric {
			continue
		}
		if row := rows[l.Target.Branch]; row != nil {
			if c := col(l.Target.X); row[c] != glyphImportant {
				row[c] = glyphFork
			}
		}
	}

	var b strings.Builder
	for i, l := range d.Lanes {
		label := truncate(l.Label, opts.LabelWidth)
		b.WriteString(st.label.Width(opts.LabelWidth).Render(label))
		b.WriteString(" ")
		b.WriteString(st.row(rows[l.Name], laneColors[i%len(laneColors)]))
		if !opts.Now.IsZero() {
			b.WriteString(" ")
			b.WriteString(st.dim.Render(fmt.Sprintf("%s %s", l.LastCommitter, age(opts.Now.Unix()-l.LastCommit))))
		}
		b.WriteString("\n")
	}
	return b.String()
}

type styles struct {
	plain  bool
	label  lipgloss.Style
	dim    lipgloss.Style
	commit lipgloss.Style
	fork   lipgloss.Style
}

func newStyles(plain bool) styles {
	if plain {
		p := lipgloss.NewStyle()
		return styles{plain: true, label: p, dim: p, commit: p, fork: p}
	}
	return styles{
		label:  lipgloss.NewStyle().Foreground(colorLabel),
		dim:    lipgloss.NewStyle().Foreground(colorDim),
		commit: lipgloss.NewStyle().Foreground(colorCommit).Bold(true),
		fork:   lipgloss.NewStyle().Foreground(colorFork),
	}
}

func (s styles) row(cells []rune, lane lipgloss.Color) string {
	if s.plain {
		return string(cells)
	}
	span := lipgloss.NewStyle().Foreground(lane)
	var b strings.Builder
	for _, r := range cells {
		switch r {
		case glyphImportant:
			b.WriteString(s.commit.Render(string(r)))
		case glyphFork:
			b.WriteString(s.fork.Render(string(r)))
		case glyphPrehistoric:
			b.WriteString(s.dim.Render(string(r)))
		case ' ':
			b.WriteRune(r)
		default:
			b.WriteString(span.Render(string(r)))
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// age is the compact form of the lane age shown in the swimlane SVG.
func age(s int64) string {
	switch {
	case s > 14*24*3600:
		return fmt.Sprintf("%dw", s/(7*24*3600))
	case s > 2*24*3600:
		return fmt.Sprintf("%dd", s/(24*3600))
	case s > 2*3600:
		return fmt.Sprintf("%dh", s/3600)
	case s > 120:
		return fmt.Sprintf("%dm", s/60)
	default:
		return "now"
	}
}
