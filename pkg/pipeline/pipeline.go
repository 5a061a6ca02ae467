// Package pipeline turns snapshot documents into rendered diagrams.
//
// The pipeline has three stages, shared by the server, the watch command
// and one-shot CLI renders:
//
//  1. Parse: decode and validate a snapshot document
//  2. Layout: place commits and resolve links with a [layout.Engine]
//  3. Render: produce SVG, DOT, JSON, text or raster output
//
// # Live diagrams
//
// A long-running process feeds every fetched snapshot to [Runner.Apply]
// together with a pass sequence number. The runner keeps the last good
// result: a malformed snapshot leaves it untouched, and a pass that finishes
// after a newer one was applied is discarded with [ErrStale].
//
//	runner := pipeline.NewRunner(c, nil, engine, logger)
//	poller := feed.NewPoller(src, 10*time.Second, func(ctx context.Context, seq uint64, data []byte) error {
//	    _, err := runner.Apply(ctx, seq, data)
//	    return err
//	}, logger)
//	...
//	svg, _, err := runner.RenderCurrent(ctx, pipeline.FormatSVG, time.Now())
//
// # One-shot renders
//
// [Runner.Execute] lays out a standalone snapshot with fresh lanes and
// caches the diagram by snapshot content:
//
//	result, err := runner.Execute(ctx, data, pipeline.Options{Formats: []string{"svg", "dot"}})
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gitway/pkg/cache"
	"github.com/matzehuels/gitway/pkg/errors"
	"github.com/matzehuels/gitway/pkg/layout"
	"github.com/matzehuels/gitway/pkg/snapshot"
)

// =============================================================================
// Formats
// =============================================================================

// Output formats.
const (
	FormatSVG      = "svg"
	FormatDOT      = "dot"
	FormatJSON     = "json"
	FormatNodelink = "nodelink-svg"
	FormatText     = "text"
	FormatPNG      = "png"
	FormatPDF      = "pdf"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:      true,
	FormatDOT:      true,
	FormatJSON:     true,
	FormatNodelink: true,
	FormatText:     true,
	FormatPNG:      true,
	FormatPDF:      true,
}

// timeDependent formats show lane ages, so their cache key includes the
// reference time.
var timeDependent = map[string]bool{
	FormatSVG:  true,
	FormatText: true,
	FormatPNG:  true,
	FormatPDF:  true,
}

// FormatExt returns the file extension for format.
func FormatExt(format string) string {
	switch format {
	case FormatNodelink:
		return "nodelink.svg"
	case FormatText:
		return "txt"
	default:
		return format
	}
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: svg, dot, json, nodelink-svg, text, png, pdf)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseFormats splits a comma-separated format list.
func ParseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// =============================================================================
// Options
// =============================================================================

// Options configures a one-shot pipeline run.
type Options struct {
	Width      float64  `json:"width,omitempty"`
	LaneHeight float64  `json:"lane_height,omitempty"`
	Formats    []string `json:"formats,omitempty"`

	// Now is the reference time for lane ages. Defaults to time.Now.
	Now time.Time `json:"-"`

	// Refresh bypasses the diagram cache.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// SetDefaults fills zero values.
func (o *Options) SetDefaults() {
	if o.Width == 0 {
		o.Width = layout.DefaultWidth
	}
	if o.LaneHeight == 0 {
		o.LaneHeight = layout.DefaultLaneHeight
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateAndSetDefaults applies defaults and checks formats and sizes.
func (o *Options) ValidateAndSetDefaults() error {
	o.SetDefaults()
	if o.Width < 0 || o.LaneHeight < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "width and lane height must be positive")
	}
	return ValidateFormats(o.Formats)
}

// EngineOptions returns the layout options for a fresh engine.
func (o *Options) EngineOptions() layout.Options {
	return layout.Options{Width: o.Width, LaneHeight: o.LaneHeight, Logger: o.Logger}
}

// DiagramKeyOpts returns cache key options for a one-shot diagram.
func (o *Options) DiagramKeyOpts() cache.DiagramKeyOpts {
	return cache.DiagramKeyOpts{Width: o.Width, LaneHeight: o.LaneHeight}
}

// ArtifactKeyOpts returns cache key options for one rendered format. The
// reference time only matters to formats showing ages and is truncated to
// the minute.
func ArtifactKeyOpts(format string, now time.Time) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: format}
	if timeDependent[format] {
		opts.Now = now.Truncate(time.Minute).Unix()
	}
	return opts
}

// =============================================================================
// Result
// =============================================================================

// Result is the output of one pass.
type Result struct {
	// Seq is the pass sequence number; zero for one-shot runs.
	Seq uint64

	// Snapshot is the decoded input and SnapshotData its raw document.
	Snapshot     *snapshot.Snapshot
	SnapshotData []byte

	Diagram     *layout.Diagram
	DiagramJSON []byte

	// DiagramHash is the content hash of DiagramJSON.
	DiagramHash string

	// Changed reports whether the diagram differs from the previously
	// applied one.
	Changed bool

	AppliedAt time.Time

	// Artifacts holds one-shot outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pass timing and size information.
type Stats struct {
	Nodes      int
	Links      int
	ParseTime  time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits of a one-shot run.
type CacheInfo struct {
	DiagramHit bool // diagram came from cache
	RenderHit  bool // every artifact came from cache
}

func newResult(seq uint64, snap *snapshot.Snapshot, data []byte, d *layout.Diagram) (*Result, error) {
	dj, err := d.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode diagram: %w", err)
	}
	return &Result{
		Seq:          seq,
		Snapshot:     snap,
		SnapshotData: data,
		Diagram:      d,
		DiagramJSON:  dj,
		DiagramHash:  cache.Hash(dj),
		Artifacts:    make(map[string][]byte),
		Stats:        Stats{Nodes: len(d.Nodes), Links: len(d.Links)},
	}, nil
}
