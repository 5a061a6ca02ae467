package layout

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gitway/pkg/errors"
	"github.com/matzehuels/gitway/pkg/snapshot"
)

const (
	// DefaultWidth is the width of the time axis in pixels.
	DefaultWidth = 1600.0

	// DefaultLaneHeight is the vertical distance between lanes in pixels.
	DefaultLaneHeight = 60.0
)

// Options configures an Engine.
type Options struct {
	Width      float64     `json:"width"`
	LaneHeight float64     `json:"lane_height"`
	Logger     *log.Logger `json:"-"`
}

// SetDefaults fills zero values.
func (o *Options) SetDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.LaneHeight == 0 {
		o.LaneHeight = DefaultLaneHeight
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// Validate checks that the dimensions are usable.
func (o *Options) Validate() error {
	if o.Width < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "width must be positive, got %g", o.Width)
	}
	if o.LaneHeight < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "lane height must be positive, got %g", o.LaneHeight)
	}
	return nil
}

// Engine runs build passes against lane state that lives as long as the
// Engine does. Passes are serialized; an Engine is safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	opts   Options
	lanes  *LaneAssigner
	logger *log.Logger
}

// NewEngine returns an Engine with no lanes assigned yet.
func NewEngine(opts Options) (*Engine, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		opts:   opts,
		lanes:  NewLaneAssigner(opts.LaneHeight),
		logger: opts.Logger,
	}, nil
}

// Options returns the engine's effective options.
func (e *Engine) Options() Options { return e.opts }

// Build runs one pass: order branches, place commits, resolve links and
// attach refs. Lanes assigned by earlier passes keep their positions.
func (e *Engine) Build(s *snapshot.Snapshot) (*Diagram, error) {
	if s == nil {
		return nil, errors.New(errors.ErrCodeMalformedSnapshot, "nil snapshot")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	w := s.Window()
	scale := NewTimeScale(e.opts.Width, w)
	degenerate := scale.Check()
	if degenerate != nil {
		e.logger.Debug("time axis collapsed", "error", degenerate)
	}

	d := Build(s.Ordered(), w, scale, e.lanes)
	d.Stats.DegenerateWindow = degenerate != nil
	d.Stats.DanglingRefs = AttachRefs(d.Nodes, s.References)

	if d.Stats.DanglingLinks > 0 || d.Stats.DanglingRefs > 0 {
		e.logger.Debug("dropped dangling references",
			"links", d.Stats.DanglingLinks,
			"refs", d.Stats.DanglingRefs)
	}
	e.logger.Debug("built diagram",
		"branches", d.Stats.Branches,
		"skipped", d.Stats.SkippedBranches,
		"nodes", len(d.Nodes),
		"links", len(d.Links),
		"duration", time.Since(start))
	return d, nil
}

// LaneCount returns the number of lanes assigned since the engine started.
func (e *Engine) LaneCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lanes.Len()
}

// Lane returns the y coordinate already assigned to branch.
func (e *Engine) Lane(branch string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	y, ok := e.lanes.Lookup(branch)
	if !ok {
		return 0, errors.New(errors.ErrCodeNotFound, "no lane for %s", branch)
	}
	return y, nil
}
