package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gitway/pkg/cache"
	"github.com/matzehuels/gitway/pkg/errors"
	"github.com/matzehuels/gitway/pkg/layout"
	"github.com/matzehuels/gitway/pkg/observability"
)

// ErrStale is returned by Apply for a pass that finished after a newer
// pass had already been applied.
var ErrStale = stderrors.New("stale pass discarded")

// Runner executes pipeline passes with caching and keeps the current
// diagram of a live feed.
//
// Apply calls are serialized; rendering and reads of the current result may
// run concurrently with them.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Engine holds the lane state of the live feed.
	Engine *layout.Engine

	applyMu sync.Mutex
	mu      sync.RWMutex
	current *Result
	applied uint64
}

// NewRunner creates a runner. A nil keyer uses DefaultKeyer, a nil cache
// disables caching and a nil engine gets default options.
func NewRunner(c cache.Cache, keyer cache.Keyer, engine *layout.Engine, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	if engine == nil {
		engine, _ = layout.NewEngine(layout.Options{Logger: logger})
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		Engine: engine,
	}
}

// =============================================================================
// Live feed
// =============================================================================

// Apply parses data, lays it out on the runner's engine and makes it the
// current result. On any error the current result is kept. A pass no newer
// than the applied one is rejected with ErrStale before it reaches the
// engine, so it never assigns lanes.
func (r *Runner) Apply(ctx context.Context, seq uint64, data []byte) (*Result, error) {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	if applied, ok := r.stale(seq); ok {
		observability.Pipeline().OnStale(ctx, seq, applied)
		r.Logger.Debug("discarding stale pass", "seq", seq, "applied", applied)
		return nil, ErrStale
	}

	res, err := Layout(ctx, r.Engine, seq, data)
	if err != nil {
		r.Logger.Warn("keeping last diagram", "seq", seq, "error", errors.UserMessage(err))
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res.Changed = r.current == nil || r.current.DiagramHash != res.DiagramHash
	res.AppliedAt = time.Now()
	r.current = res
	r.applied = seq

	d := res.Diagram
	if d.Stats.DanglingLinks > 0 || d.Stats.DanglingRefs > 0 {
		r.Logger.Debug("dropped dangling references", "seq", seq,
			"links", d.Stats.DanglingLinks, "refs", d.Stats.DanglingRefs)
	}
	r.Logger.Info("applied snapshot",
		"seq", seq,
		"lanes", len(d.Lanes),
		"nodes", res.Stats.Nodes,
		"links", res.Stats.Links,
		"changed", res.Changed,
		"duration", res.Stats.ParseTime+res.Stats.LayoutTime)
	return res, nil
}

// stale reports whether seq is no newer than the applied pass.
func (r *Runner) stale(seq uint64) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.applied, r.current != nil && seq <= r.applied
}

// Current returns the last applied result, or nil before the first one.
func (r *Runner) Current() *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Applied returns the sequence number of the current result.
func (r *Runner) Applied() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.applied
}

// RenderCurrent renders the current result. Before the first applied pass
// it returns NOT_FOUND.
func (r *Runner) RenderCurrent(ctx context.Context, format string, now time.Time) ([]byte, bool, error) {
	res := r.Current()
	if res == nil {
		return nil, false, errors.New(errors.ErrCodeNotFound, "no diagram yet")
	}
	return r.RenderWithCacheInfo(ctx, res, format, now)
}

// =============================================================================
// Rendering
// =============================================================================

// RenderWithCacheInfo renders one format of res through the artifact cache
// and reports whether it was a cache hit.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, res *Result, format string, now time.Time) ([]byte, bool, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, false, err
	}

	key := r.Keyer.ArtifactKey(res.DiagramHash, ArtifactKeyOpts(format, now))
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return data, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, format)
	start := time.Now()
	data, err := Render(res.Diagram, format, now)
	hooks.OnRenderComplete(ctx, format, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
		r.Logger.Debug("cache set failed", "format", format, "error", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}
	return data, false, nil
}

// =============================================================================
// One-shot
// =============================================================================

// Execute lays out a standalone snapshot with fresh lanes and renders
// opts.Formats. The diagram is cached by snapshot content and layout
// options.
func (r *Runner) Execute(ctx context.Context, data []byte, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	res, hit, err := r.LayoutWithCacheInfo(ctx, data, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	res.CacheInfo.DiagramHit = hit

	r.Logger.Info("computed layout",
		"lanes", len(res.Diagram.Lanes),
		"nodes", res.Stats.Nodes,
		"cached", hit)

	renderStart := time.Now()
	allHit := true
	for _, format := range opts.Formats {
		out, hit, err := r.RenderWithCacheInfo(ctx, res, format, opts.Now)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		res.Artifacts[format] = out
		allHit = allHit && hit
	}
	res.Stats.RenderTime = time.Since(renderStart)
	res.CacheInfo.RenderHit = allHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", res.Stats.RenderTime)
	return res, nil
}

// LayoutWithCacheInfo returns the diagram for a standalone snapshot, from
// cache unless opts.Refresh is set.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, data []byte, opts Options) (*Result, bool, error) {
	opts.SetDefaults()
	key := r.Keyer.DiagramKey(cache.Hash(data), opts.DiagramKeyOpts())

	if !opts.Refresh {
		if cached, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if d, err := layout.UnmarshalDiagram(cached); err == nil {
				observability.Cache().OnCacheHit(ctx, "diagram")
				snap, err := Parse(data)
				if err != nil {
					return nil, false, err
				}
				res, err := newResult(0, snap, data, d)
				return res, err == nil, err
			}
		}
	}
	observability.Cache().OnCacheMiss(ctx, "diagram")

	eng, err := layout.NewEngine(opts.EngineOptions())
	if err != nil {
		return nil, false, err
	}
	res, err := Layout(ctx, eng, 0, data)
	if err != nil {
		return nil, false, err
	}

	if err := r.Cache.Set(ctx, key, res.DiagramJSON, cache.TTLDiagram); err == nil {
		observability.Cache().OnCacheSet(ctx, "diagram", len(res.DiagramJSON))
	}
	return res, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
