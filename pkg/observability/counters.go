package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// Counters implements every hook interface with atomic counters. The
// server exposes a Snapshot of them on its stats endpoint.
type Counters struct {
	builds       atomic.Int64
	buildErrors  atomic.Int64
	stale        atomic.Int64
	renders      atomic.Int64
	renderErrors atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	fetches      atomic.Int64
	fetchErrors  atomic.Int64
	lastBuild    atomic.Int64 // unix nanos
	lastDuration atomic.Int64
}

// CounterSnapshot is a point-in-time copy of Counters.
type CounterSnapshot struct {
	Builds        int64         `json:"builds"`
	BuildErrors   int64         `json:"build_errors"`
	StalePasses   int64         `json:"stale_passes"`
	Renders       int64         `json:"renders"`
	RenderErrors  int64         `json:"render_errors"`
	CacheHits     int64         `json:"cache_hits"`
	CacheMisses   int64         `json:"cache_misses"`
	Fetches       int64         `json:"fetches"`
	FetchErrors   int64         `json:"fetch_errors"`
	LastBuild     time.Time     `json:"last_build,omitzero"`
	LastBuildTime time.Duration `json:"last_build_duration"`
}

// NewCounters returns zeroed counters.
func NewCounters() *Counters { return &Counters{} }

func (c *Counters) OnBuildStart(context.Context, uint64, int) {}

func (c *Counters) OnBuildComplete(_ context.Context, _ uint64, _, _ int, d time.Duration, err error) {
	if err != nil {
		c.buildErrors.Add(1)
		return
	}
	c.builds.Add(1)
	c.lastBuild.Store(time.Now().UnixNano())
	c.lastDuration.Store(int64(d))
}

func (c *Counters) OnStale(context.Context, uint64, uint64) { c.stale.Add(1) }

func (c *Counters) OnRenderStart(context.Context, string) {}

func (c *Counters) OnRenderComplete(_ context.Context, _ string, _ time.Duration, err error) {
	if err != nil {
		c.renderErrors.Add(1)
		return
	}
	c.renders.Add(1)
}

func (c *Counters) OnCacheHit(context.Context, string)      { c.cacheHits.Add(1) }
func (c *Counters) OnCacheMiss(context.Context, string)     { c.cacheMisses.Add(1) }
func (c *Counters) OnCacheSet(context.Context, string, int) {}

func (c *Counters) OnFetchStart(context.Context, string) {}

func (c *Counters) OnFetchComplete(_ context.Context, _ string, _ int, _ time.Duration, err error) {
	c.fetches.Add(1)
	if err != nil {
		c.fetchErrors.Add(1)
	}
}

// Snapshot copies the current values.
func (c *Counters) Snapshot() CounterSnapshot {
	s := CounterSnapshot{
		Builds:        c.builds.Load(),
		BuildErrors:   c.buildErrors.Load(),
		StalePasses:   c.stale.Load(),
		Renders:       c.renders.Load(),
		RenderErrors:  c.renderErrors.Load(),
		CacheHits:     c.cacheHits.Load(),
		CacheMisses:   c.cacheMisses.Load(),
		Fetches:       c.fetches.Load(),
		FetchErrors:   c.fetchErrors.Load(),
		LastBuildTime: time.Duration(c.lastDuration.Load()),
	}
	if ns := c.lastBuild.Load(); ns != 0 {
		s.LastBuild = time.Unix(0, ns)
	}
	return s
}

var (
	_ PipelineHooks = (*Counters)(nil)
	_ CacheHooks    = (*Counters)(nil)
	_ FeedHooks     = (*Counters)(nil)
)
