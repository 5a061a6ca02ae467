package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/gitway/pkg/layout"
	"github.com/matzehuels/gitway/pkg/observability"
)

// Layout parses data and builds a diagram with eng, reporting the pass to
// the pipeline hooks. The returned result is not applied anywhere.
func Layout(ctx context.Context, eng *layout.Engine, seq uint64, data []byte) (*Result, error) {
	hooks := observability.Pipeline()

	start := time.Now()
	snap, err := Parse(data)
	parseTime := time.Since(start)

	branches := 0
	if snap != nil {
		branches = len(snap.Branches)
	}
	hooks.OnBuildStart(ctx, seq, branches)
	if err != nil {
		hooks.OnBuildComplete(ctx, seq, 0, 0, parseTime, err)
		return nil, err
	}

	layoutStart := time.Now()
	d, err := eng.Build(snap)
	if err != nil {
		hooks.OnBuildComplete(ctx, seq, 0, 0, time.Since(start), err)
		return nil, err
	}

	res, err := newResult(seq, snap, data, d)
	if err != nil {
		hooks.OnBuildComplete(ctx, seq, 0, 0, time.Since(start), err)
		return nil, err
	}
	res.Stats.ParseTime = parseTime
	res.Stats.LayoutTime = time.Since(layoutStart)
	hooks.OnBuildComplete(ctx, seq, res.Stats.Nodes, res.Stats.Links, time.Since(start), nil)
	return res, nil
}
