// Package pkg provides the core libraries for gitway branch diagrams.
//
// # Overview
//
// Gitway draws the branches of a git repository as swimlanes: one lane per
// branch, commits placed on a shared time axis, and lines showing where a
// branch left its parent's history. The pkg directory is organized into
// three areas:
//
//  1. Domain: [snapshot] (input model), [layout] (lanes, time scale, graph
//     construction, refs)
//  2. Orchestration: [feed] (snapshot sources and polling), [pipeline]
//     (decode, build, render, cache), [server] (HTTP and websocket push)
//  3. Infrastructure: [gitsource] (go-git snapshots), [cache], [config],
//     [errors], [observability]
//
// # Architecture
//
// The data flow of one pass:
//
//	git repository / gitway server / snapshot file
//	         ↓
//	    [feed] package (fetch a snapshot document, assign a sequence number)
//	         ↓
//	    [snapshot] package (decode and validate)
//	         ↓
//	    [layout] package (lanes, x positions, nodes, links, refs)
//	         ↓
//	    render packages (swimlane SVG, DOT, text, PNG/PDF)
//
// # Quick Start
//
// Lay out and render one snapshot:
//
//	import (
//	    "github.com/matzehuels/gitway/pkg/layout"
//	    "github.com/matzehuels/gitway/pkg/render/svg"
//	    "github.com/matzehuels/gitway/pkg/snapshot"
//	)
//
//	snap, _ := snapshot.ReadFile("snapshot.json")
//	eng, _ := layout.NewEngine(layout.Options{})
//	d, _ := eng.Build(snap)
//	out := svg.Render(d)
//
// A long-running process keeps one [layout.Engine] so that every branch
// keeps its lane across passes.
//
// [snapshot]: https://pkg.go.dev/github.com/matzehuels/gitway/pkg/snapshot
// [layout]: https://pkg.go.dev/github.com/matzehuels/gitway/pkg/layout
// [layout.Engine]: https://pkg.go.dev/github.com/matzehuels/gitway/pkg/layout#Engine
// [feed]: https://pkg.go.dev/github.com/matzehuels/gitway/pkg/feed
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/gitway/pkg/pipeline
// [server]: https://pkg.go.dev/github.com/matzehuels/gitway/pkg/server
// [gitsource]: https://pkg.go.dev/github.com/matzehuels/gitway/pkg/gitsource
// [cache]: https://pkg.go.dev/github.com/matzehuels/gitway/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/gitway/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/gitway/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/gitway/pkg/observability
package pkg
