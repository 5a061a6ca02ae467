// Package svg renders a [layout.Diagram] as a swimlane SVG.
//
// Each lane is a horizontal band with the branch label, last committer and
// age of the newest commit in a gutter to the right of the time axis. Links
// are straight lines between node positions; links into the time before the
// window are dashed. Important nodes are drawn as circles and carry their
// ref names.
//
//	d, _ := engine.Build(snap)
//	out := svg.Render(d, svg.WithNow(time.Now()))
//
// [Elapsed] formats ages the way the lane labels show them.
package svg
