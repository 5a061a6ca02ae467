// Package nodelink renders the topology of a [layout.Diagram] with Graphviz.
//
// Where the swimlane SVG places commits on a time axis, this view lets
// Graphviz arrange them: one cluster per lane, one box per drawn commit and
// one edge per link. It is useful for spotting how branches diverge when the
// time axis is crowded.
//
//	dot := nodelink.ToDOT(d, nodelink.Options{})
//	svg, _ := nodelink.RenderSVG(dot)
//
// DOT is also an output format in its own right; [RenderPDF] and
// [RenderPNG] go through SVG and need rsvg-convert.
package nodelink
