// Package render holds the diagram renderers and format conversion.
//
// Renderers take a positioned [layout.Diagram]:
//
//   - [svg]: the swimlane view with a time axis
//   - [nodelink]: a Graphviz topology view
//   - [text]: a terminal view for the watch command
//
// [ToPDF] and [ToPNG] convert any SVG with the external rsvg-convert tool
// (from librsvg).
//
//	out := svg.Render(d)
//	png, err := render.ToPNG(out, 2.0)
package render
