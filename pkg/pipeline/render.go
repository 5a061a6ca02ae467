package pipeline

import (
	"fmt"
	"time"

	"github.com/matzehuels/gitway/pkg/errors"
	"github.com/matzehuels/gitway/pkg/layout"
	"github.com/matzehuels/gitway/pkg/render"
	"github.com/matzehuels/gitway/pkg/render/nodelink"
	"github.com/matzehuels/gitway/pkg/render/svg"
	"github.com/matzehuels/gitway/pkg/render/text"
)

// Render produces one output format of d. now is the reference time for
// lane ages.
func Render(d *layout.Diagram, format string, now time.Time) ([]byte, error) {
	var data []byte
	var err error

	switch format {
	case FormatSVG:
		data = svg.Render(d, svg.WithNow(now))
	case FormatDOT:
		data = []byte(nodelink.ToDOT(d, nodelink.Options{Detailed: true}))
	case FormatJSON:
		data, err = d.Marshal()
	case FormatNodelink:
		data, err = nodelink.RenderSVG(nodelink.ToDOT(d, nodelink.Options{}))
	case FormatText:
		data = []byte(text.Render(d, text.Options{Now: now, Plain: true}))
	case FormatPNG:
		data, err = render.ToPNG(svg.Render(d, svg.WithNow(now)), 2.0)
	case FormatPDF:
		data, err = render.ToPDF(svg.Render(d, svg.WithNow(now)))
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported format: %s", format)
	}

	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return data, nil
}

// RenderAll renders every format in formats.
func RenderAll(d *layout.Diagram, formats []string, now time.Time) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(formats))
	for _, f := range formats {
		data, err := Render(d, f, now)
		if err != nil {
			return nil, err
		}
		artifacts[f] = data
	}
	return artifacts, nil
}
