package layout

import (
	"github.com/matzehuels/gitway/pkg/errors"
	"github.com/matzehuels/gitway/pkg/snapshot"
)

// TimeScale maps timestamps linearly onto [0, Width].
type TimeScale struct {
	Width float64
	Min   int64
	Max   int64
}

// NewTimeScale returns a scale spanning the given window.
func NewTimeScale(width float64, w snapshot.Window) TimeScale {
	return TimeScale{Width: width, Min: w.Min, Max: w.Max}
}

// Degenerate reports whether the window has no extent.
func (s TimeScale) Degenerate() bool { return s.Max <= s.Min }

// Check returns DEGENERATE_WINDOW when the window has no extent. The scale
// stays usable; every position is 0.
func (s TimeScale) Check() error {
	if s.Degenerate() {
		return errors.New(errors.ErrCodeDegenerateWindow, "window %d..%d has no extent", s.Min, s.Max)
	}
	return nil
}

// X returns the horizontal position of ts. Positions outside the window are
// clamped to the nearest edge; a degenerate window maps everything to 0.
func (s TimeScale) X(ts int64) float64 {
	if s.Degenerate() {
		return 0
	}
	x := float64(ts-s.Min) / float64(s.Max-s.Min) * s.Width
	switch {
	case x < 0:
		return 0
	case x > s.Width:
		return s.Width
	}
	return x
}
