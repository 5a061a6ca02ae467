package layout

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/matzehuels/gitway/pkg/errors"
	"github.com/matzehuels/gitway/pkg/snapshot"
)

func TestTimeScaleX(t *testing.T) {
	tests := []struct {
		name  string
		scale TimeScale
		ts    int64
		want  float64
	}{
		{"AtMin", TimeScale{Width: 100, Min: 100, Max: 200}, 100, 0},
		{"AtMax", TimeScale{Width: 100, Min: 100, Max: 200}, 200, 100},
		{"Middle", TimeScale{Width: 100, Min: 100, Max: 200}, 150, 50},
		{"BeforeWindow", TimeScale{Width: 100, Min: 100, Max: 200}, 10, 0},
		{"AfterWindow", TimeScale{Width: 100, Min: 100, Max: 200}, 500, 100},
		{"Degenerate", TimeScale{Width: 100, Min: 100, Max: 100}, 100, 0},
		{"DegenerateOutside", TimeScale{Width: 100, Min: 100, Max: 100}, 9999, 0},
		{"Inverted", TimeScale{Width: 100, Min: 200, Max: 100}, 150, 0},
		{"ZeroWidth", TimeScale{Width: 0, Min: 0, Max: 10}, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scale.X(tt.ts); got != tt.want {
				t.Errorf("X(%d) = %g, want %g", tt.ts, got, tt.want)
			}
		})
	}
}

func TestNewTimeScale(t *testing.T) {
	s := NewTimeScale(800, snapshot.Window{Min: 5, Max: 10})
	if s.Width != 800 || s.Min != 5 || s.Max != 10 {
		t.Errorf("NewTimeScale = %+v", s)
	}
	if s.Degenerate() {
		t.Error("Degenerate() = true for non-empty window")
	}
	if err := s.Check(); err != nil {
		t.Errorf("Check() = %v", err)
	}
}

func TestTimeScaleCheckDegenerate(t *testing.T) {
	s := NewTimeScale(800, snapshot.Window{Min: 7, Max: 7})
	if err := s.Check(); !errors.Is(err, errors.ErrCodeDegenerateWindow) {
		t.Errorf("Check() = %v, want DEGENERATE_WINDOW", err)
	}
	if x := s.X(7); x != 0 {
		t.Errorf("X(7) = %g, want 0", x)
	}
}

func TestProperty_TimeScaleMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		minTime := rapid.Int64Range(0, 1_000_000).Draw(t, "min")
		span := rapid.Int64Range(1, 1_000_000).Draw(t, "span")
		width := float64(rapid.IntRange(1, 4000).Draw(t, "width"))
		s := TimeScale{Width: width, Min: minTime, Max: minTime + span}

		t1 := rapid.Int64Range(minTime, minTime+span).Draw(t, "t1")
		t2 := rapid.Int64Range(t1, minTime+span).Draw(t, "t2")

		if s.X(minTime) != 0 {
			t.Fatalf("X(min) = %g, want 0", s.X(minTime))
		}
		if s.X(t1) > s.X(t2) {
			t.Fatalf("X(%d) = %g > X(%d) = %g", t1, s.X(t1), t2, s.X(t2))
		}
		if x := s.X(t2); x < 0 || x > width {
			t.Fatalf("X(%d) = %g outside [0, %g]", t2, x, width)
		}
	})
}

func TestProperty_TimeScaleDegenerate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		at := rapid.Int64().Draw(t, "at")
		ts := rapid.Int64().Draw(t, "ts")
		s := TimeScale{Width: 1000, Min: at, Max: at}
		if x := s.X(ts); x != 0 {
			t.Fatalf("X(%d) = %g on degenerate window, want 0", ts, x)
		}
	})
}
