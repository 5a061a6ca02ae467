package layout

import (
	"fmt"
	"slices"
	"testing"

	"pgregory.net/rapid"
)

func TestLaneAssigner(t *testing.T) {
	a := NewLaneAssigner(60)

	if got := a.Height(); got != 0 {
		t.Errorf("Height() on empty assigner = %g, want 0", got)
	}

	steps := []struct {
		name string
		want float64
	}{
		{"origin/master", 30},
		{"origin/develop", 90},
		{"origin/master", 30},
		{"origin/feature/x", 150},
		{"origin/develop", 90},
	}
	for _, s := range steps {
		if got := a.Lane(s.name); got != s.want {
			t.Errorf("Lane(%q) = %g, want %g", s.name, got, s.want)
		}
	}

	if a.Len() != 3 {
		t.Errorf("Len() = %d, want 3", a.Len())
	}
	if got := a.Height(); got != 180 {
		t.Errorf("Height() = %g, want 180", got)
	}
	want := []string{"origin/master", "origin/develop", "origin/feature/x"}
	if got := a.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestLaneAssignerLookup(t *testing.T) {
	a := NewLaneAssigner(10)
	if _, ok := a.Lookup("x"); ok {
		t.Error("Lookup assigned before Lane was called")
	}
	a.Lane("x")
	if y, ok := a.Lookup("x"); !ok || y != 5 {
		t.Errorf("Lookup(x) = %g, %v; want 5, true", y, ok)
	}
	if a.Len() != 1 {
		t.Errorf("Lookup changed Len to %d", a.Len())
	}
}

func TestProperty_LaneAssignerStable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		height := float64(rapid.IntRange(1, 200).Draw(t, "height"))
		a := NewLaneAssigner(height)
		seen := make(map[string]float64)
		maxY := -1.0

		calls := rapid.IntRange(1, 50).Draw(t, "calls")
		for i := 0; i < calls; i++ {
			name := fmt.Sprintf("b%d", rapid.IntRange(0, 10).Draw(t, fmt.Sprintf("name-%d", i)))
			y := a.Lane(name)
			if prev, ok := seen[name]; ok {
				if y != prev {
					t.Fatalf("Lane(%q) moved from %g to %g", name, prev, y)
				}
				continue
			}
			if y <= maxY {
				t.Fatalf("new lane %q got y=%g, not greater than %g", name, y, maxY)
			}
			seen[name] = y
			maxY = y
		}
		if got, want := a.Height(), maxY+height/2; got != want {
			t.Fatalf("Height() = %g, want %g", got, want)
		}
	})
}
