package layout

// LaneAssigner is a memoizing allocator of lane y coordinates.
//
// The first request for a name takes the next free slot, starting at half a
// lane height and moving down one lane height per new name. Later requests
// return the same value. Lanes follow call order, not any sort, so callers
// must request them in the order they want them stacked.
//
// A LaneAssigner is not safe for concurrent use; [Engine] serializes access.
type LaneAssigner struct {
	height float64
	next   float64
	lanes  map[string]float64
	names  []string
}

// NewLaneAssigner returns an empty assigner with the given lane height.
func NewLaneAssigner(laneHeight float64) *LaneAssigner {
	return &LaneAssigner{
		height: laneHeight,
		next:   laneHeight / 2,
		lanes:  make(map[string]float64),
	}
}

// Lane returns the y coordinate for name, assigning one if needed.
func (a *LaneAssigner) Lane(name string) float64 {
	if y, ok := a.lanes[name]; ok {
		return y
	}
	y := a.next
	a.lanes[name] = y
	a.names = append(a.names, name)
	a.next += a.height
	return y
}

// Lookup returns the lane of name without assigning one.
func (a *LaneAssigner) Lookup(name string) (float64, bool) {
	y, ok := a.lanes[name]
	return y, ok
}

// Len returns the number of assigned lanes.
func (a *LaneAssigner) Len() int { return len(a.names) }

// Names returns the assigned names in assignment order.
func (a *LaneAssigner) Names() []string {
	return append([]string(nil), a.names...)
}

// LaneHeight returns the configured lane height.
func (a *LaneAssigner) LaneHeight() float64 { return a.height }

// Height is the diagram height covering every lane assigned so far: the
// last lane's y plus half a lane, or 0 when nothing has been assigned.
func (a *LaneAssigner) Height() float64 {
	return a.next - a.height/2
}
