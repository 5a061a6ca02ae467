package layout

import (
	"encoding/json"

	"github.com/matzehuels/gitway/pkg/errors"
	"github.com/matzehuels/gitway/pkg/snapshot"
)

// =============================================================================
// Diagram - Positioned Output Model
// =============================================================================

// Diagram is the positioned model handed to renderers.
type Diagram struct {
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
	LaneHeight float64         `json:"lane_height"`
	Window     snapshot.Window `json:"window"`
	Lanes      []Lane          `json:"lanes"`
	Nodes      []*Node         `json:"nodes"`
	Links      []Link          `json:"links"`
	Stats      Stats           `json:"stats"`
}

// Lane describes one drawn branch.
type Lane struct {
	Name          string  `json:"name"`
	Label         string  `json:"label"`
	Y             float64 `json:"y"`
	Priority      int     `json:"priority"`
	LastCommit    int64   `json:"lastcommit"`
	LastCommitter string  `json:"lastcommitter"`
}

// Stats counts what a build pass skipped or dropped.
type Stats struct {
	Branches        int `json:"branches"`
	SkippedBranches int `json:"skipped_branches"`
	EmptyBranches   int `json:"empty_branches"`
	DanglingLinks   int `json:"dangling_links"`
	DanglingRefs    int `json:"dangling_refs"`

	// DegenerateWindow is set when mintime equals maxtime.
	DegenerateWindow bool `json:"degenerate_window,omitempty"`
}

// Node returns the node with the given id, or nil.
func (d *Diagram) Node(id string) *Node {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// LinksOf returns the links of the given kind.
func (d *Diagram) LinksOf(kind LinkKind) []Link {
	var out []Link
	for _, l := range d.Links {
		if l.Kind == kind {
			out = append(out, l)
		}
	}
	return out
}

// Marshal encodes the diagram as indented JSON.
func (d *Diagram) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// UnmarshalDiagram decodes the output of Marshal, reconnecting links to
// their nodes by id. A link naming an unknown node is DANGLING_REFERENCE.
func UnmarshalDiagram(data []byte) (*Diagram, error) {
	var raw struct {
		Diagram
		Links []linkJSON `json:"links"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode diagram")
	}

	d := raw.Diagram
	if d.Lanes == nil {
		d.Lanes = []Lane{}
	}
	if d.Nodes == nil {
		d.Nodes = []*Node{}
	}
	byID := make(map[string]*Node, len(d.Nodes))
	for _, n := range d.Nodes {
		byID[n.ID] = n
	}
	d.Links = make([]Link, 0, len(raw.Links))
	for _, l := range raw.Links {
		src, dst := byID[l.Source], byID[l.Target]
		if src == nil || dst == nil {
			return nil, errors.New(errors.ErrCodeDanglingReference, "link %s -> %s", l.Source, l.Target)
		}
		d.Links = append(d.Links, Link{Source: src, Target: dst, Kind: l.Kind, Prehistoric: l.Prehistoric})
	}
	return &d, nil
}

// =============================================================================
// Node
// =============================================================================

// Node is one commit drawn on one branch's lane.
type Node struct {
	ID          string         `json:"id"`
	Hash        string         `json:"hash"`
	Branch      string         `json:"branch"`
	Timestamp   int64          `json:"timestamp"`
	X           float64        `json:"x"`
	Y           float64        `json:"y"`
	Important   bool           `json:"important"`
	Prehistoric bool           `json:"prehistoric"`
	Refs        []snapshot.Ref `json:"refs,omitempty"`
}

// NodeID returns the identifier of the node for hash on branch.
func NodeID(branch, hash string) string { return branch + "@" + hash }

// =============================================================================
// Link
// =============================================================================

// LinkKind tells renderers how a link came about.
type LinkKind string

const (
	// LinkLane runs from a branch's newest visible commit to its oldest.
	LinkLane LinkKind = "lane"
	// LinkDivergence runs from a commit to a parent on another branch.
	LinkDivergence LinkKind = "divergence"
	// LinkAncestor runs from a branch's oldest visible commit to the last
	// commit before the window.
	LinkAncestor LinkKind = "ancestor"
)

// Link is directed from the child position to the parent position.
type Link struct {
	Source      *Node
	Target      *Node
	Kind        LinkKind
	Prehistoric bool
}

type linkJSON struct {
	Source      string   `json:"source"`
	Target      string   `json:"target"`
	Kind        LinkKind `json:"kind"`
	Prehistoric bool     `json:"prehistoric"`
	X1          float64  `json:"x1"`
	Y1          float64  `json:"y1"`
	X2          float64  `json:"x2"`
	Y2          float64  `json:"y2"`
}

// MarshalJSON encodes endpoints by id and inlines their coordinates.
func (l Link) MarshalJSON() ([]byte, error) {
	return json.Marshal(linkJSON{
		Source:      l.Source.ID,
		Target:      l.Target.ID,
		Kind:        l.Kind,
		Prehistoric: l.Prehistoric,
		X1:          l.Source.X,
		Y1:          l.Source.Y,
		X2:          l.Target.X,
		Y2:          l.Target.Y,
	})
}
