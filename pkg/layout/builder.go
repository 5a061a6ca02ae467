package layout

import (
	"github.com/matzehuels/gitway/pkg/snapshot"
)

// pendingLink is a divergence link whose target is resolved after every
// branch has been walked.
type pendingLink struct {
	child  *Node
	parent string
}

// branchWalk tracks the extremes of one branch while its commits stream by.
type branchWalk struct {
	first    *Node // oldest live node
	last     *Node // newest live node
	ancestor *Node // newest prehistoric node
}

func (w *branchWalk) observe(n *Node) {
	if n.Prehistoric {
		if w.ancestor == nil || n.Timestamp >= w.ancestor.Timestamp {
			w.ancestor = n
		}
		return
	}
	if w.first == nil || n.Timestamp < w.first.Timestamp {
		w.first = n
	}
	if w.last == nil || n.Timestamp >= w.last.Timestamp {
		w.last = n
	}
}

// Build positions the given branches and synthesizes their links.
//
// Branches are walked in the order given, which is also the order in which
// new lanes are requested; pass them through [snapshot.Compare] first to get
// lanes stacked by priority and recency. Stale branches (newest commit before
// the window) and branches without commits are skipped and get no lane.
//
// Refs are not attached; see [AttachRefs].
func Build(branches []snapshot.Branch, w snapshot.Window, scale TimeScale, lanes *LaneAssigner) *Diagram {
	d := &Diagram{
		Width:      scale.Width,
		LaneHeight: lanes.LaneHeight(),
		Window:     w,
		Lanes:      []Lane{},
		Nodes:      []*Node{},
		Links:      []Link{},
	}

	// owners maps a hash to the node of the first branch that contained it.
	owners := make(map[string]*Node)
	var pending []pendingLink

	// Phase 1: nodes, lane links and ancestor links.
	for _, b := range branches {
		if b.Stale(w) {
			d.Stats.SkippedBranches++
			continue
		}
		if len(b.Commits) == 0 {
			d.Stats.EmptyBranches++
			continue
		}
		d.Stats.Branches++

		y := lanes.Lane(b.Name)
		d.Lanes = append(d.Lanes, Lane{
			Name:          b.Name,
			Label:         b.Label(),
			Y:             y,
			Priority:      b.Priority,
			LastCommit:    b.LastCommit,
			LastCommitter: b.LastCommitter,
		})

		var walk branchWalk
		for _, hash := range b.Hashes() {
			c := b.Commits[hash]
			n := &Node{
				ID:          NodeID(b.Name, hash),
				Hash:        hash,
				Branch:      b.Name,
				Timestamp:   c.Timestamp,
				Y:           y,
				Prehistoric: w.Prehistoric(c.Timestamp),
			}
			if !n.Prehistoric {
				n.X = scale.X(c.Timestamp)
			}
			d.Nodes = append(d.Nodes, n)
			if _, ok := owners[hash]; !ok {
				owners[hash] = n
			}
			walk.observe(n)

			for _, p := range c.ParentHashes {
				if b.Has(p) {
					continue
				}
				n.Important = true
				pending = append(pending, pendingLink{child: n, parent: p})
			}
		}

		if walk.first != nil {
			walk.first.Important = true
			walk.last.Important = true
			if walk.first != walk.last {
				d.Links = append(d.Links, Link{Source: walk.last, Target: walk.first, Kind: LinkLane})
			}
			if walk.ancestor != nil {
				d.Links = append(d.Links, Link{
					Source:      walk.first,
					Target:      walk.ancestor,
					Kind:        LinkAncestor,
					Prehistoric: true,
				})
			}
		}
	}

	// Phase 2: divergence links by owner lookup.
	for _, p := range pending {
		target, ok := owners[p.parent]
		if !ok {
			d.Stats.DanglingLinks++
			continue
		}
		d.Links = append(d.Links, Link{
			Source:      p.child,
			Target:      target,
			Kind:        LinkDivergence,
			Prehistoric: target.Prehistoric,
		})
	}

	d.Height = lanes.Height()
	return d
}
