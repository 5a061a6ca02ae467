// Package layout turns a repository snapshot into a positioned swimlane diagram.
//
// # Overview
//
// Every branch gets one horizontal lane. Commits are placed on their branch's
// lane by time, and links connect a branch's newest and oldest visible commits
// (the lane line), commits to parents that live on other branches (divergence
// links), and a branch's oldest visible commit to the last commit before the
// window (the dashed ancestor link).
//
// The package is built from four pieces:
//
//   - [TimeScale] maps a unix timestamp to an x coordinate in [0, width].
//   - [LaneAssigner] hands out y coordinates per branch name, first come first
//     served, and never moves a lane once assigned.
//   - [Build] walks the ordered branches and produces nodes and links in two
//     phases: nodes first, cross-branch links resolved afterwards by index.
//   - [AttachRefs] decorates nodes with the tags and branch heads pointing at
//     them.
//
// [Engine] wires them together and owns the lane state for the lifetime of
// the process, so lanes do not jump between polls:
//
//	eng, _ := layout.NewEngine(layout.Options{Width: 1600, LaneHeight: 60})
//	d, err := eng.Build(snap)
//
// # Ownership of shared commits
//
// A commit hash can appear in more than one branch's local history, and each
// such branch draws its own node for it. A divergence link targets the node
// built by the first branch, in traversal order, that contained the hash.
// Traversal order is priority ascending, newest commit first, then name.
//
// # Failure handling
//
// Nothing in this package fails a pass because of inconsistent input. Stale
// and empty branches are skipped, links to hashes that never materialized are
// dropped, refs to unknown hashes are dropped, and a zero-length window maps
// every commit to x = 0. The counts end up in [Stats].
package layout
