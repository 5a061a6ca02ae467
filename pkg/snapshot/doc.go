// Package snapshot defines the wire format of one repository graph snapshot.
//
// A snapshot is what the data feed produces on every poll: the visible time
// window, the branches with their locally-scoped commit maps, and the refs
// (tags and branch heads) keyed by commit hash.
//
//	{
//	  "mintime": 1700000000, "maxtime": 1700900000,
//	  "branches": [
//	    {"name": "origin/master", "priority": 0,
//	     "lastcommit": 1700800000, "lastcommitter": "Ada",
//	     "nodes": {"a1b2": {"timestamp": 1700800000, "parentHashes": ["c3d4"]}}}
//	  ],
//	  "references": {"a1b2": [{"type": "branch", "ref": "origin/master"}]}
//	}
//
// A branch's "nodes" map only holds the commits that belong to that branch's
// own history segment. A parent hash that is missing from the map means the
// parent lives on another branch or lies before the window.
//
// [Decode] rejects snapshots that lack "mintime", "maxtime" or "branches" with
// an error carrying [errors.ErrCodeMalformedSnapshot]; callers are expected to
// keep their last good model when that happens.
//
// Snapshots are immutable after decoding and safe for concurrent reads.
package snapshot
