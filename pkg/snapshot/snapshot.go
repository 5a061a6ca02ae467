package snapshot

import (
	"cmp"
	"slices"
	"strings"
)

// RefType distinguishes tag refs from branch-head refs.
type RefType string

// Ref types as they appear on the wire.
const (
	RefTag    RefType = "tag"
	RefBranch RefType = "branch"
)

// Ref is a human-readable label attached to one commit hash.
type Ref struct {
	Type RefType `json:"type"`
	Ref  string  `json:"ref"`
}

// Commit is one node of a branch's local history.
type Commit struct {
	Timestamp    int64    `json:"timestamp"`
	ParentHashes []string `json:"parentHashes"`
}

// Branch carries a locally-scoped slice of the commit DAG.
type Branch struct {
	Name          string            `json:"name"`
	Priority      int               `json:"priority"`
	LastCommit    int64             `json:"lastcommit"`
	LastCommitter string            `json:"lastcommitter"`
	Commits       map[string]Commit `json:"nodes"`
}

// Snapshot is one fetched graph payload.
type Snapshot struct {
	MinTime    int64            `json:"mintime"`
	MaxTime    int64            `json:"maxtime"`
	Branches   []Branch         `json:"branches"`
	References map[string][]Ref `json:"references"`
}

// Window is the visible time range in unix seconds.
// Commits at or after Min are live; commits before it are prehistoric.
type Window struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Window returns the snapshot's visible time range.
func (s *Snapshot) Window() Window {
	return Window{Min: s.MinTime, Max: s.MaxTime}
}

// Prehistoric reports whether ts lies before the window.
func (w Window) Prehistoric(ts int64) bool { return ts < w.Min }

// Degenerate reports whether the window covers a single instant.
func (w Window) Degenerate() bool { return w.Min == w.Max }

// Stale reports whether the branch's newest commit predates the window,
// meaning the branch has been merged or abandoned and should not be drawn.
func (b Branch) Stale(w Window) bool { return b.LastCommit < w.Min }

// Hashes returns the branch's commit hashes ordered by timestamp, then hash.
// Map iteration order is random; everything that walks a branch goes through
// this so that passes are reproducible.
func (b Branch) Hashes() []string {
	hashes := make([]string, 0, len(b.Commits))
	for h := range b.Commits {
		hashes = append(hashes, h)
	}
	slices.SortFunc(hashes, func(x, y string) int {
		if c := cmp.Compare(b.Commits[x].Timestamp, b.Commits[y].Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(x, y)
	})
	return hashes
}

// Has reports whether hash is part of the branch's local history.
func (b Branch) Has(hash string) bool {
	_, ok := b.Commits[hash]
	return ok
}

// labelPrefixes are stripped in order by Label.
var labelPrefixes = []string{"origin/", "hotfix/", "feature/", "release/"}

// Label returns the branch name without its remote and flow prefixes,
// e.g. "origin/feature/login" becomes "login".
func (b Branch) Label() string {
	return Label(b.Name)
}

// Label strips the remote and flow prefixes from a branch name.
func Label(name string) string {
	for _, p := range labelPrefixes {
		name = strings.TrimPrefix(name, p)
	}
	return name
}

// Compare orders branches by priority ascending, then by most recent commit
// descending, then by name. Lane assignment follows this order.
func Compare(a, b Branch) int {
	if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
		return c
	}
	if c := cmp.Compare(b.LastCommit, a.LastCommit); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

// Ordered returns a copy of the snapshot's branches sorted with [Compare].
func (s *Snapshot) Ordered() []Branch {
	out := slices.Clone(s.Branches)
	slices.SortStableFunc(out, Compare)
	return out
}

// CommitCount returns the number of (branch, commit) pairs in the snapshot.
func (s *Snapshot) CommitCount() int {
	n := 0
	for _, b := range s.Branches {
		n += len(b.Commits)
	}
	return n
}
