// Package gitsource produces snapshots from a git repository.
//
// [Open] clones a remote into a local bare repository (or opens an existing
// one) and [Repository.FetchLoop] keeps it current. [Repository.Snapshot]
// walks every branch from its head back to the start of the window.
//
// # Branch walk
//
// Branches are walked in priority order, and a commit that has been walked
// once is never recorded again for a later branch. Each branch therefore
// carries only the part of history it added: a feature branch stops where it
// meets master, and its first commit's parent becomes a divergence point in
// the layout. Commits older than the window are recorded as parentless
// sentinels and stay available to later branches, so every branch can show
// its own lead-in from before the window.
//
// # Refs
//
// Remote-tracking branches are reported (local branches when there are no
// remotes), skipping symbolic refs such as origin/HEAD. Every branch head is
// also a "branch" ref on its commit and every tag a "tag" ref; annotated tags
// are resolved to the commit they point at.
package gitsource
