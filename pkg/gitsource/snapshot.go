package gitsource

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	gwerrors "github.com/matzehuels/gitway/pkg/errors"
	"github.com/matzehuels/gitway/pkg/snapshot"
)

// Window returns the (before, after) pair covering d up to now.
func Window(now time.Time, d time.Duration) (before, after time.Time) {
	return now, now.Add(-d)
}

type head struct {
	branch snapshot.Branch
	hash   plumbing.Hash
}

// Snapshot captures the branches and refs of the repository with commits
// between after and before.
func (r *Repository) Snapshot(ctx context.Context, before, after time.Time) (*snapshot.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs, err := r.sortedRefs()
	if err != nil {
		return nil, err
	}

	s := &snapshot.Snapshot{
		MinTime:    after.Unix(),
		MaxTime:    before.Unix(),
		Branches:   []snapshot.Branch{},
		References: make(map[string][]snapshot.Ref),
	}

	remote := slices.ContainsFunc(refs, isRemoteBranch)
	var heads []head
	for _, ref := range refs {
		name := ref.Name()
		switch {
		case name.IsTag():
			if c := r.tagCommit(ref.Hash()); c != nil {
				key := c.Hash.String()
				s.References[key] = append(s.References[key], snapshot.Ref{Type: snapshot.RefTag, Ref: name.Short()})
			}
		case (remote && isRemoteBranch(ref)) || (!remote && name.IsBranch()):
			c, err := r.repo.CommitObject(ref.Hash())
			if err != nil {
				r.logger.Debug("skipping branch", "ref", name, "error", err)
				continue
			}
			short := name.Short()
			heads = append(heads, head{
				hash: c.Hash,
				branch: snapshot.Branch{
					Name:          short,
					Priority:      r.ranker.Rank(short),
					LastCommit:    c.Committer.When.Unix(),
					LastCommitter: c.Author.Name,
				},
			})
			key := c.Hash.String()
			s.References[key] = append(s.References[key], snapshot.Ref{Type: snapshot.RefBranch, Ref: short})
		}
	}

	slices.SortStableFunc(heads, func(a, b head) int { return snapshot.Compare(a.branch, b.branch) })

	walked := make(map[plumbing.Hash]bool)
	for _, h := range heads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h.branch.Commits = r.walk(h.hash, after, walked)
		s.Branches = append(s.Branches, h.branch)
	}

	r.logger.Debug("captured snapshot",
		"branches", len(s.Branches),
		"commits", s.CommitCount(),
		"refs", len(s.References))
	return s, nil
}

// walk collects the commits reachable from tip that no earlier branch has
// claimed. Commits inside the window are claimed and followed to their
// parents; commits before it are recorded without parents and left
// unclaimed.
func (r *Repository) walk(tip plumbing.Hash, after time.Time, walked map[plumbing.Hash]bool) map[string]snapshot.Commit {
	nodes := make(map[string]snapshot.Commit)
	stack := []plumbing.Hash{tip}

	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if walked[h] {
			continue
		}

		c, err := r.repo.CommitObject(h)
		if err != nil {
			r.logger.Debug("missing commit", "hash", h, "error", err)
			continue
		}
		when := c.Committer.When
		if when.Before(after) {
			nodes[h.String()] = snapshot.Commit{Timestamp: when.Unix(), ParentHashes: []string{}}
			continue
		}

		parents := make([]string, 0, len(c.ParentHashes))
		for _, p := range c.ParentHashes {
			parents = append(parents, p.String())
			stack = append(stack, p)
		}
		walked[h] = true
		nodes[h.String()] = snapshot.Commit{Timestamp: when.Unix(), ParentHashes: parents}
	}
	return nodes
}

// tagCommit resolves a tag ref to its commit, peeling annotated tags.
func (r *Repository) tagCommit(h plumbing.Hash) *object.Commit {
	tag, err := r.repo.TagObject(h)
	switch {
	case err == nil:
		c, err := tag.Commit()
		if err != nil {
			return nil
		}
		return c
	case errors.Is(err, plumbing.ErrObjectNotFound):
		c, err := r.repo.CommitObject(h)
		if err != nil {
			return nil
		}
		return c
	}
	return nil
}

// sortedRefs lists hash refs by name so that ref order is reproducible.
func (r *Repository) sortedRefs() ([]*plumbing.Reference, error) {
	iter, err := r.repo.References()
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.ErrCodeInternal, err, "list references")
	}
	return collectRefs(iter)
}

// collectRefs drains iter, keeping hash refs sorted by name.
func collectRefs(iter storer.ReferenceIter) ([]*plumbing.Reference, error) {
	defer iter.Close()

	var refs []*plumbing.Reference
	err := iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() == plumbing.HashReference {
			refs = append(refs, ref)
		}
		return nil
	})
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.ErrCodeInternal, err, "read references")
	}
	slices.SortFunc(refs, func(a, b *plumbing.Reference) int {
		return strings.Compare(a.Name().String(), b.Name().String())
	})
	return refs, nil
}

func isRemoteBranch(ref *plumbing.Reference) bool {
	return ref.Name().IsRemote() && !strings.HasSuffix(ref.Name().String(), "/HEAD")
}
