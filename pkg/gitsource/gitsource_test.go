package gitsource

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/matzehuels/gitway/pkg/errors"
	"github.com/matzehuels/gitway/pkg/layout"
	"github.com/matzehuels/gitway/pkg/snapshot"
)

var epoch = time.Unix(1_700_000_000, 0)

var testRules = []Rule{
	{Pattern: `^(origin/)?(master|main)$`, Priority: 0},
	{Pattern: `feature/.+`, Priority: 4},
}

// fixture builds a repository with this history (seconds after epoch):
//
//	master:    m1(50) -- m2(150) -- m3(300)
//	                        \
//	feature/x:               f1(200) -- f2(250)
//
// m2 carries an annotated tag v1.0, m3 a lightweight tag v1.1.
type fixture struct {
	dir        string
	m1, m2, m3 plumbing.Hash
	f1, f2     plumbing.Hash
	repo       *git.Repository
	worktree   *git.Worktree
	t          *testing.T
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	f := &fixture{dir: dir, repo: repo, worktree: wt, t: t}

	f.m1 = f.commit("m1", 50)
	f.m2 = f.commit("m2", 150)
	f.checkout("feature/x", true)
	f.f1 = f.commit("f1", 200)
	f.f2 = f.commit("f2", 250)
	f.checkout("master", false)
	f.m3 = f.commit("m3", 300)

	sig := &object.Signature{Name: "Ada", Email: "ada@example.com", When: epoch}
	if _, err := repo.CreateTag("v1.0", f.m2, &git.CreateTagOptions{Tagger: sig, Message: "release"}); err != nil {
		t.Fatalf("tag: %v", err)
	}
	if _, err := repo.CreateTag("v1.1", f.m3, nil); err != nil {
		t.Fatalf("tag: %v", err)
	}
	return f
}

func (f *fixture) commit(msg string, at int64) plumbing.Hash {
	f.t.Helper()
	h, err := f.worktree.Commit(msg, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author:            &object.Signature{Name: "Ada", Email: "ada@example.com", When: epoch.Add(time.Duration(at) * time.Second)},
	})
	if err != nil {
		f.t.Fatalf("commit %s: %v", msg, err)
	}
	return h
}

func (f *fixture) checkout(branch string, create bool) {
	f.t.Helper()
	err := f.worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: create,
	})
	if err != nil {
		f.t.Fatalf("checkout %s: %v", branch, err)
	}
}

func (f *fixture) open() *Repository {
	f.t.Helper()
	r, err := Open(context.Background(), Options{Directory: f.dir, Rules: testRules, DefaultPriority: 5})
	if err != nil {
		f.t.Fatalf("Open: %v", err)
	}
	return r
}

func branchNamed(s *snapshot.Snapshot, name string) *snapshot.Branch {
	for i := range s.Branches {
		if s.Branches[i].Name == name {
			return &s.Branches[i]
		}
	}
	return nil
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t)
	r := f.open()

	before, after := epoch.Add(400*time.Second), epoch.Add(100*time.Second)
	s, err := r.Snapshot(context.Background(), before, after)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if s.MinTime != after.Unix() || s.MaxTime != before.Unix() {
		t.Errorf("window = %+v", s.Window())
	}
	if len(s.Branches) != 2 || s.Branches[0].Name != "master" || s.Branches[1].Name != "feature/x" {
		t.Fatalf("branches = %+v", s.Branches)
	}

	master := s.Branches[0]
	if master.Priority != 0 || master.LastCommitter != "Ada" || master.LastCommit != epoch.Unix()+300 {
		t.Errorf("master = %+v", master)
	}
	for _, h := range []plumbing.Hash{f.m1, f.m2, f.m3} {
		if !master.Has(h.String()) {
			t.Errorf("master missing %s", h)
		}
	}
	if got := master.Commits[f.m1.String()].ParentHashes; len(got) != 0 {
		t.Errorf("sentinel m1 has parents %v", got)
	}

	feature := s.Branches[1]
	if feature.Priority != 4 {
		t.Errorf("feature priority = %d", feature.Priority)
	}
	if len(feature.Commits) != 2 || !feature.Has(f.f1.String()) || !feature.Has(f.f2.String()) {
		t.Errorf("feature commits = %v", feature.Commits)
	}
	if got := feature.Commits[f.f1.String()].ParentHashes; !slices.Equal(got, []string{f.m2.String()}) {
		t.Errorf("f1 parents = %v, want [m2]", got)
	}

	if refs := s.References[f.m2.String()]; !slices.Contains(refs, snapshot.Ref{Type: snapshot.RefTag, Ref: "v1.0"}) {
		t.Errorf("annotated tag not resolved to m2: %v", refs)
	}
	m3refs := s.References[f.m3.String()]
	if !slices.Contains(m3refs, snapshot.Ref{Type: snapshot.RefTag, Ref: "v1.1"}) ||
		!slices.Contains(m3refs, snapshot.Ref{Type: snapshot.RefBranch, Ref: "master"}) {
		t.Errorf("m3 refs = %v", m3refs)
	}
}

func TestSnapshotSentinelPerBranch(t *testing.T) {
	f := newFixture(t)
	r := f.open()

	// With the window starting after m2, both branches reach m2 from inside
	// the window and each records it as its own sentinel.
	s, err := r.Snapshot(context.Background(), epoch.Add(400*time.Second), epoch.Add(180*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"master", "feature/x"} {
		b := branchNamed(s, name)
		if b == nil || !b.Has(f.m2.String()) {
			t.Errorf("%s lacks sentinel m2", name)
		}
	}
	if branchNamed(s, "master").Has(f.m1.String()) {
		t.Error("walk continued past a sentinel")
	}
}

func TestSnapshotFeedsLayout(t *testing.T) {
	f := newFixture(t)
	r := f.open()
	s, err := r.Snapshot(context.Background(), epoch.Add(400*time.Second), epoch.Add(100*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	data, err := snapshot.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := snapshot.Unmarshal(data)
	if err != nil {
		t.Fatalf("snapshot does not decode: %v", err)
	}

	eng, _ := layout.NewEngine(layout.Options{Width: 300, LaneHeight: 60})
	d, err := eng.Build(decoded)
	if err != nil {
		t.Fatal(err)
	}
	src := layout.NodeID("feature/x", f.f1.String())
	dst := layout.NodeID("master", f.m2.String())
	found := false
	for _, l := range d.LinksOf(layout.LinkDivergence) {
		if l.Source.ID == src && l.Target.ID == dst {
			found = true
		}
	}
	if !found {
		t.Errorf("missing divergence %s -> %s", src, dst)
	}
	if n := d.Node(layout.NodeID("master", f.m1.String())); n == nil || !n.Prehistoric {
		t.Errorf("m1 should be a prehistoric node: %+v", n)
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(context.Background(), Options{Directory: filepath.Join(t.TempDir(), "none")})
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestOpenBadRule(t *testing.T) {
	_, err := Open(context.Background(), Options{Directory: t.TempDir(), Rules: []Rule{{Pattern: "("}}})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestCloneAndFetch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dir := filepath.Join(t.TempDir(), "clone")
	r, err := Open(ctx, Options{URL: f.dir, Directory: dir, Rules: testRules, DefaultPriority: 5})
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if r.GitDir() != dir {
		t.Errorf("GitDir = %s, want bare dir %s", r.GitDir(), dir)
	}

	// A branch deleted upstream disappears after the next fetch.
	if err := f.repo.Storer.RemoveReference(plumbing.NewBranchReferenceName("feature/x")); err != nil {
		t.Fatal(err)
	}
	if err := r.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	s, err := r.Snapshot(ctx, epoch.Add(400*time.Second), epoch.Add(100*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	var labels []string
	for _, b := range s.Branches {
		labels = append(labels, b.Label())
	}
	if !slices.Contains(labels, "master") {
		t.Errorf("branches after fetch = %v, want master", labels)
	}
	if slices.Contains(labels, "x") {
		t.Errorf("deleted branch still present: %v", labels)
	}
}

func TestRanker(t *testing.T) {
	r, err := NewRanker([]Rule{
		{Pattern: `^(origin/)?(master|main)$`, Priority: 0},
		{Pattern: `hotfix/.+`, Priority: 1},
		{Pattern: `release/.+`, Priority: 2},
		{Pattern: `^(origin/)?develop$`, Priority: 3},
		{Pattern: `feature/.+`, Priority: 4},
	}, 5)
	if err != nil {
		t.Fatal(err)
	}
	tests := map[string]int{
		"origin/master":        0,
		"main":                 0,
		"origin/mainline":      5,
		"origin/hotfix/crash":  1,
		"origin/release/2.0":   2,
		"origin/develop":       3,
		"origin/feature/login": 4,
		"origin/renovate/deps": 5,
	}
	for name, want := range tests {
		if got := r.Rank(name); got != want {
			t.Errorf("Rank(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestWindow(t *testing.T) {
	before, after := Window(epoch, time.Hour)
	if !before.Equal(epoch) || !after.Equal(epoch.Add(-time.Hour)) {
		t.Errorf("Window = %v, %v", before, after)
	}
}

// brokenRefIter yields its refs, then fails.
type brokenRefIter struct {
	refs []*plumbing.Reference
	err  error
}

func (it *brokenRefIter) Next() (*plumbing.Reference, error) { return nil, it.err }

func (it *brokenRefIter) ForEach(fn func(*plumbing.Reference) error) error {
	for _, ref := range it.refs {
		if err := fn(ref); err != nil {
			return err
		}
	}
	return it.err
}

func (it *brokenRefIter) Close() {}

func TestCollectRefs(t *testing.T) {
	hash := plumbing.NewHash("0123456789abcdef0123456789abcdef01234567")
	refs := []*plumbing.Reference{
		plumbing.NewHashReference("refs/remotes/origin/main", hash),
		plumbing.NewSymbolicReference("HEAD", "refs/heads/main"),
		plumbing.NewHashReference("refs/heads/main", hash),
	}

	got, err := collectRefs(storer.NewReferenceSliceIter(refs))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, ref := range got {
		names = append(names, ref.Name().String())
	}
	want := []string{"refs/heads/main", "refs/remotes/origin/main"}
	if !slices.Equal(names, want) {
		t.Errorf("collectRefs = %v, want %v", names, want)
	}

	_, err = collectRefs(&brokenRefIter{refs: refs[:1], err: stderrors.New("corrupt packed-refs")})
	if !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("err = %v, want INTERNAL_ERROR", err)
	}
}
