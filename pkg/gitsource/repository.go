package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	gwerrors "github.com/matzehuels/gitway/pkg/errors"
)

// DefaultRemote is the remote that is cloned and fetched.
const DefaultRemote = "origin"

// Options configures Open.
type Options struct {
	// URL of the remote. Empty means Directory must already hold a repository.
	URL string
	// Directory is where the repository is cloned to or opened from.
	Directory string
	// User and Token enable basic auth over http(s) when both are set.
	User  string
	Token string

	Rules           []Rule
	DefaultPriority int
	Logger          *log.Logger
}

// Repository is an open repository that can be fetched and snapshotted.
// Fetch and Snapshot may be called from different goroutines.
type Repository struct {
	mu     sync.RWMutex
	repo   *git.Repository
	gitDir string
	auth   transport.AuthMethod
	ranker *Ranker
	logger *log.Logger
}

// Open opens Directory if it holds a repository and clones URL into it
// (bare) otherwise.
func Open(ctx context.Context, opts Options) (*Repository, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if err := gwerrors.ValidatePath(opts.Directory); err != nil {
		return nil, err
	}
	ranker, err := NewRanker(opts.Rules, opts.DefaultPriority)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.ErrCodeInvalidConfig, err, "priority rules")
	}

	r := &Repository{
		auth:   authFor(opts),
		ranker: ranker,
		logger: opts.Logger,
	}

	repo, err := git.PlainOpen(opts.Directory)
	switch {
	case err == nil:
		r.logger.Debug("opened repository", "path", opts.Directory)
	case errors.Is(err, git.ErrRepositoryNotExists) && opts.URL != "":
		if err := gwerrors.ValidateRepositoryURL(opts.URL); err != nil {
			return nil, err
		}
		r.logger.Info("cloning repository", "url", opts.URL, "path", opts.Directory)
		repo, err = git.PlainCloneContext(ctx, opts.Directory, true, &git.CloneOptions{
			URL:        opts.URL,
			Auth:       r.auth,
			RemoteName: DefaultRemote,
			Tags:       git.AllTags,
		})
		if err != nil {
			return nil, gwerrors.Wrap(gwerrors.ErrCodeNetwork, err, "clone %s", opts.URL)
		}
	case errors.Is(err, git.ErrRepositoryNotExists):
		return nil, gwerrors.New(gwerrors.ErrCodeNotFound, "no repository at %s", opts.Directory)
	default:
		return nil, fmt.Errorf("open %s: %w", opts.Directory, err)
	}

	r.repo = repo
	r.gitDir = gitDir(opts.Directory)
	return r, nil
}

func authFor(opts Options) transport.AuthMethod {
	if opts.User == "" || opts.Token == "" {
		return nil
	}
	if !strings.HasPrefix(opts.URL, "http://") && !strings.HasPrefix(opts.URL, "https://") {
		return nil
	}
	return &githttp.BasicAuth{Username: opts.User, Password: opts.Token}
}

// gitDir returns the directory holding refs: dir/.git for a worktree,
// dir itself for a bare repository.
func gitDir(dir string) string {
	dotGit := filepath.Join(dir, git.GitDirName)
	if fi, err := os.Stat(dotGit); err == nil && fi.IsDir() {
		return dotGit
	}
	return dir
}

// GitDir returns the directory holding the repository's refs.
func (r *Repository) GitDir() string { return r.gitDir }

// Fetch drops remote-tracking refs and fetches them again, so branches
// deleted upstream disappear.
func (r *Repository) Fetch(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.repo.Remote(DefaultRemote); errors.Is(err, git.ErrRemoteNotFound) {
		return nil
	}
	if err := r.pruneRemoteRefs(); err != nil {
		return err
	}

	err := r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: DefaultRemote,
		Auth:       r.auth,
		Tags:       git.AllTags,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return gwerrors.Wrap(gwerrors.ErrCodeNetwork, err, "fetch")
	}
	r.logger.Debug("fetched repository")
	return nil
}

func (r *Repository) pruneRemoteRefs() error {
	iter, err := r.repo.References()
	if err != nil {
		return fmt.Errorf("list refs: %w", err)
	}
	var stale []plumbing.ReferenceName
	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().IsRemote() {
			stale = append(stale, ref.Name())
		}
		return nil
	})
	for _, name := range stale {
		if err := r.repo.Storer.RemoveReference(name); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

// FetchLoop fetches every interval until ctx is done. Failures are logged
// and retried on the next tick.
func (r *Repository) FetchLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Fetch(ctx); err != nil {
				r.logger.Warn("fetch failed", "error", err)
			}
		}
	}
}
