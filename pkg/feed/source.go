// Package feed supplies snapshots to the pipeline.
//
// A [Source] returns one snapshot document per call; [Poller] calls it on a
// fixed interval and on demand, one pass at a time, and hands every payload
// to a handler together with a sequence number.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/gitway/pkg/buildinfo"
	"github.com/matzehuels/gitway/pkg/cache"
	"github.com/matzehuels/gitway/pkg/errors"
	"github.com/matzehuels/gitway/pkg/gitsource"
	"github.com/matzehuels/gitway/pkg/observability"
	"github.com/matzehuels/gitway/pkg/snapshot"
)

// Source produces snapshot documents.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)

	// Name identifies the source in logs and hooks.
	Name() string
}

// GraphPath is the endpoint serving snapshot documents.
const GraphPath = "/api/graph"

// maxSnapshotSize caps HTTP response bodies.
const maxSnapshotSize = 64 << 20

// =============================================================================
// HTTP
// =============================================================================

// HTTPSource fetches snapshots from a gitway server (or anything serving the
// same document).
type HTTPSource struct {
	url    string
	client *http.Client

	// Window, when set, is sent as ?after=now-Window&before=now.
	Window time.Duration
}

// NewHTTPSource returns a source for base. A base without a path gets
// GraphPath appended.
func NewHTTPSource(base string, client *http.Client) (*HTTPSource, error) {
	if err := errors.ValidateURL(base); err != nil {
		return nil, err
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", base)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = GraphPath
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{url: u.String(), client: client}, nil
}

func (s *HTTPSource) Name() string { return s.url }

// Fetch retries network failures and 5xx responses with backoff.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	var body []byte
	err := cache.RetryWithBackoff(ctx, func() error {
		b, err := s.fetchOnce(ctx)
		body = b
		return err
	})
	return body, err
}

func (s *HTTPSource) fetchOnce(ctx context.Context) ([]byte, error) {
	target := s.url
	if s.Window > 0 {
		now := time.Now()
		q := url.Values{}
		q.Set("before", strconv.FormatInt(now.Unix(), 10))
		q.Set("after", strconv.FormatInt(now.Add(-s.Window).Unix(), 10))
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, cache.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "get %s", s.url))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, cache.Retryable(errors.New(errors.ErrCodeNetwork, "get %s: %s", s.url, resp.Status))
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.New(errors.ErrCodeNotFound, "get %s: %s", s.url, resp.Status)
	case resp.StatusCode >= 400:
		return nil, errors.New(errors.ErrCodeInvalidInput, "get %s: %s", s.url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return nil, cache.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read %s", s.url))
	}
	return body, nil
}

// =============================================================================
// Git
// =============================================================================

// GitSource snapshots a local repository over a window ending now.
type GitSource struct {
	Repo   *gitsource.Repository
	Window time.Duration
	Now    func() time.Time
}

func (s *GitSource) Name() string { return "git:" + s.Repo.GitDir() }

func (s *GitSource) Fetch(ctx context.Context) ([]byte, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	before, after := gitsource.Window(now(), s.Window)
	snap, err := s.Repo.Snapshot(ctx, before, after)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return snapshot.Marshal(snap)
}

// =============================================================================
// File
// =============================================================================

// FileSource re-reads a snapshot file on every fetch.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string { return "file:" + s.Path }

func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return data, nil
}

// =============================================================================
// Instrumentation
// =============================================================================

// instrument wraps a fetch with feed hooks.
func instrument(ctx context.Context, src Source) ([]byte, error) {
	hooks := observability.Feed()
	hooks.OnFetchStart(ctx, src.Name())
	start := time.Now()
	data, err := src.Fetch(ctx)
	hooks.OnFetchComplete(ctx, src.Name(), len(data), time.Since(start), err)
	return data, err
}
