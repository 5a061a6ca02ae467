package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/gitway/pkg/cache"
	"github.com/matzehuels/gitway/pkg/errors"
)

const doc = `{"mintime":0,"maxtime":100,"branches":[],"references":{}}`

func TestMain(m *testing.M) {
	cache.RetryDelay = time.Millisecond
	os.Exit(m.Run())
}

func TestNewHTTPSource(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{"http://localhost:8080", "http://localhost:8080/api/graph", false},
		{"http://localhost:8080/", "http://localhost:8080/api/graph", false},
		{"https://example.com/snap.json", "https://example.com/snap.json", false},
		{"ftp://example.com", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			src, err := NewHTTPSource(tt.base, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewHTTPSource(%q) = nil error", tt.base)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewHTTPSource(%q): %v", tt.base, err)
			}
			if src.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", src.Name(), tt.want)
			}
		})
	}
}

func TestHTTPSourceFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != GraphPath {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		w.Write([]byte(doc))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	src.Window = time.Hour

	data, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != doc {
		t.Errorf("Fetch = %q", data)
	}
	if gotQuery == "" {
		t.Error("window not sent as query")
	}
}

func TestHTTPSourceRetries5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(doc))
	}))
	defer srv.Close()

	src, _ := NewHTTPSource(srv.URL, srv.Client())
	if _, err := src.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestHTTPSourceNoRetry4xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	src, _ := NewHTTPSource(srv.URL, srv.Client())
	_, err := src.Fetch(context.Background())
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	src := &FileSource{Path: path}
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("missing file: want error")
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := src.Fetch(context.Background())
	if err != nil || string(data) != doc {
		t.Fatalf("Fetch = %q, %v", data, err)
	}
}

type funcSource func() ([]byte, error)

func (f funcSource) Fetch(context.Context) ([]byte, error) { return f() }
func (f funcSource) Name() string                          { return "func" }

func TestPollerOnceSequence(t *testing.T) {
	var seqs []uint64
	p := NewPoller(funcSource(func() ([]byte, error) { return []byte(doc), nil }), time.Hour,
		func(_ context.Context, seq uint64, _ []byte) error {
			seqs = append(seqs, seq)
			return nil
		}, nil)

	for i := 0; i < 3; i++ {
		if err := p.Once(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if len(seqs) != 3 || seqs[0] != 1 || seqs[2] != 3 {
		t.Errorf("seqs = %v, want [1 2 3]", seqs)
	}
	if p.Seq() != 3 {
		t.Errorf("Seq() = %d", p.Seq())
	}
}

func TestPollerRecoversPanic(t *testing.T) {
	p := NewPoller(funcSource(func() ([]byte, error) { return []byte(doc), nil }), time.Hour,
		func(context.Context, uint64, []byte) error { panic("boom") }, nil)

	if err := p.Once(context.Background()); err == nil {
		t.Fatal("Once after panic = nil error")
	}
}

func TestPollerFetchErrorSkipsHandler(t *testing.T) {
	called := false
	p := NewPoller(funcSource(func() ([]byte, error) { return nil, os.ErrNotExist }), time.Hour,
		func(context.Context, uint64, []byte) error { called = true; return nil }, nil)

	if err := p.Once(context.Background()); err == nil {
		t.Fatal("want fetch error")
	}
	if called {
		t.Error("handler called after failed fetch")
	}
}

func TestPollerRunTrigger(t *testing.T) {
	var mu sync.Mutex
	var seqs []uint64
	passes := make(chan struct{}, 8)

	p := NewPoller(funcSource(func() ([]byte, error) { return []byte(doc), nil }), time.Hour,
		func(_ context.Context, seq uint64, _ []byte) error {
			mu.Lock()
			seqs = append(seqs, seq)
			mu.Unlock()
			passes <- struct{}{}
			return nil
		}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- p.Run(ctx) }()

	wait := func() {
		select {
		case <-passes:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for pass")
		}
	}
	wait() // immediate first pass
	p.Trigger()
	wait()

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run = %v, want context.Canceled", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seqs) < 2 || seqs[0] != 1 || seqs[1] != 2 {
		t.Errorf("seqs = %v", seqs)
	}
}
