package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCacheDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		name string
		xdg  string
		want string
	}{
		{"home default", "", filepath.Join(home, ".cache", "gitway")},
		{"xdg override", "/tmp/xdg-cache", filepath.Join("/tmp/xdg-cache", "gitway")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CACHE_HOME", tt.xdg)
			dir, err := cacheDir()
			if err != nil {
				t.Fatalf("cacheDir() error: %v", err)
			}
			if dir != tt.want {
				t.Errorf("cacheDir() = %q, want %q", dir, tt.want)
			}
		})
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "snapshots/main.json", "snapshots/main"},
		{"", "main", "main"},
		{"out/diagram.svg", "main.json", "out/diagram"},
		{"out/diagram.nodelink.svg", "main.json", "out/diagram.nodelink"},
		{"out/diagram.txt", "main.json", "out/diagram"},
		{"out/diagram.v2", "main.json", "out/diagram.v2"},
	}

	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestLoadConfigDiscovery(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("GITWAY_LISTEN", "")

	c := newTestCLI(t)
	cfg, err := c.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig without a file: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("default Listen = %q", cfg.Listen)
	}

	if err := os.WriteFile(filepath.Join(dir, "gitway.toml"), []byte("listen = \":9090\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = c.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig with gitway.toml: %v", err)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("Listen = %q, want :9090 from gitway.toml", cfg.Listen)
	}
}
