package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/gitway/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		c, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q): %v", path, err)
		}
		if c.Repository != DefaultRepository || c.Directory != DefaultDirectory {
			t.Errorf("Load(%q) = %+v", path, c)
		}
		if c.FetchEvery() != time.Minute {
			t.Errorf("FetchEvery = %v", c.FetchEvery())
		}
		if c.WindowDuration() != 250*time.Hour {
			t.Errorf("WindowDuration = %v", c.WindowDuration())
		}
		if len(c.Priorities) != len(DefaultPriorities) {
			t.Errorf("Priorities = %v", c.Priorities)
		}
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "gitway.yaml", `
repository: https://example.com/acme/api.git
user: bot
token: s3cret
directory: /tmp/api
fetchinterval: 30
window: 72h
origins: [https://dash.example.com]
priorities:
  - pattern: '^(origin/)?trunk$'
    priority: 0
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Repository != "https://example.com/acme/api.git" || c.FetchInterval != 30 {
		t.Errorf("c = %+v", c)
	}
	if !c.HasAuth() {
		t.Error("HasAuth = false")
	}
	if len(c.Priorities) != 1 || c.Priorities[0].Pattern != "^(origin/)?trunk$" {
		t.Errorf("Priorities = %v", c.Priorities)
	}
	if c.Listen != DefaultListen {
		t.Errorf("Listen = %q, want default", c.Listen)
	}
	if len(c.Origins) != 1 || c.Origins[0] != "https://dash.example.com" {
		t.Errorf("Origins = %v", c.Origins)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "gitway.toml", `
repository = "git@github.com:acme/api.git"
pollinterval = 5
width = 900.0
redis = "redis://localhost:6379/0"

[[priorities]]
pattern = "main"
priority = 0
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.PollEvery() != 5*time.Second || c.Width != 900 || c.Redis == "" {
		t.Errorf("c = %+v", c)
	}
	if c.HasAuth() {
		t.Error("HasAuth = true without credentials")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name, file, content string
		code                errors.Code
	}{
		{"BadYAML", "c.yaml", "repository: [", errors.ErrCodeInvalidConfig},
		{"BadExt", "c.json", "{}", errors.ErrCodeInvalidFormat},
		{"BadWindow", "c.yaml", "window: forever", errors.ErrCodeInvalidConfig},
		{"NegativeWindow", "c.yaml", "window: -1h", errors.ErrCodeInvalidConfig},
		{"BadPattern", "c.yaml", "priorities: [{pattern: '(', priority: 1}]", errors.ErrCodeInvalidConfig},
		{"BadRedis", "c.yaml", "redis: localhost:6379", errors.ErrCodeInvalidConfig},
		{"NegativeInterval", "c.yaml", "fetchinterval: -5", errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvRepository: "https://example.com/other.git",
		EnvToken:      "tok",
		EnvListen:     ":9090",
		EnvFetch:      "15",
	}
	c := &Config{Repository: "https://example.com/file.git", User: "u"}
	c.ApplyEnv(func(k string) string { return env[k] })

	if c.Repository != env[EnvRepository] || c.Listen != ":9090" || c.FetchInterval != 15 {
		t.Errorf("c = %+v", c)
	}
	if c.User != "u" {
		t.Errorf("User overwritten: %q", c.User)
	}
	if !c.HasAuth() {
		t.Error("HasAuth = false")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv(EnvListen, ":7000")
	c, err := Load(writeFile(t, "c.yml", "listen: ':6000'"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Listen != ":7000" {
		t.Errorf("Listen = %q, want env value", c.Listen)
	}
}
