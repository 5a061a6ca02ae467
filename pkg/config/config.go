// Package config loads the gitway configuration file.
//
// YAML and TOML are both accepted, chosen by file extension:
//
//	repository: https://github.com/acme/api
//	user: ci-bot
//	token: s3cret
//	directory: repositories/api
//	fetchinterval: 60
//	window: 250h
//	priorities:
//	  - {pattern: '^(origin/)?(master|main)$', priority: 0}
//	  - {pattern: 'feature/.+', priority: 4}
//
// Environment variables override the file; command-line flags override both.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/gitway/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	DefaultRepository    = "https://github.com/PaulFarver/git-way"
	DefaultDirectory     = "repositories/git-way"
	DefaultFetchInterval = 60 // seconds
	DefaultPollInterval  = 10 // seconds
	DefaultListen        = ":8080"
	DefaultWindow        = "250h"
	DefaultWidth         = 1600.0
	DefaultLaneHeight    = 60.0
	DefaultPriority      = 5
)

// DefaultPriorities ranks git-flow branch names: master, hotfix, release,
// develop, feature. Anything else gets DefaultPriority.
var DefaultPriorities = []PriorityRule{
	{Pattern: `^(origin/)?(master|main)$`, Priority: 0},
	{Pattern: `hotfix/.+`, Priority: 1},
	{Pattern: `release/.+`, Priority: 2},
	{Pattern: `^(origin/)?develop$`, Priority: 3},
	{Pattern: `feature/.+`, Priority: 4},
}

// Environment variables read by ApplyEnv.
const (
	EnvRepository = "GITWAY_REPOSITORY"
	EnvUser       = "GITWAY_USER"
	EnvToken      = "GITWAY_TOKEN"
	EnvDirectory  = "GITWAY_DIRECTORY"
	EnvListen     = "GITWAY_LISTEN"
	EnvRedisURL   = "GITWAY_REDIS_URL"
	EnvFetch      = "GITWAY_FETCH_INTERVAL"
)

// =============================================================================
// Config
// =============================================================================

// PriorityRule assigns Priority to branches whose short name matches Pattern.
type PriorityRule struct {
	Pattern  string `yaml:"pattern" toml:"pattern" json:"pattern"`
	Priority int    `yaml:"priority" toml:"priority" json:"priority"`
}

// Config is the full application configuration.
type Config struct {
	Repository    string         `yaml:"repository" toml:"repository"`
	User          string         `yaml:"user" toml:"user"`
	Token         string         `yaml:"token" toml:"token"`
	Directory     string         `yaml:"directory" toml:"directory"`
	FetchInterval int            `yaml:"fetchinterval" toml:"fetchinterval"`
	PollInterval  int            `yaml:"pollinterval" toml:"pollinterval"`
	Listen        string         `yaml:"listen" toml:"listen"`
	Window        string         `yaml:"window" toml:"window"`
	Width         float64        `yaml:"width" toml:"width"`
	LaneHeight    float64        `yaml:"laneheight" toml:"laneheight"`
	Redis         string         `yaml:"redis" toml:"redis"`
	Origins       []string       `yaml:"origins" toml:"origins"`
	Priorities    []PriorityRule `yaml:"priorities" toml:"priorities"`
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills every zero field.
func (c *Config) SetDefaults() {
	if c.Repository == "" {
		c.Repository = DefaultRepository
	}
	if c.Directory == "" {
		c.Directory = DefaultDirectory
	}
	if c.FetchInterval == 0 {
		c.FetchInterval = DefaultFetchInterval
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Window == "" {
		c.Window = DefaultWindow
	}
	if c.Width == 0 {
		c.Width = DefaultWidth
	}
	if c.LaneHeight == 0 {
		c.LaneHeight = DefaultLaneHeight
	}
	if len(c.Priorities) == 0 {
		c.Priorities = append([]PriorityRule(nil), DefaultPriorities...)
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if err := errors.ValidateRepositoryURL(c.Repository); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "repository")
	}
	if err := errors.ValidatePath(c.Directory); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "directory")
	}
	if c.FetchInterval < 0 || c.PollInterval < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "intervals must be positive")
	}
	if d, err := time.ParseDuration(c.Window); err != nil || d <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "window %q is not a positive duration", c.Window)
	}
	if c.Width <= 0 || c.LaneHeight <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "width and laneheight must be positive")
	}
	if c.Redis != "" && !strings.HasPrefix(c.Redis, "redis://") && !strings.HasPrefix(c.Redis, "rediss://") {
		return errors.New(errors.ErrCodeInvalidConfig, "redis must be a redis:// or rediss:// URL")
	}
	for _, r := range c.Priorities {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "priority pattern %q", r.Pattern)
		}
	}
	return nil
}

// FetchEvery returns the repository fetch interval.
func (c *Config) FetchEvery() time.Duration {
	return time.Duration(c.FetchInterval) * time.Second
}

// PollEvery returns the snapshot poll interval.
func (c *Config) PollEvery() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// WindowDuration returns the visible history length. Validate guarantees
// it parses.
func (c *Config) WindowDuration() time.Duration {
	d, _ := time.ParseDuration(c.Window)
	return d
}

// HasAuth reports whether basic auth credentials are configured.
func (c *Config) HasAuth() bool {
	return c.User != "" && c.Token != ""
}

// =============================================================================
// Loading
// =============================================================================

// Load reads path, applies the environment and defaults, and validates.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
		default:
			if err := Unmarshal(path, data, c); err != nil {
				return nil, err
			}
		}
	}
	c.ApplyEnv(os.Getenv)
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Unmarshal decodes data into c using the format implied by name.
func Unmarshal(name string, data []byte, c *Config) error {
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		err = toml.Unmarshal(data, c)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, c)
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unsupported config format %q", filepath.Ext(name))
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", name)
	}
	return nil
}

// ApplyEnv overrides fields from the environment. getenv is os.Getenv
// outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	env := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}
	c.Repository = env(EnvRepository, c.Repository)
	c.User = env(EnvUser, c.User)
	c.Token = env(EnvToken, c.Token)
	c.Directory = env(EnvDirectory, c.Directory)
	c.Listen = env(EnvListen, c.Listen)
	c.Redis = env(EnvRedisURL, c.Redis)
	if v := getenv(EnvFetch); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.FetchInterval = n
		}
	}
}
