// Package cli implements the gitway command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gitway/pkg/buildinfo"
	"github.com/matzehuels/gitway/pkg/cache"
	"github.com/matzehuels/gitway/pkg/config"
	"github.com/matzehuels/gitway/pkg/gitsource"
	"github.com/matzehuels/gitway/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "gitway"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// configNames are looked up in the working directory when --config is not given.
var configNames = []string{"gitway.yaml", "gitway.yml", "gitway.toml", "config.yaml"}

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Gitway draws the branches of a git repository as swimlanes",
		Long: `Gitway renders a live view of a repository's branch topology: one lane per
branch, commits placed by time, and lines showing where branches diverged.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(withLogger(ctx, c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (YAML or TOML)")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.snapshotCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig loads --config, or the first config file found in the working
// directory, or the defaults.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.configPath
	if path == "" {
		for _, name := range configNames {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}
	if path != "" {
		c.Logger.Debug("loading config", "path", path)
	}
	return config.Load(path)
}

// openRepository opens or clones the configured repository.
func (c *CLI) openRepository(ctx context.Context, cfg *config.Config) (*gitsource.Repository, error) {
	rules := make([]gitsource.Rule, len(cfg.Priorities))
	for i, p := range cfg.Priorities {
		rules[i] = gitsource.Rule{Pattern: p.Pattern, Priority: p.Priority}
	}
	return gitsource.Open(ctx, gitsource.Options{
		URL:             cfg.Repository,
		Directory:       cfg.Directory,
		User:            cfg.User,
		Token:           cfg.Token,
		Rules:           rules,
		DefaultPriority: config.DefaultPriority,
		Logger:          c.Logger,
	})
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for one-shot CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, nil, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/gitway/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// basePath derives the base output path for multiple formats. An empty
// output strips the extension from input; a known format extension on
// output is stripped.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	for format := range pipeline.ValidFormats {
		if "."+pipeline.FormatExt(format) == ext {
			return strings.TrimSuffix(output, ext)
		}
	}
	return output
}

// outputPath returns where format is written. A single format goes to
// output verbatim when it is set.
func outputPath(output, input, format string, single bool) string {
	if single && output != "" {
		return output
	}
	path := basePath(output, input) + "." + pipeline.FormatExt(format)
	if path == input {
		path = basePath(output, input) + ".diagram." + pipeline.FormatExt(format)
	}
	return path
}
