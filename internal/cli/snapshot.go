package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gitway/pkg/errors"
	"github.com/matzehuels/gitway/pkg/gitsource"
	"github.com/matzehuels/gitway/pkg/snapshot"
)

// snapshotOpts holds the command-line flags for the snapshot command.
type snapshotOpts struct {
	output string // output file, stdout when empty
	after  string // window start (unix seconds, RFC 3339 or a duration before --before)
	before string // window end (unix seconds or RFC 3339), now when empty
	fetch  bool   // fetch the remote first
}

// snapshotCommand creates the snapshot command.
func (c *CLI) snapshotCommand() *cobra.Command {
	var opts snapshotOpts

	cmd := &cobra.Command{
		Use:   "snapshot [repository-dir]",
		Short: "Write the branch snapshot of a repository as JSON",
		Long: `Snapshot walks every branch of a repository over a time window and writes
the document that layout, render and serve consume.

Without an argument the configured repository is opened (and cloned if
needed). The window defaults to the configured one ending now.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return c.runSnapshot(cmd.Context(), dir, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&opts.after, "after", "", "window start: unix seconds, RFC 3339, or a duration such as 72h")
	cmd.Flags().StringVar(&opts.before, "before", "", "window end: unix seconds or RFC 3339 (default: now)")
	cmd.Flags().BoolVar(&opts.fetch, "fetch", false, "fetch the remote before taking the snapshot")

	return cmd
}

func (c *CLI) runSnapshot(ctx context.Context, dir string, opts snapshotOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if dir != "" {
		cfg.Directory = dir
		cfg.Repository = ""
	}

	before, after, err := parseWindow(opts.before, opts.after, time.Now(), cfg.WindowDuration())
	if err != nil {
		return err
	}

	repo, err := c.openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	if opts.fetch {
		prog := newProgress(c.Logger)
		if err := repo.Fetch(ctx); err != nil {
			return err
		}
		prog.done("Fetched " + cfg.Repository)
	}

	prog := newProgress(c.Logger)
	snap, err := repo.Snapshot(ctx, before, after)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Walked %d branches", len(snap.Branches)))

	if opts.output == "" {
		return snapshot.Write(snap, os.Stdout)
	}
	if err := snapshot.WriteFile(snap, opts.output); err != nil {
		return err
	}

	printSuccess("Snapshot written")
	printFile(opts.output)
	printDetail("%d branches · %d commits", len(snap.Branches), snap.CommitCount())
	printNextStep("Render it", "gitway render "+opts.output)
	return nil
}

// parseWindow resolves --before and --after. after may also be a duration
// counted back from before.
func parseWindow(beforeFlag, afterFlag string, now time.Time, window time.Duration) (before, after time.Time, err error) {
	before, after = gitsource.Window(now, window)
	if beforeFlag != "" {
		if before, err = parseTime(beforeFlag); err != nil {
			return before, after, err
		}
		after = before.Add(-window)
	}
	if afterFlag != "" {
		if d, derr := time.ParseDuration(afterFlag); derr == nil {
			after = before.Add(-d)
		} else if after, err = parseTime(afterFlag); err != nil {
			return before, after, err
		}
	}
	if !after.Before(before) {
		return before, after, errors.New(errors.ErrCodeInvalidWindow,
			"window start %s is not before its end %s", after.Format(time.RFC3339), before.Format(time.RFC3339))
	}
	return before, after, nil
}

// parseTime accepts unix seconds or RFC 3339.
func parseTime(s string) (time.Time, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New(errors.ErrCodeInvalidInput, "invalid time %q (want unix seconds or RFC 3339)", s)
	}
	return t, nil
}
