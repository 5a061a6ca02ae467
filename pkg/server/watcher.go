package server

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const debounceTime = 100 * time.Millisecond

// Watcher calls onChange after ref updates in a git directory. Bursts of
// events within debounceTime collapse into one call.
type Watcher struct {
	dir      string
	onChange func()
	logger   *log.Logger
}

// NewWatcher returns a watcher for the git directory dir.
func NewWatcher(dir string, onChange func(), logger *log.Logger) *Watcher {
	return &Watcher{dir: dir, onChange: onChange, logger: logger}
}

// Run watches dir and every directory under dir/refs until ctx is done.
// Directories created under refs later are picked up as they appear.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}
	refs := filepath.Join(w.dir, "refs")
	_ = filepath.WalkDir(refs, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			_ = watcher.Add(path)
		}
		return nil
	})
	w.logger.Info("watching repository for changes", "dir", w.dir)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 && strings.HasPrefix(event.Name, refs) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if shouldIgnoreEvent(event) {
				continue
			}

			w.logger.Debug("change detected", "file", filepath.Base(event.Name))

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceTime, w.onChange)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// shouldIgnoreEvent drops events that never move a ref: removals and
// chmods, lock files, reflogs and the config file. A ref update is a
// rename of a .lock file, which shows up as a Create of the ref.
func shouldIgnoreEvent(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	path := filepath.ToSlash(event.Name)

	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return true
	}
	if strings.HasSuffix(base, ".lock") {
		return true
	}
	if strings.Contains(path, "/logs/") {
		return true
	}
	if base == "config" {
		return true
	}

	return false
}
