// Package watch re-runs the gate whenever a root layer file changes. This
// is a local developer convenience; the CI contract stays exit-code based.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/machinenativeops/rootlint/internal/gate"
	"github.com/machinenativeops/rootlint/internal/report"
)

var log = slog.Default().With("component", "watch")

// debounceWindow coalesces editor save bursts into one gate run.
const debounceWindow = 300 * time.Millisecond

// rootFilePattern matches the files a change to which triggers revalidation.
const rootFilePattern = "root.*.{yaml,yml}"

// Notify receives the result of each gate run.
type Notify func(*report.Report, error)

// Run watches cfg.Dir and invokes notify after an initial run and after
// every debounced batch of root file changes. Gate runs are serialized;
// Run blocks until ctx is cancelled.
func Run(ctx context.Context, cfg gate.Config, notify Notify) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(cfg.Dir); err != nil {
		return err
	}

	// Initial pass so the watcher starts from a known state.
	notify(gate.Run(ctx, cfg))

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			log.Debug("root file changed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			notify(gate.Run(ctx, cfg))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		}
	}
}

// relevant filters events down to writes and creations of root layer files.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	match, _ := doublestar.Match(rootFilePattern, filepath.Base(event.Name))
	return match
}
