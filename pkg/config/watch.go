package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the given config file and calls
// onReload after each settled change, until ctx is cancelled. Editors often
// replace files by rename, so the parent directory is watched and events
// are filtered by name; rapid write bursts collapse into one callback.
func Watch(ctx context.Context, filename string, onReload func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(filename)
	if err := w.Add(dir); err != nil {
		return err
	}

	target := filepath.Clean(filename)

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(reloadDebounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(reloadDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return nil

		case <-reloadCh:
			onReload()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case _, ok := <-w.Errors:
			if !ok {
				return nil
			}
		}
	}
}
