package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSettle is how long the file must stay quiet before onChange runs.
// A single save often arrives as a truncate followed by one or more writes.
const watchSettle = 50 * time.Millisecond

// WatchFile calls onChange whenever path is written, created or replaced.
// The parent directory is watched so editors that save by renaming a
// temporary file are noticed too. Bursts of events are coalesced into one
// call once the file has been quiet for watchSettle. Call stop to release
// the watcher.
func WatchFile(path string, logger *slog.Logger, onChange func()) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	done := make(chan struct{})
	go func() {
		var settle *time.Timer
		defer func() {
			if settle != nil {
				settle.Stop()
			}
		}()

		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				logger.Debug("schedule file changed", "path", path, "op", event.Op.String())
				if settle == nil {
					settle = time.AfterFunc(watchSettle, onChange)
				} else {
					settle.Reset(watchSettle)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("schedule watcher error", "error", err)
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
