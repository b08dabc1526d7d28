package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events an editor save produces
// into a single re-read.
const watchDebounce = 300 * time.Millisecond

// watchAndSpeak reads the file once, then re-reads it every time it
// changes. It blocks until the context is cancelled.
func watchAndSpeak(ctx context.Context, arg string) error {
	target, err := filepath.Abs(arg)
	if err != nil {
		return fmt.Errorf("unable to get absolute path: %w", err)
	}
	if st, err := os.Stat(target); err != nil {
		return fmt.Errorf("unable to watch %s: %w", arg, err)
	} else if st.IsDir() {
		return fmt.Errorf("cannot watch a directory: %s", arg)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the parent directory: most editors replace the file on
	// save, which would silently drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	speak := func() {
		src, err := resolveSource(target)
		if err != nil {
			log.Error("unable to read source", "path", target, "err", err)
			return
		}
		if err := executeSpeak(ctx, src); err != nil && ctx.Err() == nil {
			log.Error("reading failed", "path", target, "err", err)
		}
	}

	speak()
	if ctx.Err() != nil {
		return nil
	}
	fmt.Printf("Watching %s for changes. Press ctrl+c to stop.\n", arg)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending = time.After(watchDebounce)
			}

		case <-pending:
			pending = nil
			log.Debug("source changed", "path", target)
			speak()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", "err", err)
		}
	}
}
