// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"carvel.dev/as3ninja/pkg/cmd/ui"
	uierrs "github.com/cppforlife/go-cli-ui/errors"
	"github.com/fsnotify/fsnotify"
)

// Watcher calls a function again whenever one of the paths it
// reported changes.
type Watcher struct {
	Debounce time.Duration
	// Ignore changes to these paths, for example the output file
	Ignore []string
	UI     ui.UI
}

// Run calls runFunc and then blocks until ctx is done. runFunc returns the
// paths to watch; files are watched through their directory so that
// editors replacing files are noticed.
func (w Watcher) Run(ctx context.Context, runFunc func() ([]string, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("Creating file watcher: %s", err)
	}
	defer watcher.Close()

	ignored := map[string]struct{}{}
	for _, path := range w.Ignore {
		ignored[absPath(path)] = struct{}{}
	}

	watched := map[string]struct{}{}

	run := func() {
		paths, err := runFunc()
		if err != nil {
			w.UI.Errorf("%s\n", uierrs.NewMultiLineError(err))
		}

		for _, path := range paths {
			dir := absPath(path)
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				dir = filepath.Dir(dir)
			}
			if _, found := watched[dir]; found {
				continue
			}
			err := watcher.Add(dir)
			if err != nil {
				w.UI.Warnf("Could not watch '%s': %s\n", dir, err)
				continue
			}
			w.UI.Debugf("Watching '%s'\n", dir)
			watched[dir] = struct{}{}
		}
	}

	run()

	// nil until a change is pending
	var debounce <-chan time.Time

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, found := ignored[absPath(event.Name)]; found {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			debounce = time.After(w.Debounce)

		case <-debounce:
			debounce = nil
			run()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.UI.Warnf("Watching files: %s\n", err)

		case <-ctx.Done():
			return nil
		}
	}
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
