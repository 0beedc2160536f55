// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"carvel.dev/as3ninja/pkg/cmd"
	"carvel.dev/as3ninja/pkg/cmd/ui"
	"github.com/stretchr/testify/require"
)

func TestWatcherRunsAgainOnChange(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "ninja.yaml")
	outPath := filepath.Join(dir, "out.json")
	writeFile(t, configPath, "a: 1\n")

	runs := make(chan struct{}, 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := cmd.Watcher{
		Debounce: 20 * time.Millisecond,
		Ignore:   []string{outPath},
		UI:       ui.NewCustomWriterTTY(false, &lockedBuffer{}, &lockedBuffer{}),
	}

	done := make(chan error, 1)
	go func() {
		done <- watcher.Run(ctx, func() ([]string, error) {
			runs <- struct{}{}
			return []string{configPath}, errors.New("reported, not fatal")
		})
	}()

	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("expected initial run")
	}

	// keep changing the file until the watch is established
	deadline := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

rerun:
	for {
		select {
		case <-runs:
			break rerun
		case <-ticker.C:
			require.NoError(t, os.WriteFile(configPath, []byte("a: 2\n"), 0600))
		case <-deadline:
			t.Fatal("expected run after change")
		}
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("expected watcher to stop")
	}
}

type lockedBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *lockedBuffer) Write(data []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(data)
}
