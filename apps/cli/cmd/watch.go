package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/tplspec/packages/core/runner"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond

	// WatchErrorInterval is the minimum gap between repeated watcher error reports
	WatchErrorInterval = 5 * time.Second
)

// watch re-runs the session whenever a test file, an included template
// or a variable source changes, until interrupted.
func (s *session) watch(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watchedDirs := make(map[string]bool)
	addDir := func(dir string) {
		if watchedDirs[dir] {
			return
		}
		if err := watcher.Add(dir); err != nil {
			fmt.Fprintf(s.stderr, "warning: failed to watch %s: %v\n", dir, err)
		}
		watchedDirs[dir] = true
	}
	for _, file := range s.files {
		addDir(filepath.Dir(file))
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			continue
		}
		_ = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				addDir(path)
			}
			return nil
		})
	}

	extras := make(map[string]bool)
	for _, f := range []string{dataFlag, envFileFlag, s.cfg.DataFile, s.cfg.EnvFile} {
		if f == "" {
			continue
		}
		if abs, err := filepath.Abs(f); err == nil {
			extras[abs] = true
			addDir(filepath.Dir(f))
		}
	}

	relevant := func(name string) bool {
		if abs, err := filepath.Abs(name); err == nil && extras[abs] {
			return true
		}
		for _, ext := range s.cfg.Extensions {
			if filepath.Ext(name) == ext {
				return true
			}
		}
		return false
	}

	fmt.Fprintf(s.stderr, "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var (
		mu            sync.Mutex
		debounceTimer *time.Timer
		errorReports  = rate.Sometimes{First: 3, Interval: WatchErrorInterval}
	)
	rerun := func(name string) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Fprintf(s.stderr, "\n\nFile changed: %s\nRe-running tests...\n\n", name)
		files, err := runner.Discover(args, s.cfg.Extensions)
		if err != nil {
			fmt.Fprintf(s.stderr, "Error: %v\n", err)
			return
		}
		s.files = files
		if err := s.reload(); err != nil {
			fmt.Fprintf(s.stderr, "Error: %v\n", err)
			return
		}
		if _, err := s.execute(ctx); err != nil {
			fmt.Fprintf(s.stderr, "Error: %v\n", err)
		}
		fmt.Fprintf(s.stderr, "\nWatching for changes... (press Ctrl+C to stop)\n")
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !relevant(event.Name) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() { rerun(name) })
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			errorReports.Do(func() {
				fmt.Fprintf(s.stderr, "watcher error: %v\n", err)
			})
		}
	}
}
