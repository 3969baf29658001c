package toml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reports changes to the accounts file. Bursts of filesystem events,
// such as the temp-file-and-rename done by writeSchema, collapse into one
// callback after the debounce period.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   zerolog.Logger
}

func NewWatcher(path string, debounce time.Duration, logger zerolog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{path: filepath.Clean(path), debounce: debounce, logger: logger}
}

// Run calls onChange after every settled change until ctx is done. The
// parent directory is watched so that atomic replacements are seen.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context)) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, accountsDirMode); err != nil {
		return fmt.Errorf("create accounts directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	timer := newDebounceTimer()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			resetDebounceTimer(timer, w.debounce)
		case <-timer.C:
			w.logger.Debug().Str("path", w.path).Msg("accounts file changed")
			onChange(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("accounts watcher error")
		}
	}
}

func newDebounceTimer() *time.Timer {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	return timer
}

func resetDebounceTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}
