package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce groups the burst of writes a trainer makes when it saves.
const DefaultDebounce = 2 * time.Second

// Watch invokes onSave after the run's counter or index file changes and
// the directory has been quiet for debounce. The checkpoint root is created
// if missing so that the run directory can be picked up when training
// starts. Watch blocks until ctx is done.
func Watch(ctx context.Context, root, runName string, debounce time.Duration, onSave func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	root = filepath.Clean(root)
	runDir := RunDir(root, runName)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create checkpoint root: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if err := w.Add(runDir); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("dir", runDir).Msg("checkpoint watch: run dir not watched")
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name == runDir && ev.Has(fsnotify.Create) {
				if err := w.Add(runDir); err != nil {
					log.Warn().Err(err).Str("dir", runDir).Msg("checkpoint watch: add run dir")
				}
				continue
			}
			if !isProgressFile(runDir, ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			log.Info().Str("dir", runDir).Msg("checkpoint saved")
			onSave()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("checkpoint watch error")
		}
	}
}

func isProgressFile(runDir string, ev fsnotify.Event) bool {
	if filepath.Dir(ev.Name) != runDir {
		return false
	}
	switch filepath.Base(ev.Name) {
	case CounterFile, IndexFile:
		return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
	}
	return false
}
