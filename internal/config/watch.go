package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events editors produce on save.
const DefaultDebounce = 200 * time.Millisecond

// Watch reloads the file at path whenever it changes and calls onChange
// with every config that loads and validates. Invalid edits are logged and
// skipped. It blocks until ctx is done.
//
// The parent directory is watched, so saves that replace the file by
// rename keep being seen.
func Watch(ctx context.Context, path string, debounce time.Duration, log *slog.Logger, onChange func(Config)) error {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", "err", err)

		case <-fire:
			fire = nil
			cfg, err := Load(abs)
			if err != nil {
				log.Warn("config reload failed, keeping previous config", "path", abs, "err", err)
				continue
			}
			log.Info("config reloaded", "path", abs)
			onChange(cfg)
		}
	}
}
