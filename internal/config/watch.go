package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/marcus/missionctl/internal/logging"
)

// Watch reloads the config file whenever it changes and hands the new value
// to onChange. Saves that fail validation are ignored so a half-written
// file can't flip feature flags. Watching stops when ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	if path == "" {
		return fmt.Errorf("config watch requires an explicit file path")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}

	// Watch the directory: editors replace files on save, which drops the
	// watch on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	log := logging.Component("config")
	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					log.WarnCtx("ignoring invalid config change", map[string]any{"error": err.Error()})
					continue
				}
				log.Info("config reloaded")
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WarnCtx("config watch error", map[string]any{"error": err.Error()})
			}
		}
	}()

	return nil
}
