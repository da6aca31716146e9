package config

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/oshokin/alert-hub/internal/logger"
)

// Watch monitors path and calls onChange with the reloaded Config every time
// the file is written. It runs until ctx is canceled.
//
// A reload that fails is logged and skipped; the previous config stays in
// effect.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	if path == "" {
		path = DefaultConfigFilename
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	defer watcher.Close()

	if err = watcher.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	logger.InfoKV(ctx, "Watching settings for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Atomic saves replace the file, which shows up as Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, loadErr := Load(path)
			if loadErr != nil {
				logger.ErrorKV(ctx, "Settings reload failed, keeping previous settings", "path", path, "error", loadErr)

				continue
			}

			logger.InfoKV(ctx, "Settings reloaded", "path", path)
			onChange(cfg)

			// The inode may have changed.
			_ = watcher.Add(path)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.ErrorKV(ctx, "Settings watcher failed", "error", watchErr)
		}
	}
}
