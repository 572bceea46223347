package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 100 * time.Millisecond

// Watch reloads the settings whenever the file changes on disk. Reloads are
// handed to post so that they run on the caller's event loop; writes made by
// Save are ignored. The returned function stops the watcher.
func (s *Store) Watch(post func(func())) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	// Editors replace files by rename, so the directory is watched.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var timer *time.Timer
		fire := func() {
			data, err := os.ReadFile(s.path)
			if err == nil && s.ownWrite(data) {
				return
			}
			s.log.Info().Str("path", s.path).Msg("settings file changed, reloading")
			post(s.Load)
		}
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					if timer != nil {
						timer.Stop()
					}
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDelay, fire)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn().Err(werr).Msg("config watcher error")
			}
		}
	}()

	return func() error {
		err := watcher.Close()
		<-done
		return err
	}, nil
}
