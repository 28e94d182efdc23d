package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces rapid editor write events.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the config whenever its file changes, until stop is
// closed. A failed reload keeps the previous config.
func (m *Manager) Watch(logger *slog.Logger, stop <-chan struct{}) error {
	if m.path == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.Add(m.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config: %w", err)
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		reload := make(chan struct{}, 1)

		for {
			select {
			case <-stop:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})
			case <-reload:
				if err := m.Load(); err != nil {
					logger.Warn("config reload failed, keeping previous", "error", err)
					continue
				}
				logger.Info("config reloaded", "path", m.path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", "error", err)
			}
		}
	}()

	return nil
}
