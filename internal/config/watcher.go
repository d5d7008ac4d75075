package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/basket/murmur/internal/bus"
)

// Watcher reloads OrchestratorConfig from path whenever it changes and
// publishes bus.TopicConfigReloaded, for long-running orchestrator daemons
// that should pick up a parallelism or backend change without restarting.
type Watcher struct {
	path   string
	logger *slog.Logger
	bus    *bus.Bus
}

// NewWatcher builds a Watcher for the config file at path.
func NewWatcher(path string, b *bus.Bus, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: path, bus: b, logger: logger}
}

// Start watches the config file in the background until ctx is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.path); err != nil {
		fsw.Close()
		return err
	}

	go func() {
		defer fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				w.logger.Info("orchestrator config changed", "path", ev.Name, "op", ev.Op.String())
				w.bus.Publish(bus.TopicConfigReloaded, bus.ConfigReloadedEvent{Path: ev.Name})
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Error("config watcher error", "error", err)
			}
		}
	}()
	return nil
}
