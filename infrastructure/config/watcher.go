package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher hot-reloads configuration when the YAML overlay file changes.
// Only callbacks registered with OnReload see the new config; settings
// read once at startup (server address, auth) keep their boot values.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	mu       sync.Mutex
	onReload []func(*Config)
	done     chan struct{}
}

// NewWatcher creates a watcher for the given config file.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		path:    path,
		watcher: fsWatcher,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// OnReload registers a callback invoked with the freshly loaded config.
func (w *Watcher) OnReload(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = append(w.onReload, fn)
}

// Start begins watching. Editors replace files rather than writing in
// place, so the parent directory is watched and events are filtered to
// the config path.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.loop()
	return nil
}

// Stop terminates the watch loop.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
}

func (w *Watcher) loop() {
	// Debounce: editors fire several events per save.
	var timer *time.Timer

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(200*time.Millisecond, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig()
	if err != nil {
		w.logger.Error("Failed to reload configuration", zap.Error(err))
		return
	}

	w.logger.Info("Configuration reloaded", zap.String("path", w.path))

	w.mu.Lock()
	callbacks := append([]func(*Config){}, w.onReload...)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}
