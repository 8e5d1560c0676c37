package control

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/swdee/go-poserender/config"
)

// Watcher reloads the configuration file when it changes and applies it to
// the renderer.  The file's directory is watched so editors replacing the
// file by rename are picked up.
type Watcher struct {
	path     string
	renderer Renderer
	watcher  *fsnotify.Watcher
	logger   logger
	// OnReload is called after a changed configuration has been applied
	OnReload func(config.Config)
}

// NewWatcher starts watching the configuration file at path
func NewWatcher(path string, r Renderer) (*Watcher, error) {

	abs, err := filepath.Abs(path)

	if err != nil {
		return nil, fmt.Errorf("error resolving config path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()

	if err != nil {
		return nil, fmt.Errorf("error creating file watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("error watching %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		renderer: r,
		watcher:  fw,
	}, nil
}

// SetLogger sets the logger used by the watcher
func (w *Watcher) SetLogger(l *slog.Logger) {
	w.logger.set(l)
}

// Run applies configuration changes until ctx is cancelled or the watcher
// is closed
func (w *Watcher) Run(ctx context.Context) error {

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != w.path {
				continue
			}

			switch {
			case event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create:
				w.reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.get().Warn("Config watcher error", "error", err)
		}
	}
}

// reload loads the file and applies it, invalid files are logged and the
// previous settings kept
func (w *Watcher) reload() {

	cfg, err := config.Load(w.path)

	if err != nil {
		w.logger.get().Warn("Config reload failed, keeping previous settings",
			"path", w.path, "error", err)
		return
	}

	ApplyConfig(w.renderer, cfg)

	w.logger.get().Info("Config reloaded", "path", w.path,
		"element", w.renderer.Selector().Load())

	if w.OnReload != nil {
		w.OnReload(cfg)
	}
}

// Close stops watching the file
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
