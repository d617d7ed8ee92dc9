package overlay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher reloads a template file into a Renderer when it changes on disk.
type Watcher struct {
	log      logrus.FieldLogger
	path     string
	renderer *Renderer
	debounce time.Duration
	onReload func()
	watcher  *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewWatcher loads path into renderer and prepares to watch it. onReload
// runs after each successful reload.
func NewWatcher(
	log logrus.FieldLogger,
	path string,
	renderer *Renderer,
	debounce time.Duration,
	onReload func(),
) (*Watcher, error) {
	w := &Watcher{
		log:      log.WithField("component", "template_watcher"),
		path:     filepath.Clean(path),
		renderer: renderer,
		debounce: debounce,
		onReload: onReload,
		done:     make(chan struct{}),
	}

	if err := w.reload(); err != nil {
		return nil, err
	}

	return w, nil
}

// Start watches the template's directory. Editors often replace files by
// rename, so the directory is watched rather than the file.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()

		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.watcher = watcher

	w.log.WithField("path", w.path).Info("Watching template for changes")

	w.wg.Add(1)

	go w.watchLoop(ctx)

	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if w.watcher != nil {
		return w.watcher.Close()
	}

	return nil
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}

			w.log.WithField("op", event.Op.String()).Debug("Template changed")
			w.scheduleReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			w.log.WithError(err).Error("Template watcher error")
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.reload(); err != nil {
			w.log.WithError(err).Error("Failed to reload template, keeping previous")

			return
		}

		w.log.Info("Reloaded template")

		if w.onReload != nil {
			w.onReload()
		}
	})
}

func (w *Watcher) reload() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}

	return w.renderer.Load(string(data))
}
