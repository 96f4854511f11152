package rules

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/good-yellow-bee/pulseboard/internal/models"
)

// reloadDebounce coalesces the burst of filesystem events most
// editors emit on save into a single reload.
const reloadDebounce = 250 * time.Millisecond

// Watcher reloads the seed rules file when it changes on disk and
// hands the parsed rules to a callback. A file that fails to parse is
// logged and skipped; the previous rule set stays active.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	onLoad  func([]*models.AlertRule)
}

// NewWatcher creates a watcher for the given seed rules file.
func NewWatcher(path string, onLoad func([]*models.AlertRule)) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve seed rules path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	return &Watcher{
		path:    absPath,
		watcher: fsw,
		onLoad:  onLoad,
	}, nil
}

// Start begins watching. The parent directory is watched rather than
// the file itself so replace-by-rename saves are seen.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}

	go w.run(ctx)
	return nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("seed rules watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	loaded, err := LoadSeedFile(w.path)
	if err != nil {
		log.Printf("seed rules reload failed, keeping previous set: %v", err)
		return
	}
	log.Printf("seed rules reloaded: %d rules from %s", len(loaded), w.path)
	w.onLoad(loaded)
}
