package document

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/kb-engine/internal/logger"
)

// debounceWindow coalesces bursts of filesystem events into one
// notification. Editors and file copies emit several events per save.
const debounceWindow = 2 * time.Second

// Watcher observes an upload directory and invokes a callback when
// supported files change, so a document source can be re-synced without
// waiting for a manual trigger.
type Watcher struct {
	dir      string
	onChange func()
}

// NewWatcher creates a Watcher for the given upload directory.
func NewWatcher(dir string, onChange func()) *Watcher {
	return &Watcher{
		dir:      dir,
		onChange: onChange,
	}
}

// Run watches the directory until the context is cancelled. Events for
// unsupported extensions are ignored.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			logger.Debug("upload dir change: %s %s", event.Op, event.Name)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			w.onChange()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("upload dir watch error: %v", err)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	_, ok := mimeByExtension[strings.ToLower(filepath.Ext(event.Name))]
	return ok
}
