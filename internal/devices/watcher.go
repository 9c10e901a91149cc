package devices

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the store when devices.json is edited out of band.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	onLoad  func()
}

// NewWatcher starts watching the store's backing file. onLoad, when
// non-nil, runs after every successful reload.
func NewWatcher(store *Store, onLoad func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{store: store, watcher: fw, onLoad: onLoad}

	go w.run()

	// Watch the directory rather than the file itself so write-then-rename
	// updates keep being delivered
	dir := filepath.Dir(store.Path())
	if dir == "" {
		dir = "."
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) run() {
	target, _ := filepath.Abs(w.store.Path())
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, _ := filepath.Abs(event.Name)
			if abs != target {
				continue
			}
			log.Printf("Device file modified: %s", event.Name)
			w.store.Reload()
			if w.onLoad != nil {
				w.onLoad()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  Device file watcher error: %v", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
