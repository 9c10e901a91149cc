package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"pingboard/internal/models"
)

// SaveRaw writes raw configuration content to path. Used by the
// update-config endpoint to persist the client auth settings blob.
func SaveRaw(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadRaw returns the raw file content, or "" when the file is missing.
func ReadRaw(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Watcher reloads configuration when the config file changes on disk.
type Watcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch monitors configFile and invokes onReload with the freshly loaded
// configuration after every change. The parent directory is watched so
// rename-based saves are picked up.
func Watch(configFile string, onReload func(models.Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(configFile)
	if err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{watcher: fw, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for {
			select {
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if target, _ := filepath.Abs(event.Name); target != abs {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				log.Printf("✓ Config file changed, reloading: %s", configFile)
				onReload(Load(configFile))
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️ Config watcher error: %v", err)
			}
		}
	}()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
