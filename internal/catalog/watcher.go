package catalog

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a catalog directory for edits after load. The catalog
// is immutable at runtime, so the watcher never reloads anything; it only
// reports that changes will take effect on the next start.
type Watcher struct {
	fs     *fsnotify.Watcher
	notify func(msg string)
	done   chan struct{}
}

// Watch starts watching dir. The notify callback receives one message per
// observed change; it must be safe for concurrent use.
func Watch(dir string, notify func(msg string)) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create catalog watcher: %w", err)
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch catalog dir: %w", err)
	}

	w := &Watcher{fs: fs, notify: notify, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.notify(fmt.Sprintf("catalog file %s changed; directives are loaded once, restart to apply", event.Name))
			}
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}
