package schema

import (
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher drops cache entries when schema files change on disk. This is
// the only implicit reload path; edits to templated documents never touch
// the cache. Invalidations are echoed on a channel so a session can
// re-check open documents.
type Watcher struct {
	cache *Cache
	fw    *fsnotify.Watcher

	invC chan string
	erC  chan error

	closeOnce sync.Once
	done      chan struct{}
}

// NewWatcher starts the event loop. Callers must Close it.
func NewWatcher(cache *Cache) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		cache: cache,
		fw:    fw,
		invC:  make(chan string, 16),
		erC:   make(chan error, 1),
		done:  make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Add starts watching a schema file.
func (w *Watcher) Add(path string) error { return w.fw.Add(path) }

// Remove stops watching a schema file.
func (w *Watcher) Remove(path string) error { return w.fw.Remove(path) }

// Invalidations reports paths whose cache entries were just dropped. The
// channel coalesces: when nobody is listening, notifications are discarded
// after the invalidation itself has happened.
func (w *Watcher) Invalidations() <-chan string { return w.invC }

// Errors reports watch failures.
func (w *Watcher) Errors() <-chan error { return w.erC }

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.cache.Invalidate(ev.Name)
			select {
			case w.invC <- ev.Name:
			default:
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			select {
			case w.erC <- err:
			default:
			}
		case <-w.done:
			return
		}
	}
}

// Close stops the loop and releases the underlying watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fw.Close()
	})
	return err
}
