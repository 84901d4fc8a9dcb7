package assets

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/framegraph/engine/core"
)

type OnChange func(path string)

type descriptionInfo struct {
	Path        string
	LastChanged time.Time
}

// Watcher reports writes to frame description files. Directories are
// watched rather than files so editors that replace a file on save are
// still seen.
type Watcher struct {
	descriptions map[string]descriptionInfo
	onChange     OnChange

	mutex sync.RWMutex
	wg    sync.WaitGroup

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewWatcher(onChange OnChange) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create watcher")
	}
	w := &Watcher{
		descriptions: make(map[string]descriptionInfo),
		onChange:     onChange,
		fsnotify:     fsWatch,
		done:         make(chan struct{}),
	}
	w.wg.Add(1)
	go w.start()
	return w, nil
}

// Watch tracks a description file, or every description below a directory.
func (w *Watcher) Watch(path string) error {
	w.mutex.Lock()
	closed := w.isClosed
	w.mutex.Unlock()
	if closed {
		return core.ErrWatcherClosed
	}

	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "cannot watch %s", path)
	}
	if info.IsDir() {
		return w.watchRecursive(path)
	}
	if err := w.fsnotify.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "cannot watch %s", path)
	}
	w.track(path)
	return nil
}

// Watched lists the tracked description files.
func (w *Watcher) Watched() []string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	paths := make([]string, 0, len(w.descriptions))
	for p := range w.descriptions {
		paths = append(paths, p)
	}
	return paths
}

func (w *Watcher) Close() error {
	w.mutex.Lock()
	if w.isClosed {
		w.mutex.Unlock()
		return nil
	}
	w.isClosed = true
	w.mutex.Unlock()

	close(w.done)
	w.wg.Wait()
	return nil
}

func (w *Watcher) start() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Create != 0 {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					if err := w.watchRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch %s: %s", e.Name, err)
					}
					continue
				}
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.handleFileEvent(filepath.Clean(e.Name))
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return w.fsnotify.Add(walkPath)
		}
		if _, err := LoaderFor(walkPath); err == nil {
			w.track(filepath.Clean(walkPath))
		}
		return nil
	})
}

func (w *Watcher) track(path string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if _, ok := w.descriptions[path]; !ok {
		w.descriptions[path] = descriptionInfo{Path: path}
	}
}

func (w *Watcher) handleFileEvent(path string) {
	w.mutex.Lock()
	info, ok := w.descriptions[path]
	if ok {
		info.LastChanged = time.Now()
		w.descriptions[path] = info
	}
	w.mutex.Unlock()

	if ok {
		core.LogDebug("description %s changed", path)
		if w.onChange != nil {
			w.onChange(path)
		}
	}
}
