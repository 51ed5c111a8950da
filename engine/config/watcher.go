package config

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to settle.
const DefaultDebounce = 150 * time.Millisecond

type watcher struct {
	fs       *fsnotify.Watcher
	onChange func(sceneID string)
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// Watcher reports descriptor changes in a config directory.
type Watcher interface {
	// Close stops watching and cancels pending notifications.
	//
	// Returns:
	//   - error: an error if the underlying watcher failed to close
	Close() error
}

var _ Watcher = &watcher{}

// NewWatcher watches dir and calls onChange with the scene id of every descriptor that is
// written, created or renamed into place. Bursts of events for one scene are coalesced.
//
// Parameters:
//   - dir: the descriptor directory
//   - onChange: called from a background goroutine with the changed scene id
//   - options: functional options to configure the watcher
//
// Returns:
//   - Watcher: the running watcher
//   - error: an error if the directory could not be watched
func NewWatcher(dir string, onChange func(sceneID string), options ...WatcherBuilderOption) (Watcher, error) {
	if onChange == nil {
		panic("config: NewWatcher requires an onChange callback")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &watcher{
		fs:       fw,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(w)
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			switch {
			case event.Op&fsnotify.Write == fsnotify.Write,
				event.Op&fsnotify.Create == fsnotify.Create,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				if id, ok := SceneIDFromPath(event.Name); ok {
					w.schedule(id)
				}
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

func (w *watcher) schedule(sceneID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.done:
		return
	default:
	}
	if t, ok := w.pending[sceneID]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[sceneID] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, sceneID)
		w.mu.Unlock()
		select {
		case <-w.done:
			return
		default:
		}
		w.logger.Debug("scene descriptor changed", "scene", sceneID)
		w.onChange(sceneID)
	})
}

func (w *watcher) Close() error {
	var err error
	w.once.Do(func() {
		w.mu.Lock()
		close(w.done)
		for id, t := range w.pending {
			t.Stop()
			delete(w.pending, id)
		}
		w.mu.Unlock()
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}
