package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/quorumhq/quorum/internal/logging"
)

// Observer watches a worker's workspace on the real filesystem and feeds
// file creations into the store's created-set. This is how tool-level
// side effects reach the delete-enforcement machinery without the engine
// seeing individual tool calls. Only meaningful on an OS-backed store;
// in-memory test stores record creations directly.
type Observer struct {
	store    *Store
	workerID string
	watcher  *fsnotify.Watcher
	logger   *logging.Logger
	done     chan struct{}
}

// Observe starts watching the worker's workspace directory tree.
func (s *Store) Observe(workerID string, logger *logging.Logger) (*Observer, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace watcher: %w", err)
	}

	root := s.WorkspacePath(workerID)
	if err := addRecursive(watcher, root); err != nil {
		watcher.Close()
		return nil, err
	}

	o := &Observer{
		store:    s,
		workerID: workerID,
		watcher:  watcher,
		logger:   logger.WithWorker(workerID),
		done:     make(chan struct{}),
	}
	go o.run()
	return o, nil
}

// run drains watcher events until Close.
func (o *Observer) run() {
	defer close(o.done)
	for {
		select {
		case ev, ok := <-o.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				o.store.RecordCreate(o.workerID, ev.Name)
				// New directories must be watched to see files created
				// inside them later.
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := o.watcher.Add(ev.Name); err != nil {
						o.logger.Warn("failed to watch new directory",
							"path", ev.Name, "error", err)
					}
				}
			}
		case err, ok := <-o.watcher.Errors:
			if !ok {
				return
			}
			o.logger.Warn("workspace watcher error", "error", err)
		}
	}
}

// Close stops the observer and waits for its goroutine to exit.
func (o *Observer) Close() error {
	err := o.watcher.Close()
	<-o.done
	return err
}

// addRecursive registers a directory tree with the watcher.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}
