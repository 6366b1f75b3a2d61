package playlist

import (
	"path/filepath"
	"sync"

	"amplayd/internal/movie"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher monitors the playlist directory and signals when movie files
// appear or disappear. It does not touch the Playlist; the scheduler always
// re-reads the directory itself. The signal only lets an idle player wake up
// early instead of waiting for its next poll.
type Watcher struct {
	dir       string
	watcher   *fsnotify.Watcher
	changed   chan struct{}
	stopCh    chan struct{}
	closeOnce sync.Once
	logger    zerolog.Logger
}

// NewWatcher creates a Watcher for the given directory. Call Start to begin
// watching.
func NewWatcher(dir string, logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		dir:     dir,
		watcher: fw,
		changed: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		logger:  logger,
	}, nil
}

// Changed returns a channel that receives a value after one or more movie
// files were created, removed or renamed. Bursts of events are coalesced.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Start begins watching the directory for changes. It blocks until
// Stop() is called or the watcher encounters a fatal error.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	w.logger.Debug().Str("dir", w.dir).Msg("monitoring")

	for {
		select {
		case <-w.stopCh:
			w.logger.Debug().Msg("stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if isRelevantEvent(event) {
				w.logger.Debug().Stringer("op", event.Op).Str("file", event.Name).Msg("event")
				w.notify()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watch error")
		}
	}
}

// Stop halts the watcher loop and releases the fsnotify resources.
// It is safe to call more than once.
func (w *Watcher) Stop() {
	w.closeOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
	})
}

func (w *Watcher) notify() {
	select {
	case w.changed <- struct{}{}:
	default:
	}
}

// isRelevantEvent filters for create, remove, and rename events on movie
// files, which are the only ones that change the playlist contents.
func isRelevantEvent(e fsnotify.Event) bool {
	if e.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return movie.IsMovie(filepath.Base(e.Name))
}
