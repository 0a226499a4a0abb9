package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ilertrelay/internal/queue"
	logx "ilertrelay/pkg/logx"
)

var errWatcherClosed = errors.New("event watcher closed")

// watcher fires a debounced trigger when an event file appears in dir.
// Event files appear by rename from a temp name, which inotify reports as
// Create for the final name.
type watcher struct {
	dir      string
	debounce time.Duration
	fire     func(reason string)
	log      logx.Logger
}

// run returns an error when the underlying watcher breaks so the caller
// can recreate it.
func (w *watcher) run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.log.Debug("event watcher started", logx.String("dir", w.dir))

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func(reason string) {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() { w.fire(reason) })
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	// A restart may have missed events.
	schedule("watch")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return errWatcherClosed
			}
			if isEventFile(ev.Name) && ev.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
				w.log.Debug("event file detected", logx.String("file", ev.Name), logx.String("op", ev.Op.String()))
				schedule("watch")
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return errWatcherClosed
			}
			if err == nil {
				continue
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.log.Warn("event watch overflow; forcing flush", logx.Err(err), logx.String("dir", w.dir))
				schedule("overflow")
				continue
			}
			return err
		}
	}
}

func isEventFile(name string) bool {
	return strings.HasSuffix(filepath.Base(name), queue.EventSuffix)
}
