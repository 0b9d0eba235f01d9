package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long Stop waits without new events before closing the
// watcher, so writes flushed just before the editor exited are not lost.
const settleDelay = 100 * time.Millisecond

// Tracker records which draft files were created or written in the working
// directory while an editor session ran.
type Tracker struct {
	w      *fsnotify.Watcher
	ext    string
	logger *slog.Logger

	mu      sync.Mutex
	touched map[string]struct{}
	last    time.Time

	done chan struct{}
	once sync.Once
}

// Track starts watching dir (non-recursively) for draft-extension changes.
func Track(dir, draftExt string, logger *slog.Logger) (*Tracker, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	t := &Tracker{
		w:       w,
		ext:     draftExt,
		logger:  logger,
		touched: make(map[string]struct{}),
		last:    time.Now(),
		done:    make(chan struct{}),
	}
	go t.loop()
	return t, nil
}

func (t *Tracker) loop() {
	defer close(t.done)
	for {
		select {
		case ev, ok := <-t.w.Events:
			if !ok {
				return
			}
			t.mu.Lock()
			t.last = time.Now()
			if hasExt(filepath.Base(ev.Name), t.ext) && ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				t.touched[ev.Name] = struct{}{}
			}
			t.mu.Unlock()
		case err, ok := <-t.w.Errors:
			if !ok {
				return
			}
			t.logger.Warn("tracker: watch error", slog.String("error", err.Error()))
		}
	}
}

// Stop waits for the event stream to go quiet, closes the watcher and returns
// the sorted touched drafts that still exist on disk.
func (t *Tracker) Stop() []string {
	t.once.Do(func() {
		for {
			t.mu.Lock()
			idle := time.Since(t.last)
			t.mu.Unlock()
			if idle >= settleDelay {
				break
			}
			time.Sleep(settleDelay - idle)
		}
		_ = t.w.Close()
		<-t.done
	})
	return t.Touched()
}

// Touched returns the drafts seen so far that still exist.
func (t *Tracker) Touched() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.touched))
	for p := range t.touched {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
