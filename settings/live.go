package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/apex/log"
	"github.com/fsnotify/fsnotify"
)

// Live publishes the current settings snapshot. Readers always get a whole,
// consistent record; writers replace it wholesale.
type Live struct {
	cur atomic.Pointer[Settings]
}

// NewLive returns a Live holding s.
func NewLive(s Settings) *Live {
	l := &Live{}
	l.Replace(s)
	return l
}

// Load returns a copy of the current snapshot.
func (l *Live) Load() Settings {
	if p := l.cur.Load(); p != nil {
		return *p
	}
	return Defaults()
}

// Replace publishes s as the new snapshot.
func (l *Live) Replace(s Settings) {
	l.cur.Store(&s)
}

// Watch reloads the snapshot whenever either partition file changes on disk.
// It returns once the watcher is installed; the watch loop stops when ctx is
// done.
func Watch(ctx context.Context, store *Store, live *Live, logger log.Interface) error {
	if err := os.MkdirAll(store.Dir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating settings watcher: %w", err)
	}
	if err := w.Add(store.Dir); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", store.Dir, err)
	}

	const interesting = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				name := filepath.Base(ev.Name)
				if name != syncFileName && name != localFileName {
					continue
				}
				if ev.Op&interesting == 0 {
					continue
				}
				st, err := store.Load()
				if err != nil {
					// A half-written file fails to parse; the next event retries.
					logger.WithError(err).WithField("file", name).Warn("settings reload failed")
					continue
				}
				live.Replace(st)
				logger.WithFields(log.Fields{
					"provider": st.Provider,
					"enabled":  st.Enabled,
				}).Info("settings reloaded")
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Warn("settings watcher error")
			}
		}
	}()
	return nil
}
