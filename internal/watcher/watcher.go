// Package watcher turns files dropped into a directory into ingestion
// requests.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"supportbot/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports a file once it has stopped changing for the settle period.
// Files already present when Run starts are not reported.
type Watcher struct {
	dir    string
	settle time.Duration
	accept func(path string) bool
	log    *logging.Logger
}

// New builds a watcher over dir. accept filters candidate paths; nil accepts
// everything except hidden and editor temp files.
func New(dir string, settle time.Duration, accept func(path string) bool, log *logging.Logger) *Watcher {
	if log == nil {
		log = logging.Nop()
	}
	if settle <= 0 {
		settle = 2 * time.Second
	}
	return &Watcher{dir: dir, settle: settle, accept: accept, log: log.With("component", "watcher", "dir", dir)}
}

// Run blocks until ctx is done, calling fn from the Run goroutine for each
// settled file.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, path string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Info("watching for documents", "settle", w.settle)

	d := newDebounce(w.settle)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			name := ev.Name
			switch {
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				d.drop(name)
			case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
				if w.wants(name) {
					d.touch(ctx, name)
				}
			}
		case s := <-d.ready:
			if d.claim(s) {
				fn(ctx, s.name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("fs watcher error", "error", err)
		}
	}
}

type settled struct {
	name string
	gen  uint64
}

type pendingFile struct {
	timer *time.Timer
	gen   uint64
}

// debounce tracks one settle timer per path. Only the fire of the latest
// timer for a path still pending can be claimed; a timer that fired before
// it was replaced or dropped is ignored. Not safe for concurrent use apart
// from the timers sending on ready.
type debounce struct {
	settle  time.Duration
	ready   chan settled
	pending map[string]pendingFile
	gen     uint64
}

func newDebounce(settle time.Duration) *debounce {
	return &debounce{settle: settle, ready: make(chan settled), pending: map[string]pendingFile{}}
}

func (d *debounce) touch(ctx context.Context, name string) {
	if p, ok := d.pending[name]; ok {
		p.timer.Stop()
	}
	d.gen++
	s := settled{name: name, gen: d.gen}
	d.pending[name] = pendingFile{gen: s.gen, timer: time.AfterFunc(d.settle, func() {
		select {
		case d.ready <- s:
		case <-ctx.Done():
		}
	})}
}

func (d *debounce) drop(name string) {
	if p, ok := d.pending[name]; ok {
		p.timer.Stop()
		delete(d.pending, name)
	}
}

func (d *debounce) claim(s settled) bool {
	p, ok := d.pending[s.name]
	if !ok || p.gen != s.gen {
		return false
	}
	delete(d.pending, s.name)
	return true
}

func (d *debounce) stop() {
	for name, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, name)
	}
}

func (w *Watcher) wants(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") || strings.HasSuffix(base, "~") {
		return false
	}
	if w.accept == nil {
		return true
	}
	return w.accept(path)
}
