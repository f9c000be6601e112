// Package inbox watches a directory for new video files and reports each one
// once it has stopped changing.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/text/unicode/norm"
)

// Watcher error backoff, as in a filesystem observer: sustained errors (for
// example a kernel queue overflow) must not spin.
const (
	errInitBackoff = time.Second
	errMaxBackoff  = 30 * time.Second
	errBackoffMult = 2
)

// DefaultSettle is how long a file must be quiet before it is reported.
const DefaultSettle = 2 * time.Second

// FsWatcher is the subset of *fsnotify.Watcher the inbox uses.
type FsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyWrapper struct {
	w *fsnotify.Watcher
}

func (f fsnotifyWrapper) Add(name string) error         { return f.w.Add(name) }
func (f fsnotifyWrapper) Close() error                  { return f.w.Close() }
func (f fsnotifyWrapper) Events() <-chan fsnotify.Event { return f.w.Events }
func (f fsnotifyWrapper) Errors() <-chan error          { return f.w.Errors }

// Options configures a Watcher.
type Options struct {
	Dir        string
	Extensions []string
	Settle     time.Duration
	// ScanExisting reports files already in Dir at start.
	ScanExisting bool
}

// Watcher reports settled files in one directory.
type Watcher struct {
	opts   Options
	exts   map[string]bool
	logger *slog.Logger

	// newWatcher is replaceable in tests.
	newWatcher func() (FsWatcher, error)
	sleepFunc  func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a Watcher. Extensions are matched case-insensitively; an
// empty list accepts every regular file.
func New(opts Options, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}

	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}

	return &Watcher{
		opts:   opts,
		exts:   exts,
		logger: logger,
		newWatcher: func() (FsWatcher, error) {
			w, err := fsnotify.NewWatcher()
			if err != nil {
				return nil, err
			}

			return fsnotifyWrapper{w: w}, nil
		},
		sleepFunc: timeSleep,
		pending:   make(map[string]*time.Timer),
	}
}

// Watch sends the path of every settled file to out until ctx is done. A
// file that keeps changing is reported once, after its last change.
func (w *Watcher) Watch(ctx context.Context, out chan<- string) error {
	fw, err := w.newWatcher()
	if err != nil {
		return fmt.Errorf("inbox: creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("inbox: watching %s: %w", w.opts.Dir, err)
	}

	defer w.stopPending()

	w.logger.Info("watching inbox",
		slog.String("dir", w.opts.Dir),
		slog.Duration("settle", w.opts.Settle),
	)

	if w.opts.ScanExisting {
		if err := w.scanExisting(ctx, out); err != nil {
			return err
		}
	}

	errBackoff := errInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events():
			if !ok {
				return nil
			}

			w.handleEvent(ctx, ev, out)
			errBackoff = errInitBackoff

		case watchErr, ok := <-fw.Errors():
			if !ok {
				return nil
			}

			w.logger.Warn("inbox watcher error",
				slog.String("error", watchErr.Error()),
				slog.Duration("backoff", errBackoff),
			)

			if err := w.sleepFunc(ctx, errBackoff); err != nil {
				return nil
			}

			errBackoff = min(errBackoff*errBackoffMult, errMaxBackoff)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event, out chan<- string) {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		if !w.accepts(filepath.Base(ev.Name)) {
			w.logger.Debug("inbox: ignoring file", slog.String("path", ev.Name))
			return
		}

		w.schedule(ctx, ev.Name, out)

	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancel(ev.Name)
	}
}

// schedule (re)starts the settle timer of path.
func (w *Watcher) schedule(ctx context.Context, path string, out chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.opts.Settle)
		return
	}

	w.pending[path] = time.AfterFunc(w.opts.Settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return
		}

		w.logger.Debug("inbox: file settled", slog.String("path", path), slog.Int64("size", info.Size()))

		select {
		case out <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
}

func (w *Watcher) scanExisting(ctx context.Context, out chan<- string) error {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return fmt.Errorf("inbox: reading %s: %w", w.opts.Dir, err)
	}

	for _, e := range entries {
		if !e.Type().IsRegular() || !w.accepts(e.Name()) {
			continue
		}

		select {
		case out <- filepath.Join(w.opts.Dir, e.Name()):
		case <-ctx.Done():
			return nil
		}
	}

	return nil
}

// accepts reports whether name is a candidate upload: not hidden, not a
// partial download or editor temporary, and with a watched extension.
func (w *Watcher) accepts(name string) bool {
	name = norm.NFC.String(name)

	if name == "" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return false
	}

	lower := strings.ToLower(name)

	for _, suffix := range ignoredSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}

	if len(w.exts) == 0 {
		return true
	}

	return w.exts[filepath.Ext(lower)]
}

// ignoredSuffixes are files still being written by another program.
var ignoredSuffixes = []string{".partial", ".tmp", ".swp", ".crdownload", ".part"}

func timeSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
