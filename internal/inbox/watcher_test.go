package inbox

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWatcher struct {
	events chan fsnotify.Event
	errs   chan error
	added  []string
	addErr error
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan fsnotify.Event, 16), errs: make(chan error, 4)}
}

func (f *fakeWatcher) Add(name string) error {
	f.added = append(f.added, name)
	return f.addErr
}

func (f *fakeWatcher) Close() error                  { return nil }
func (f *fakeWatcher) Events() <-chan fsnotify.Event { return f.events }
func (f *fakeWatcher) Errors() <-chan error          { return f.errs }

func newTestWatcher(t *testing.T, dir string, fw *fakeWatcher) *Watcher {
	t.Helper()

	w := New(Options{Dir: dir, Extensions: []string{".mp4", ".MOV"}, Settle: 30 * time.Millisecond}, slog.Default())
	w.newWatcher = func() (FsWatcher, error) { return fw, nil }
	w.sleepFunc = func(context.Context, time.Duration) error { return nil }

	return w
}

func recv(t *testing.T, ch <-chan string) string {
	t.Helper()

	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for settled file")
		return ""
	}
}

func assertQuiet(t *testing.T, ch <-chan string, d time.Duration) {
	t.Helper()

	select {
	case p := <-ch:
		t.Fatalf("unexpected file reported: %s", p)
	case <-time.After(d):
	}
}

func TestWatch_DebouncesRepeatedWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dune.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	fw := newFakeWatcher()
	w := newTestWatcher(t, dir, fw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan string, 4)
	done := make(chan error, 1)

	go func() { done <- w.Watch(ctx, out) }()

	fw.events <- fsnotify.Event{Name: path, Op: fsnotify.Create}
	for range 5 {
		fw.events <- fsnotify.Event{Name: path, Op: fsnotify.Write}
	}

	assert.Equal(t, path, recv(t, out))
	assertQuiet(t, out, 100*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{dir}, fw.added)
}

func TestWatch_FiltersNames(t *testing.T) {
	dir := t.TempDir()

	fw := newFakeWatcher()
	w := newTestWatcher(t, dir, fw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan string, 4)

	go func() { _ = w.Watch(ctx, out) }()

	for _, name := range []string{"notes.txt", ".hidden.mp4", "~lock.mp4", "clip.mp4.partial", "clip.mp4.crdownload"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
		fw.events <- fsnotify.Event{Name: p, Op: fsnotify.Create}
	}

	mov := filepath.Join(dir, "Trailer.mov")
	require.NoError(t, os.WriteFile(mov, []byte("x"), 0o600))
	fw.events <- fsnotify.Event{Name: mov, Op: fsnotify.Create}

	assert.Equal(t, mov, recv(t, out))
	assertQuiet(t, out, 100*time.Millisecond)
}

func TestWatch_RemoveCancelsPending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.mp4")

	fw := newFakeWatcher()
	w := newTestWatcher(t, dir, fw)
	w.opts.Settle = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan string, 4)

	go func() { _ = w.Watch(ctx, out) }()

	fw.events <- fsnotify.Event{Name: path, Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: path, Op: fsnotify.Remove}

	assertQuiet(t, out, 400*time.Millisecond)
}

func TestWatch_ChmodIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	fw := newFakeWatcher()
	w := newTestWatcher(t, dir, fw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan string, 4)

	go func() { _ = w.Watch(ctx, out) }()

	fw.events <- fsnotify.Event{Name: path, Op: fsnotify.Chmod}

	assertQuiet(t, out, 100*time.Millisecond)
}

func TestWatch_ScanExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.mp4"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.mp4"), 0o700))

	fw := newFakeWatcher()
	w := newTestWatcher(t, dir, fw)
	w.opts.ScanExisting = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan string, 4)

	go func() { _ = w.Watch(ctx, out) }()

	assert.Equal(t, filepath.Join(dir, "old.mp4"), recv(t, out))
	assertQuiet(t, out, 100*time.Millisecond)
}

func TestWatch_ErrorsBackOffAndContinue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	fw := newFakeWatcher()
	w := newTestWatcher(t, dir, fw)

	slept := make(chan time.Duration, 4)

	w.sleepFunc = func(_ context.Context, d time.Duration) error {
		slept <- d
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan string, 4)

	go func() { _ = w.Watch(ctx, out) }()

	fw.errs <- errors.New("queue overflow")
	assert.Equal(t, errInitBackoff, <-slept)

	fw.errs <- errors.New("queue overflow")
	assert.Equal(t, errInitBackoff*errBackoffMult, <-slept)

	fw.events <- fsnotify.Event{Name: path, Op: fsnotify.Create}
	assert.Equal(t, path, recv(t, out))
}

func TestWatch_AddFails(t *testing.T) {
	fw := newFakeWatcher()
	fw.addErr = errors.New("no such dir")

	w := newTestWatcher(t, "/nonexistent", fw)

	err := w.Watch(context.Background(), make(chan string))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watching /nonexistent")
}

func TestWatch_RealFilesystem(t *testing.T) {
	dir := t.TempDir()

	w := New(Options{Dir: dir, Extensions: []string{".mp4"}, Settle: 50 * time.Millisecond}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan string, 4)
	started := make(chan struct{})

	go func() {
		close(started)
		_ = w.Watch(ctx, out)
	}()

	<-started
	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "new.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video"), 0o600))

	assert.Equal(t, path, recv(t, out))
}

func TestAccepts_NoExtensionFilter(t *testing.T) {
	w := New(Options{Dir: "."}, nil)

	assert.True(t, w.accepts("anything.bin"))
	assert.False(t, w.accepts(".DS_Store"))
	assert.False(t, w.accepts("upload.tmp"))
	assert.Equal(t, DefaultSettle, w.opts.Settle)
}
