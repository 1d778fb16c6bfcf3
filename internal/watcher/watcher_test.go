package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seen struct {
	mu    sync.Mutex
	paths []string
}

func (s *seen) add(_ context.Context, p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, filepath.Base(p))
}

func (s *seen) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func TestWatcherReportsSettledAcceptedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "before.txt"), []byte("old"), 0o644))

	onlyText := func(p string) bool { return strings.HasSuffix(p, ".txt") }
	w := New(dir, 100*time.Millisecond, onlyText, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got seen
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, got.add) }()
	// give the watcher a moment to register the directory
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide.txt"), []byte("part one"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), []byte{1, 2, 3}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("x"), 0o644))
	f, err := os.OpenFile(filepath.Join(dir, "guide.txt"), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(" and part two")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool { return len(got.list()) > 0 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, []string{"guide.txt"}, got.list())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatcherSkipsFileRemovedBeforeSettling(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 300*time.Millisecond, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got seen
	go func() { _ = w.Run(ctx, got.add) }()
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "draft.txt")
	require.NoError(t, os.WriteFile(path, []byte("tmp"), 0o644))
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kept.txt"), []byte("kept"), 0o644))

	require.Eventually(t, func() bool { return len(got.list()) > 0 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, []string{"kept.txt"}, got.list())
}

func TestDebounceClaimsOnlyLatestLiveTimer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := newDebounce(time.Hour)
	defer d.stop()

	d.touch(ctx, "a.txt")
	first := settled{name: "a.txt", gen: d.gen}
	d.touch(ctx, "a.txt")
	second := settled{name: "a.txt", gen: d.gen}

	assert.False(t, d.claim(first), "replaced timer fire")
	assert.True(t, d.claim(second))
	assert.False(t, d.claim(second), "already claimed")

	d.touch(ctx, "b.txt")
	gone := settled{name: "b.txt", gen: d.gen}
	d.drop("b.txt")
	assert.False(t, d.claim(gone), "dropped file")
}

func TestWatcherMissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope"), time.Second, nil, nil)
	err := w.Run(context.Background(), func(context.Context, string) {})
	require.Error(t, err)
}
