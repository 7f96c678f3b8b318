package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReportsSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := New(WithDebounce(50 * time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	paths, err := w.Watch(ctx, dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("png"), 0o644))
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("first"), 0o644))
	require.NoError(t, os.WriteFile(notes, []byte("first and more"), 0o644))

	select {
	case path := <-paths:
		assert.Equal(t, notes, path)
	case <-ctx.Done():
		t.Fatal("timed out waiting for watch event")
	}

	// The burst of writes is reported once and the png never.
	select {
	case path := <-paths:
		t.Fatalf("unexpected path %s", path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	paths, err := w.Watch(ctx, t.TempDir())
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-paths:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Watch(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestIsWatchedExtension(t *testing.T) {
	w, err := New(WithExtensions(".md"))
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, w.isWatchedExtension("README.MD"))
	assert.False(t, w.isWatchedExtension("report.pdf"))
}

func TestSettled(t *testing.T) {
	w := &Watcher{debounce: time.Second}
	now := time.Now()
	pending := map[string]time.Time{
		"b.txt": now.Add(-2 * time.Second),
		"a.txt": now.Add(-time.Second),
		"c.txt": now,
	}

	assert.Equal(t, []string{"a.txt", "b.txt"}, w.settled(pending, now))
	assert.Len(t, pending, 1)
	assert.Contains(t, pending, "c.txt")
}

func TestWatch_TinyDebounce(t *testing.T) {
	w, err := New(WithDebounce(time.Nanosecond))
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, minTick, w.tickInterval())

	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	paths, err := w.Watch(ctx, dir)
	require.NoError(t, err)

	notes := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(notes, []byte("# notes"), 0o644))

	select {
	case path := <-paths:
		assert.Equal(t, notes, path)
	case <-ctx.Done():
		t.Fatal("timed out waiting for watch event")
	}
}

func TestTickInterval(t *testing.T) {
	w, err := New(WithDebounce(500 * time.Millisecond))
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, 250*time.Millisecond, w.tickInterval())
}
