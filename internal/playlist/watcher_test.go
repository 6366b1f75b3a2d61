package playlist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, dir string) *Watcher {
	t.Helper()
	w, err := NewWatcher(dir, zerolog.Nop())
	require.NoError(t, err)

	go w.Start()
	t.Cleanup(w.Stop)

	time.Sleep(100 * time.Millisecond)
	return w
}

// TestWatcherDetectsNewFile verifies the change signal fires when a movie
// file is added to the watched directory.
func TestWatcherDetectsNewFile(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	os.WriteFile(filepath.Join(dir, "new_movie.bml"), []byte("data"), 0644)

	select {
	case <-w.Changed():
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change signal")
	}
}

// TestWatcherDetectsRemoval verifies the signal fires when a file is removed.
func TestWatcherDetectsRemoval(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "existing.bml")
	os.WriteFile(testFile, []byte("data"), 0644)

	w := startWatcher(t, dir)

	os.Remove(testFile)

	select {
	case <-w.Changed():
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for removal signal")
	}
}

// TestWatcherIgnoresOtherFiles expects no signal for files the playlist
// would not pick up.
func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("data"), 0644)

	select {
	case <-w.Changed():
		t.Fatal("unexpected change signal for a non-movie file")
	case <-time.After(300 * time.Millisecond):
	}
}

// TestWatcherStopTwice makes sure Stop can be called repeatedly.
func TestWatcherStopTwice(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Start() }()
	time.Sleep(50 * time.Millisecond)

	w.Stop()
	w.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
