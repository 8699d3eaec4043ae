package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventRename, "rename"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.eventType.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEventTypeFromOp(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want EventType
		ok   bool
	}{
		{fsnotify.Create, EventCreate, true},
		{fsnotify.Write, EventModify, true},
		{fsnotify.Remove, EventDelete, true},
		{fsnotify.Rename, EventRename, true},
		{fsnotify.Chmod, 0, false},
	}
	for _, tt := range tests {
		got, ok := eventType(tt.op)
		assert.Equal(t, tt.ok, ok, tt.op.String())
		if ok {
			assert.Equal(t, tt.want, got, tt.op.String())
		}
	}
}

func TestNewValidation(t *testing.T) {
	reload := func() (int, error) { return 0, nil }

	_, err := New("", 0, reload, nil)
	assert.Error(t, err)

	_, err = New("cookies.txt", 0, nil, nil)
	assert.Error(t, err)

	w, err := New("cookies.txt", 0, reload, nil)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(w.Path()))
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestStopWithoutStart(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "cookies.txt"), 0, func() (int, error) { return 0, nil }, discardLogger())
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
}

func TestStartMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "cookies.txt")
	w, err := New(path, 10*time.Millisecond, func() (int, error) { return 0, nil }, discardLogger())
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
}

func startWatcher(t *testing.T, path string, delay time.Duration, reload ReloadFunc) *Watcher {
	t.Helper()
	w, err := New(path, delay, reload, discardLogger())
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestReloadOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(path, []byte("JSESSIONID=a"), 0o600))

	var calls atomic.Int32
	w := startWatcher(t, path, 200*time.Millisecond, func() (int, error) {
		calls.Add(1)
		return 1, nil
	})

	// Several quick writes collapse into one reload.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("JSESSIONID=b"), 0o600))
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	reloads, failures := w.Stats()
	assert.Equal(t, int64(1), reloads)
	assert.Equal(t, int64(0), failures)
}

func TestReloadOnAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cookies.txt")
	require.NoError(t, os.WriteFile(path, []byte("JSESSIONID=a"), 0o600))

	var calls atomic.Int32
	startWatcher(t, path, 20*time.Millisecond, func() (int, error) {
		calls.Add(1)
		return 1, nil
	})

	tmp := filepath.Join(dir, ".cookies.txt.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("JSESSIONID=b"), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cookies.txt")

	var calls atomic.Int32
	startWatcher(t, path, 20*time.Millisecond, func() (int, error) {
		calls.Add(1)
		return 1, nil
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestReloadFailureCounted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")

	w := startWatcher(t, path, 20*time.Millisecond, func() (int, error) {
		return 0, errors.New("no cookies")
	})

	require.NoError(t, os.WriteFile(path, []byte(""), 0o600))

	require.Eventually(t, func() bool {
		_, failures := w.Stats()
		return failures >= 1
	}, 2*time.Second, 10*time.Millisecond)

	reloads, _ := w.Stats()
	assert.Equal(t, int64(0), reloads)
}

func TestStopsWithContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")

	var calls atomic.Int32
	w, err := New(path, 20*time.Millisecond, func() (int, error) {
		calls.Add(1)
		return 1, nil
	}, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()
	require.NoError(t, w.Stop())

	require.NoError(t, os.WriteFile(path, []byte("JSESSIONID=a"), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
