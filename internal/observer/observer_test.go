package observer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3mirror/internal/config"
	"s3mirror/internal/mirror"
)

const eventTimeout = 5 * time.Second

// startObserver starts obs and runs it until the test ends.
func startObserver(t *testing.T, obs mirror.Observer) {
	t.Helper()
	require.NoError(t, obs.Start())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- obs.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(eventTimeout):
			t.Error("observer did not stop")
		}
	})
}

// waitFor reads notifications until want arrives. Unrelated notifications
// (e.g. extra writes) are skipped.
func waitFor(t *testing.T, ch <-chan mirror.Notification, want mirror.Notification) {
	t.Helper()
	deadline := time.After(eventTimeout)
	for {
		select {
		case n, ok := <-ch:
			require.True(t, ok, "notification channel closed while waiting for %+v", want)
			if n == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %+v", want)
		}
	}
}

func testObserverBackend(t *testing.T, newObserver func(root string) mirror.Observer) {
	t.Run("file lifecycle", func(t *testing.T) {
		root, err := filepath.EvalSymlinks(t.TempDir())
		require.NoError(t, err)
		obs := newObserver(root)
		startObserver(t, obs)

		p := filepath.Join(root, "a.txt")
		require.NoError(t, os.WriteFile(p, []byte("one"), 0644))
		waitFor(t, obs.Notifications(), mirror.Notification{Type: mirror.Created, Path: p})

		require.NoError(t, os.Remove(p))
		waitFor(t, obs.Notifications(), mirror.Notification{Type: mirror.Deleted, Path: p})
	})

	t.Run("nested directories", func(t *testing.T) {
		root, err := filepath.EvalSymlinks(t.TempDir())
		require.NoError(t, err)
		obs := newObserver(root)
		startObserver(t, obs)

		dir := filepath.Join(root, "x")
		require.NoError(t, os.Mkdir(dir, 0755))
		waitFor(t, obs.Notifications(), mirror.Notification{Type: mirror.Created, Path: dir, IsDir: true})
		// Let the backend register the new directory's watch.
		time.Sleep(100 * time.Millisecond)

		file := filepath.Join(dir, "c.txt")
		require.NoError(t, os.WriteFile(file, []byte("c"), 0644))
		waitFor(t, obs.Notifications(), mirror.Notification{Type: mirror.Created, Path: file})

		require.NoError(t, os.Remove(file))
		waitFor(t, obs.Notifications(), mirror.Notification{Type: mirror.Deleted, Path: file})

		require.NoError(t, os.Remove(dir))
		waitFor(t, obs.Notifications(), mirror.Notification{Type: mirror.Deleted, Path: dir, IsDir: true})
	})

	t.Run("channel closes on cancel", func(t *testing.T) {
		obs := newObserver(t.TempDir())
		require.NoError(t, obs.Start())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- obs.Run(ctx) }()
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(eventTimeout):
			t.Fatal("Run did not return")
		}
		for range obs.Notifications() {
		}
	})

	t.Run("start fails for missing root", func(t *testing.T) {
		obs := newObserver(filepath.Join(t.TempDir(), "missing"))
		assert.Error(t, obs.Start())
	})
}

func TestFSNotifyObserver(t *testing.T) {
	testObserverBackend(t, func(root string) mirror.Observer {
		return NewFSNotifyObserver(root, mirror.NewNopLogger())
	})

	t.Run("rename within root", func(t *testing.T) {
		root, err := filepath.EvalSymlinks(t.TempDir())
		require.NoError(t, err)
		oldPath := filepath.Join(root, "old.txt")
		require.NoError(t, os.WriteFile(oldPath, []byte("x"), 0644))

		obs := NewFSNotifyObserver(root, mirror.NewNopLogger())
		startObserver(t, obs)

		newPath := filepath.Join(root, "new.txt")
		require.NoError(t, os.Rename(oldPath, newPath))
		waitFor(t, obs.Notifications(), mirror.Notification{Type: mirror.Deleted, Path: oldPath})
		waitFor(t, obs.Notifications(), mirror.Notification{Type: mirror.Created, Path: newPath})
	})

	t.Run("directory created with contents", func(t *testing.T) {
		root, err := filepath.EvalSymlinks(t.TempDir())
		require.NoError(t, err)
		obs := NewFSNotifyObserver(root, mirror.NewNopLogger())
		startObserver(t, obs)

		// Build the tree elsewhere and move it in so its contents predate the watch.
		staging := filepath.Join(root, "..", filepath.Base(root)+"-staging")
		require.NoError(t, os.MkdirAll(filepath.Join(staging, "deep"), 0755))
		t.Cleanup(func() { os.RemoveAll(staging) })
		require.NoError(t, os.WriteFile(filepath.Join(staging, "deep", "f.txt"), nil, 0644))

		moved := filepath.Join(root, "moved")
		require.NoError(t, os.Rename(staging, moved))
		waitFor(t, obs.Notifications(), mirror.Notification{Type: mirror.Created, Path: moved, IsDir: true})
		waitFor(t, obs.Notifications(), mirror.Notification{Type: mirror.Created, Path: filepath.Join(moved, "deep"), IsDir: true})
		waitFor(t, obs.Notifications(), mirror.Notification{Type: mirror.Created, Path: filepath.Join(moved, "deep", "f.txt")})
	})
}

func TestFSNotifyObserver_BurstIntoNewDirectory(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	obs := NewFSNotifyObserver(root, mirror.NewNopLogger())
	startObserver(t, obs)

	const files = 200
	dir := filepath.Join(root, "d")
	require.NoError(t, os.Mkdir(dir, 0755))
	go func() {
		for i := 0; i < files; i++ {
			os.WriteFile(filepath.Join(dir, fmt.Sprintf("f%03d.txt", i)), []byte("x"), 0644)
		}
	}()

	seen := make(map[string]bool)
	deadline := time.After(eventTimeout)
	for len(seen) < files {
		select {
		case n, ok := <-obs.Notifications():
			require.True(t, ok)
			if !n.IsDir && filepath.Dir(n.Path) == dir {
				seen[n.Path] = true
			}
		case <-deadline:
			t.Fatalf("saw %d of %d files", len(seen), files)
		}
	}
}

func TestNotifyObserver(t *testing.T) {
	testObserverBackend(t, func(root string) mirror.Observer {
		return NewNotifyObserver(root, mirror.NewNopLogger())
	})
}

func TestNewObserverFromConfig(t *testing.T) {
	tests := []struct {
		typ      string
		wantType any
		wantErr  bool
	}{
		{typ: "", wantType: &FSNotifyObserver{}},
		{typ: "fsnotify", wantType: &FSNotifyObserver{}},
		{typ: "notify", wantType: &NotifyObserver{}},
		{typ: "polling", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			obs, err := NewObserverFromConfig(config.ObserverConfig{Type: tt.typ}, t.TempDir(), mirror.NewNopLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, obs)
		})
	}
}
