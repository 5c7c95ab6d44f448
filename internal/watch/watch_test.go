package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/robert-at-pretension-io/rtl-hier/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFlushDebounces(t *testing.T) {
	w, err := New(t.TempDir(), nil, WithDebounce(time.Second))
	require.NoError(t, err)
	defer w.Close()

	now := time.Now()
	w.pending["/p/b.v"] = now.Add(-2 * time.Second)
	w.pending["/p/a.v"] = now.Add(-3 * time.Second)
	w.pending["/p/c.v"] = now

	assert.Equal(t, []string{"/p/a.v", "/p/b.v"}, w.flush(now))
	assert.Equal(t, []string{"/p/c.v"}, w.flush(now.Add(time.Second)))
	assert.Empty(t, w.flush(now.Add(time.Hour)))
	assert.Equal(t, 2, w.Stats().Batches)
}

func TestRunReportsSourceChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "rtl"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	w, err := New(root, config.DefaultConfig(), WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	batches := make(chan []string, 16)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(paths []string) { batches <- paths })
	}()

	target := filepath.Join(root, "rtl", "top.v")
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "x.v"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("module top; endmodule\n"), 0o644))

	seen := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for !seen[target] {
		select {
		case batch := <-batches:
			for _, p := range batch {
				seen[p] = true
			}
		case <-deadline:
			t.Fatalf("no change batch for %s; saw %v", target, seen)
		}
	}
	assert.Len(t, seen, 1)

	cancel()
	require.NoError(t, <-done)
	assert.Positive(t, w.Stats().Created+w.Stats().Modified)
}

func TestRunWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, nil, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	batches := make(chan []string, 16)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(paths []string) { batches <- paths })
	}()

	sub := filepath.Join(root, "ip")
	require.NoError(t, os.Mkdir(sub, 0o755))
	target := filepath.Join(sub, "pll.sv")

	// The new directory is registered asynchronously; keep touching the
	// file until an event arrives.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for found := false; !found; {
		select {
		case batch := <-batches:
			for _, p := range batch {
				found = found || p == target
			}
		case <-ticker.C:
			require.NoError(t, os.WriteFile(target, []byte("module pll; endmodule\n"), 0o644))
		case <-deadline:
			t.Fatalf("no change batch for %s", target)
		}
	}

	cancel()
	require.NoError(t, <-done)
}

func TestNewMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}
