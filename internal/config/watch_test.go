package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/triplemap-go/pkg/model"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(docYAML), 0o644))

	reloads := make(chan *model.Registry, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, zerolog.Nop(), func(r *model.Registry) { reloads <- r })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// a broken file is skipped
	require.NoError(t, os.WriteFile(path, []byte("kinds: [oops"), 0o644))
	select {
	case <-reloads:
		t.Fatal("broken schema must not be delivered")
	case <-time.After(200 * time.Millisecond):
	}

	updated := strings.Replace(docYAML, "name: doc", "name: report", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case reg := <-reloads:
		assert.Equal(t, []string{"report"}, reg.Kinds())
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after change")
	}
}

func TestNewWatcherNeedsCallback(t *testing.T) {
	_, err := NewWatcher("schema.yaml", 0, zerolog.Nop(), nil)
	assert.Error(t, err)
}

func stopsPromptly(t *testing.T, w *Watcher) {
	t.Helper()
	stopped := make(chan struct{})
	go func() {
		_ = w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "schema.yaml"), 0, zerolog.Nop(), func(*model.Registry) {})
	require.NoError(t, err)
	stopsPromptly(t, w)
}

func TestWatcherStartFailsOnMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone", "schema.yaml")
	w, err := NewWatcher(path, 0, zerolog.Nop(), func(*model.Registry) {})
	require.NoError(t, err)

	assert.Error(t, w.Start(context.Background()))
	stopsPromptly(t, w)
}
