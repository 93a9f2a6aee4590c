package config

import (
	"context"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/triplemap-go/pkg/model"
)

// DefaultDebounce is how long the watcher waits for more writes before
// reloading.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a schema file when it changes and hands every valid new
// registry to a callback. A file that fails to build is logged and skipped;
// the previous registry stays in use.
type Watcher struct {
	path     string
	debounce time.Duration
	log      zerolog.Logger
	onChange func(*model.Registry)

	fsw  *fsnotify.Watcher
	done chan struct{}

	mu      sync.Mutex
	started bool
	pending bool
	hash    [sha256.Size]byte
}

// NewWatcher prepares a watcher for path. The current content is hashed so
// only real changes trigger a reload.
func NewWatcher(path string, debounce time.Duration, log zerolog.Logger, onChange func(*model.Registry)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watcher needs a change callback")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:     abs,
		debounce: debounce,
		log:      log.With().Str("component", "schema-watcher").Str("path", abs).Logger(),
		onChange: onChange,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	if data, err := os.ReadFile(abs); err == nil {
		w.hash = sha256.Sum256(data)
	}
	return w, nil
}

// Start watches the directory holding the file, so editors that replace the
// file on save are seen too.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = w.fsw.Close()
		return err
	}
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.processEvents(ctx)
	w.log.Info().Dur("debounce", w.debounce).Msg("schema watcher started")
	return nil
}

// Stop stops the watcher and waits for the event loop to exit, if Start got
// that far.
func (w *Watcher) Stop() error {
	err := w.fsw.Close()
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.done
	}
	return err
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.mu.Lock()
				w.pending = true
				w.mu.Unlock()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("watcher error")

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) flushPending() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	data, err := os.ReadFile(w.path)
	if err != nil {
		w.log.Warn().Err(err).Msg("failed to read schema file")
		return
	}
	sum := sha256.Sum256(data)
	if sum == w.hash {
		return
	}

	reg, err := Load(w.path)
	if err != nil {
		w.log.Error().Err(err).Msg("schema file rejected, keeping previous version")
		return
	}
	w.hash = sum
	w.log.Info().Strs("kinds", reg.Kinds()).Msg("schema reloaded")
	w.onChange(reg)
}
