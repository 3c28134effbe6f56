// Package watch hashes files as they appear in a directory. Bursts of write
// events for the same file are collapsed with a per-file timer so a file is
// handled once it has been quiet for the debounce interval.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler is called with the path of a settled file.
type Handler func(ctx context.Context, path string) error

type Options struct {
	Debounce time.Duration
	// Patterns are filepath.Match globs on the base name; empty matches all.
	Patterns []string
	// TailMagic, when set, must be the last bytes of a file for it to be
	// handled.
	TailMagic string
	Logger    *zap.Logger
}

type Watcher struct {
	dir    string
	opts   Options
	handle Handler
	fsw    *fsnotify.Watcher
	log    *zap.Logger

	mu       sync.Mutex
	closed   bool
	timers   map[string]*time.Timer
	inflight sync.WaitGroup
}

func New(dir string, opts Options, handle Handler) (*Watcher, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	return &Watcher{
		dir:    dir,
		opts:   opts,
		handle: handle,
		fsw:    fsw,
		log:    opts.Logger.With(zap.String("dir", dir)),
		timers: make(map[string]*time.Timer),
	}, nil
}

// Run processes events until ctx is done. Pending timers are dropped and
// handlers already running are waited for before it returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.shutdown()
	w.log.Info("watching directory")

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case e, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
				continue
			}
			if !w.matches(e.Name) {
				continue
			}
			w.schedule(ctx, e.Name)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if t, ok := w.timers[name]; ok {
		t.Reset(w.opts.Debounce)
		return
	}
	w.timers[name] = time.AfterFunc(w.opts.Debounce, func() { w.fire(ctx, name) })
}

func (w *Watcher) fire(ctx context.Context, name string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.timers, name)
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	log := w.log.With(zap.String("path", name))

	info, err := os.Stat(name)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	if w.opts.TailMagic != "" {
		ok, err := HasTailMagic(name, w.opts.TailMagic)
		if err != nil {
			log.Warn("read tail magic", zap.Error(err))
			return
		}
		if !ok {
			log.Debug("tail magic not found, skipping")
			return
		}
	}

	if err := w.handle(ctx, name); err != nil {
		log.Error("handle file", zap.Error(err))
	}
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	for name, t := range w.timers {
		t.Stop()
		delete(w.timers, name)
	}
	w.mu.Unlock()

	w.inflight.Wait()
	_ = w.fsw.Close()
}

func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if len(w.opts.Patterns) == 0 {
		return true
	}
	for _, pattern := range w.opts.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// HasTailMagic reports whether the file at path ends with magic.
func HasTailMagic(path, magic string) (bool, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return false, err
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() < int64(len(magic)) {
		return false, nil
	}

	buf := make([]byte, len(magic))
	if _, err := f.ReadAt(buf, info.Size()-int64(len(magic))); err != nil {
		return false, err
	}
	return string(buf) == magic, nil
}
