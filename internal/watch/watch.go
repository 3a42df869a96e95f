// Package watch rebuilds a site whenever its inputs change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/brim/internal/logfields"
	"git.home.luguber.info/inful/brim/internal/pipeline"
)

// DefaultDebounce is the quiet period after the last change before a rebuild.
const DefaultDebounce = 300 * time.Millisecond

// Builder runs one build.
type Builder interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context) (*pipeline.Result, error)

// Run calls f.
func (f BuilderFunc) Run(ctx context.Context) (*pipeline.Result, error) { return f(ctx) }

// Options configures a Watcher.
type Options struct {
	// Dirs are watched recursively.
	Dirs []string
	// Ignore lists paths whose events never trigger a rebuild, along with
	// everything below them.
	Ignore   []string
	Debounce time.Duration
	// Interval schedules an unconditional rebuild; zero disables it.
	Interval time.Duration
	Log      *slog.Logger
}

// Status is a snapshot of the watcher's build history.
type Status struct {
	Builds       int
	LastError    error
	LastResult   *pipeline.Result
	HasGoodBuild bool
}

// Watcher owns the rebuild loop.
type Watcher struct {
	builder Builder
	opts    Options
	log     *slog.Logger
	ignore  []string

	mu     sync.RWMutex
	status Status

	timerMu sync.Mutex
	timer   *time.Timer
	// Holds at most one queued rebuild; requests made while a build runs
	// collapse into it.
	pending chan struct{}
}

// New returns a Watcher that calls b on every change.
func New(b Builder, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	w := &Watcher{
		builder: b,
		opts:    opts,
		log:     log,
		pending: make(chan struct{}, 1),
	}
	for _, p := range opts.Ignore {
		if abs, err := filepath.Abs(p); err == nil {
			w.ignore = append(w.ignore, abs)
		}
	}
	return w
}

// Status returns the current build status.
func (w *Watcher) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// Run performs an initial build and then rebuilds on change until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fsw.Close() }()
	for _, dir := range w.opts.Dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolve watch dir: %w", err)
		}
		w.addDirsRecursive(fsw, abs)
	}

	w.rebuild(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx)
	}()
	defer wg.Wait()

	if w.opts.Interval > 0 {
		s, err := w.schedule(w.opts.Interval)
		if err != nil {
			return err
		}
		defer func() {
			if err := s.Shutdown(); err != nil {
				w.log.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	w.log.Info("Watching for changes", slog.Any("dirs", w.opts.Dirs))
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			w.log.Info("Watcher stopped")
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) schedule(interval time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			w.log.Debug("Scheduled rebuild")
			w.request()
		}),
		gocron.WithName("periodic-rebuild"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create periodic rebuild job: %w", err)
	}
	s.Start()
	return s, nil
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if ShouldIgnore(ev.Name) || w.ignored(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(fsw, ev.Name)
		}
	}
	w.log.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.trigger()
}

// trigger restarts the debounce timer.
func (w *Watcher) trigger() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, w.request)
}

func (w *Watcher) stopTimer() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) request() {
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

func (w *Watcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.pending:
			w.log.Info("Change detected; rebuilding")
			w.rebuild(ctx)
		}
	}
}

func (w *Watcher) rebuild(ctx context.Context) {
	res, err := w.builder.Run(ctx)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.Builds++
	w.status.LastResult = res
	w.status.LastError = err
	if err != nil {
		w.log.Warn("Rebuild failed", logfields.Error(err))
		return
	}
	w.status.HasGoodBuild = true
}

func (w *Watcher) addDirsRecursive(fsw *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && (ShouldIgnore(path) || w.ignored(path)) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			w.log.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, ex := range w.ignore {
		if abs == ex || strings.HasPrefix(abs, ex+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// ShouldIgnore reports whether path is a hidden or editor temporary file.
func ShouldIgnore(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	}
	return false
}
