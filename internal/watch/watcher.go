// Package watch re-stages the bundle when the build output changes.
package watch

import (
	"context"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dosanma1/nextdeploy/internal/errs"
)

// Op is the kind of change observed on a path.
type Op int

const (
	OpCreated Op = iota + 1
	OpModified
	OpDeleted
	OpRenamed
)

func (o Op) String() string {
	switch o {
	case OpCreated:
		return "created"
	case OpModified:
		return "modified"
	case OpDeleted:
		return "deleted"
	case OpRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is one changed path.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// Config contains configuration for the watcher.
type Config struct {
	// Dirs are watched recursively. Missing directories are skipped.
	Dirs []string

	// Patterns are glob patterns matched against the base name. Empty
	// matches everything.
	Patterns []string

	// Ignore are glob patterns matched against every path component.
	Ignore []string

	// Debounce is the quiet period before a batch is emitted.
	Debounce time.Duration
}

// DefaultDebounce gives `next build` time to finish writing.
const DefaultDebounce = 300 * time.Millisecond

// DefaultConfig watches dirs for page and asset changes.
func DefaultConfig(dirs ...string) Config {
	return Config{
		Dirs:     dirs,
		Ignore:   []string{".git", "node_modules", "*.map", "*~", ".DS_Store"},
		Debounce: DefaultDebounce,
	}
}

// Watcher coalesces file system events into batches.
type Watcher struct {
	cfg     Config
	fs      *fsnotify.Watcher
	batches chan []Event
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	running bool
	stopped bool
}

// New creates a watcher. Call Start to begin watching.
func New(cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errs.Internal("create file watcher", err)
	}
	return &Watcher{
		cfg:     cfg,
		fs:      fsWatcher,
		batches: make(chan []Event),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start adds the directories and begins processing events.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || w.stopped {
		return nil
	}

	watched := 0
	for _, dir := range w.cfg.Dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		if err := w.addRecursive(dir); err != nil {
			return errs.Internal("watch directory", err).With("dir", dir)
		}
		watched++
	}
	if watched == 0 {
		return errs.Configf("none of the watched directories exist: %s", strings.Join(w.cfg.Dirs, ", "))
	}

	w.running = true
	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.running = false
	close(w.done)
	w.mu.Unlock()

	err := w.fs.Close()
	w.wg.Wait()
	return err
}

// Batches returns the channel of debounced batches, sorted by path.
func (w *Watcher) Batches() <-chan []Event {
	return w.batches
}

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.ignored(d.Name()) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = map[string]Event{}
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			e, ok := w.convert(ev)
			if !ok {
				continue
			}
			if e.Op == OpCreated {
				if info, err := os.Stat(e.Path); err == nil && info.IsDir() {
					if err := w.addRecursive(e.Path); err != nil {
						w.report(err)
					}
				}
			}
			pending[e.Path] = e
			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
			} else {
				timer.Reset(w.cfg.Debounce)
			}
			fire = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.report(err)
		case <-fire:
			fire = nil
			batch := make([]Event, 0, len(pending))
			for _, path := range slices.Sorted(maps.Keys(pending)) {
				batch = append(batch, pending[path])
			}
			clear(pending)
			select {
			case w.batches <- batch:
			case <-ctx.Done():
				return
			case <-w.done:
				return
			}
		}
	}
}

func (w *Watcher) report(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

func (w *Watcher) convert(ev fsnotify.Event) (Event, bool) {
	if !w.accept(ev.Name) {
		return Event{}, false
	}
	var op Op
	switch {
	case ev.Has(fsnotify.Create):
		op = OpCreated
	case ev.Has(fsnotify.Write):
		op = OpModified
	case ev.Has(fsnotify.Remove):
		op = OpDeleted
	case ev.Has(fsnotify.Rename):
		op = OpRenamed
	default:
		return Event{}, false
	}
	return Event{Path: ev.Name, Op: op, Time: time.Now()}, true
}

// accept reports whether path matches a pattern and no ignore pattern.
func (w *Watcher) accept(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if w.ignored(part) {
			return false
		}
	}
	if len(w.cfg.Patterns) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, pattern := range w.cfg.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

func (w *Watcher) ignored(name string) bool {
	for _, pattern := range w.cfg.Ignore {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
