// Package watch notifies callers when source files under a watched root
// change, so a stale index can be rebuilt promptly instead of only at the
// next explicit scan. Staleness itself is still decided by comparing
// (mtime, size) against the index's fingerprint; a watch event only
// triggers that comparison sooner.
package watch

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var watchLog = log.New(os.Stderr, "[glimpse:watch] ", log.Ltime)

// DefaultDebounceDelay batches bursts of writes (e.g. a save-all in an
// editor) into a single rebuild signal.
const DefaultDebounceDelay = 500 * time.Millisecond

// defaultSkipDirs mirrors the ecosystem directories a reindex should never
// descend into: VCS metadata, dependency caches, and build output.
var defaultSkipDirs = map[string]bool{
	".git": true, ".svn": true, ".hg": true,
	"node_modules": true, "dist": true, ".next": true, ".nuxt": true,
	"__pycache__": true, ".venv": true, "venv": true, ".mypy_cache": true, ".pytest_cache": true,
	"vendor": true, "target": true, "build": true, "out": true,
	"bin": true, "obj": true, "_build": true,
	".idea": true, ".vscode": true,
}

// Config controls which paths are watched and how changes are batched.
type Config struct {
	Paths         []string
	DebounceDelay time.Duration
	// ShouldWatch filters candidate files; nil means watch every file outside
	// defaultSkipDirs and hidden directories. Hidden files and names ending in
	// "~", ".swp" or ".tmp" are dropped either way.
	ShouldWatch func(path string) bool
}

// Watcher reports batches of changed file paths on Changes. A batch is sent
// DebounceDelay after the first event of a burst; events arriving within
// that window join the batch but do not extend the window.
type Watcher struct {
	fs      *fsnotify.Watcher
	config  Config
	changes chan map[string]fsnotify.Op

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu           sync.Mutex
	pending      map[string]fsnotify.Op
	debounceOnce sync.Once
}

// New creates a Watcher. Start must be called to begin watching.
func New(config Config) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = DefaultDebounceDelay
	}

	return &Watcher{
		fs:      fsWatcher,
		config:  config,
		changes: make(chan map[string]fsnotify.Op, 16),
		stop:    make(chan struct{}),
		pending: make(map[string]fsnotify.Op),
	}, nil
}

// Changes delivers one map of changed path -> fsnotify op per debounce
// window. Callers should range over it until the Watcher is stopped.
func (w *Watcher) Changes() <-chan map[string]fsnotify.Op { return w.changes }

// Start walks the configured paths, registers them with the OS watcher, and
// begins processing events in the background.
func (w *Watcher) Start() error {
	paths := w.config.Paths
	if len(paths) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		paths = []string{cwd}
	}

	for _, root := range paths {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if !info.IsDir() {
				return nil
			}
			if defaultSkipDirs[info.Name()] || (len(info.Name()) > 1 && info.Name()[0] == '.') {
				return filepath.SkipDir
			}
			return w.fs.Add(path)
		})
		if err != nil {
			return err
		}
	}

	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop halts watching and closes the Changes channel. Safe to call once.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
	close(w.changes)
	return w.fs.Close()
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					name := filepath.Base(event.Name)
					if !defaultSkipDirs[name] && !strings.HasPrefix(name, ".") {
						_ = w.fs.Add(event.Name)
					}
					continue
				}
			}

			if w.config.ShouldWatch != nil && !w.config.ShouldWatch(event.Name) {
				continue
			}

			name := filepath.Base(event.Name)
			if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
				strings.HasSuffix(name, ".swp") || strings.HasSuffix(name, ".tmp") {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.queueChange(event.Name, event.Op)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			watchLog.Printf("error: %v", err)
		}
	}
}

func (w *Watcher) queueChange(path string, op fsnotify.Op) {
	w.mu.Lock()
	w.pending[path] = op
	w.debounceOnce.Do(func() {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			select {
			case <-time.After(w.config.DebounceDelay):
				w.flushPending()
			case <-w.stop:
				return
			}
		}()
	})
	w.mu.Unlock()
}

func (w *Watcher) flushPending() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.debounceOnce = sync.Once{}
	w.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	select {
	case w.changes <- pending:
	case <-w.stop:
	}
}

// IsRemoval reports whether op represents a file deletion or rename-away.
func IsRemoval(op fsnotify.Op) bool {
	return op&(fsnotify.Remove|fsnotify.Rename) != 0
}
