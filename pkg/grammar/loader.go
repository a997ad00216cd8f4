// Package grammar provides a three-tier grammar loading system for
// tree-sitter languages.
//
// It supports:
//   - Compiled-in (built-in): core grammars linked via CGO at build time
//   - Dynamic: grammars whose shared library is already cached on disk,
//     loaded via purego (Unix) or syscall (Windows) at runtime
//   - Build-from-source: grammars cloned and compiled on demand, then
//     handed to the dynamic tier's cache for the next load
//
// The Loader tries built-in first, then dynamic, then builds from source.
package grammar

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
	"unsafe"

	"github.com/jmylchreest/glimpse/pkg/registry"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Loader provides access to tree-sitter language grammars.
type Loader interface {
	// Load returns the Language for the given name. For compiled-in
	// grammars it returns immediately; for everything else it consults
	// the on-disk cache and, if enabled, builds the grammar from source.
	Load(ctx context.Context, name string) (*tree_sitter.Language, error)

	// Available returns all grammar names known to the language registry.
	Available() []string

	// Installed returns grammars currently available locally (compiled-in
	// plus anything already cached on disk).
	Installed() []GrammarInfo

	// Install builds or downloads a grammar into the local cache without
	// loading it.
	Install(ctx context.Context, name string) error

	// Remove deletes a grammar from the local cache.
	Remove(name string) error
}

// GrammarInfo describes an installed or available grammar.
type GrammarInfo struct {
	Name        string    `json:"name"`
	Version     string    `json:"version,omitempty"`
	BuiltIn     bool      `json:"built_in"`
	Path        string    `json:"path,omitempty"`
	InstalledAt time.Time `json:"installed_at,omitempty"`
}

// BuiltinProvider is a function that returns an unsafe.Pointer to a
// TSLanguage. This is the signature exposed by tree-sitter grammar Go
// bindings.
type BuiltinProvider func() unsafe.Pointer

// ErrGrammarNotFound is returned when a grammar is not available under any tier.
type ErrGrammarNotFound struct {
	Name string
}

func (e *ErrGrammarNotFound) Error() string {
	return fmt.Sprintf("grammar %q not found", e.Name)
}

// ErrDownloadFailed is returned when fetching or building a grammar fails.
type ErrDownloadFailed struct {
	Name string
	Err  error
}

func (e *ErrDownloadFailed) Error() string {
	return fmt.Sprintf("failed to install grammar %q: %v", e.Name, e.Err)
}

func (e *ErrDownloadFailed) Unwrap() error { return e.Err }

// ErrIncompatibleABI is returned when a grammar's ABI version is outside
// the compatible range for the current tree-sitter runtime.
type ErrIncompatibleABI struct {
	Name       string
	AbiVersion uint32
	MinVersion uint32
	MaxVersion uint32
}

func (e *ErrIncompatibleABI) Error() string {
	return fmt.Sprintf(
		"grammar %q has ABI version %d, but runtime supports %d-%d",
		e.Name, e.AbiVersion, e.MinVersion, e.MaxVersion,
	)
}

// ErrGrammarStale is returned when an installed grammar's version does not
// match the loader's version (set with WithVersion). CompositeLoader
// handles this by rebuilding the grammar automatically.
type ErrGrammarStale struct {
	Name             string
	InstalledVersion string
	WantVersion      string
}

func (e *ErrGrammarStale) Error() string {
	return fmt.Sprintf(
		"grammar %q is stale (installed: %s, want: %s)",
		e.Name, e.InstalledVersion, e.WantVersion,
	)
}

// CompositeLoader tries multiple loaders in priority order:
//  1. Built-in grammars (compiled-in via CGO)
//  2. Dynamic grammars (loaded from local cache via purego/syscall)
//  3. Build-from-source (clone + compile, then fall back to tier 2)
type CompositeLoader struct {
	builtin  *BuiltinRegistry
	dynamic  *DynamicLoader
	autoLoad bool // whether to auto-build missing or stale grammars
	logger   *log.Logger

	mu    sync.RWMutex
	cache map[string]*tree_sitter.Language
}

// CompositeLoaderOption configures the CompositeLoader.
type CompositeLoaderOption func(*CompositeLoader)

// WithAutoDownload enables automatic building of missing or stale grammars.
func WithAutoDownload(enabled bool) CompositeLoaderOption {
	return func(cl *CompositeLoader) { cl.autoLoad = enabled }
}

// WithGrammarDir sets the directory used to cache compiled grammar
// libraries and source clones. Defaults to ".glimpse/grammars".
func WithGrammarDir(dir string) CompositeLoaderOption {
	return func(cl *CompositeLoader) {
		version := cl.dynamic.version
		cl.dynamic = NewDynamicLoader(dir)
		cl.dynamic.version = version
	}
}

// WithVersion pins the revision recorded in the manifest for staleness
// checks. An empty string disables staleness checking ("snapshot" mode).
func WithVersion(v string) CompositeLoaderOption {
	return func(cl *CompositeLoader) { cl.dynamic.version = v }
}

// WithLogger sets an optional logger for build/download/staleness events.
func WithLogger(l *log.Logger) CompositeLoaderOption {
	return func(cl *CompositeLoader) { cl.logger = l }
}

func (cl *CompositeLoader) logf(format string, args ...any) {
	if cl.logger != nil {
		cl.logger.Printf(format, args...)
	}
}

// NewCompositeLoader creates a new CompositeLoader with the given options.
func NewCompositeLoader(opts ...CompositeLoaderOption) *CompositeLoader {
	cl := &CompositeLoader{
		builtin:  NewBuiltinRegistry(),
		dynamic:  NewDynamicLoader(""),
		autoLoad: true,
		cache:    make(map[string]*tree_sitter.Language),
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// Load returns the Language for the given name.
func (cl *CompositeLoader) Load(ctx context.Context, name string) (*tree_sitter.Language, error) {
	cl.mu.RLock()
	if lang, ok := cl.cache[name]; ok {
		cl.mu.RUnlock()
		return lang, nil
	}
	cl.mu.RUnlock()

	if lang, err := cl.builtin.Load(name); err == nil {
		cl.store(name, lang)
		return lang, nil
	}

	lang, dynErr := cl.dynamic.Load(name)
	if dynErr == nil {
		cl.store(name, lang)
		return lang, nil
	}

	if !cl.autoLoad {
		return nil, dynErr
	}

	var staleErr *ErrGrammarStale
	var notFoundErr *ErrGrammarNotFound
	switch {
	case errors.As(dynErr, &staleErr):
		cl.logf("grammar %q is stale (installed: %s, want: %s), rebuilding",
			staleErr.Name, staleErr.InstalledVersion, staleErr.WantVersion)
	case errors.As(dynErr, &notFoundErr):
		cl.logf("grammar %q not installed, building from source", notFoundErr.Name)
	default:
		return nil, dynErr
	}

	if err := cl.Install(ctx, name); err != nil {
		return nil, err
	}
	cl.logf("grammar %q installed successfully", name)

	lang, err := cl.dynamic.Load(name)
	if err != nil {
		return nil, err
	}
	cl.store(name, lang)
	return lang, nil
}

func (cl *CompositeLoader) store(name string, lang *tree_sitter.Language) {
	cl.mu.Lock()
	cl.cache[name] = lang
	cl.mu.Unlock()
}

// Available returns all grammar names known to the language registry.
func (cl *CompositeLoader) Available() []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range cl.builtin.Names() {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, entry := range registry.All() {
		if !seen[entry.Name] {
			seen[entry.Name] = true
			names = append(names, entry.Name)
		}
	}
	return names
}

// Installed returns grammars currently available locally.
func (cl *CompositeLoader) Installed() []GrammarInfo {
	builtinNames := cl.builtin.Names()
	dynamicInfos := cl.dynamic.Installed()
	infos := make([]GrammarInfo, 0, len(builtinNames)+len(dynamicInfos))
	for _, name := range builtinNames {
		infos = append(infos, GrammarInfo{Name: name, BuiltIn: true})
	}
	infos = append(infos, dynamicInfos...)
	return infos
}

// Install builds (or re-builds) a grammar into the local cache.
func (cl *CompositeLoader) Install(ctx context.Context, name string) error {
	if cl.builtin.Has(name) {
		return nil
	}

	entry, ok := registry.Get(name)
	if !ok {
		return &ErrGrammarNotFound{Name: name}
	}

	return cl.dynamic.Build(ctx, name, entry)
}

// Remove deletes a grammar from the local cache.
func (cl *CompositeLoader) Remove(name string) error {
	cl.mu.Lock()
	delete(cl.cache, name)
	cl.mu.Unlock()

	return cl.dynamic.Remove(name)
}
