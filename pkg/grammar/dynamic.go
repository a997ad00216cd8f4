package grammar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/glimpse/pkg/registry"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"golang.org/x/sync/singleflight"
)

// DynamicLoader loads tree-sitter grammars from shared libraries cached on
// disk, building them from source via singleflight-deduplicated calls into
// the build pipeline in build.go when the cache misses. On Unix it opens
// the library with purego (dlopen); on Windows it uses syscall.LoadDLL.
type DynamicLoader struct {
	mu       sync.RWMutex
	dir      string // directory holding per-language subdirectories
	version  string // revision pinned for staleness checks ("" disables checks)
	manifest *manifestStore
	loaded   map[string]*tree_sitter.Language
	handles  map[string]uintptr

	build singleflight.Group // collapses concurrent builds of the same language
}

// NewDynamicLoader creates a loader for the given grammar cache directory.
// If dir is empty, it defaults to ".glimpse/grammars" relative to cwd.
func NewDynamicLoader(dir string) *DynamicLoader {
	if dir == "" {
		dir = filepath.Join(".glimpse", "grammars")
	}

	dl := &DynamicLoader{
		dir:      dir,
		manifest: newManifestStore(dir),
		loaded:   make(map[string]*tree_sitter.Language),
		handles:  make(map[string]uintptr),
	}
	_ = dl.manifest.load()
	return dl
}

// Load returns a Language by opening the shared library cached on disk.
func (dl *DynamicLoader) Load(name string) (*tree_sitter.Language, error) {
	dl.mu.RLock()
	if lang, ok := dl.loaded[name]; ok {
		dl.mu.RUnlock()
		return lang, nil
	}
	dl.mu.RUnlock()

	dl.mu.Lock()
	defer dl.mu.Unlock()

	if lang, ok := dl.loaded[name]; ok {
		return lang, nil
	}

	entry := dl.manifest.get(name)
	if entry == nil {
		return nil, &ErrGrammarNotFound{Name: name}
	}

	if dl.version != "" && dl.version != "snapshot" &&
		entry.Version != "" && entry.Version != "snapshot" &&
		entry.Version != dl.version {
		return nil, &ErrGrammarStale{
			Name:             name,
			InstalledVersion: entry.Version,
			WantVersion:      dl.version,
		}
	}

	libPath := filepath.Join(dl.dir, entry.File)
	if _, err := os.Stat(libPath); err != nil {
		return nil, fmt.Errorf("grammar library not found at %s: %w", libPath, err)
	}

	lang, handle, err := openAndLoadLanguage(libPath, entry.CSymbol)
	if err != nil {
		return nil, fmt.Errorf("grammar %q: %w", name, err)
	}

	dl.loaded[name] = lang
	dl.handles[name] = handle
	return lang, nil
}

// Build compiles a grammar from source (cloning its repository if needed)
// and registers the resulting shared library in the manifest, so the next
// Load call finds it on disk. Concurrent Build calls for the same name are
// collapsed into a single build.
func (dl *DynamicLoader) Build(ctx context.Context, name string, entry *registry.Entry) error {
	_, err, _ := dl.build.Do(name, func() (any, error) {
		dl.mu.Lock()
		if dl.manifest.get(name) != nil {
			_ = os.RemoveAll(filepath.Join(dl.dir, name))
		}
		delete(dl.loaded, name)
		delete(dl.handles, name)
		dl.mu.Unlock()

		libFile, sha256sum, buildErr := buildGrammarFromSource(ctx, dl.dir, name, entry)
		if buildErr != nil {
			return nil, &ErrDownloadFailed{Name: name, Err: buildErr}
		}

		dl.mu.Lock()
		dl.manifest.set(name, &ManifestEntry{
			Version:     revision(entry),
			File:        libFile,
			SHA256:      sha256sum,
			CSymbol:     entry.CSymbol,
			InstalledAt: time.Now(),
		})
		saveErr := dl.manifest.save()
		dl.mu.Unlock()
		return nil, saveErr
	})
	return err
}

func revision(entry *registry.Entry) string {
	if entry.Branch != "" {
		return entry.Branch
	}
	return "snapshot"
}

// Installed returns info about all locally cached dynamic grammars.
func (dl *DynamicLoader) Installed() []GrammarInfo {
	entries := dl.manifest.entries()
	infos := make([]GrammarInfo, 0, len(entries))
	for name, entry := range entries {
		infos = append(infos, GrammarInfo{
			Name:        name,
			Version:     entry.Version,
			BuiltIn:     false,
			Path:        filepath.Join(dl.dir, entry.File),
			InstalledAt: entry.InstalledAt,
		})
	}
	return infos
}

// Remove deletes a grammar's shared library, source clone, and manifest entry.
func (dl *DynamicLoader) Remove(name string) error {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	delete(dl.loaded, name)
	delete(dl.handles, name)

	_ = os.RemoveAll(filepath.Join(dl.dir, name))
	_ = os.RemoveAll(filepath.Join(dl.dir, "sources", name))

	dl.manifest.remove(name)
	return dl.manifest.save()
}
