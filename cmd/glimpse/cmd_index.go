package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/glimpse/pkg/extract"
	"github.com/jmylchreest/glimpse/pkg/glimpseconfig"
	"github.com/jmylchreest/glimpse/pkg/grammar"
	"github.com/jmylchreest/glimpse/pkg/ignore"
	"github.com/jmylchreest/glimpse/pkg/index"
	"github.com/jmylchreest/glimpse/pkg/registry"
	"github.com/jmylchreest/glimpse/pkg/watch"
)

// cmdIndex scans the given paths (or the project root if none are given),
// extracts definitions/calls/imports from every recognised source file, and
// persists the result under root's index directory. With --watch it keeps
// running and incrementally reindexes files as they change.
func cmdIndex(root string, args []string) error {
	force := hasFlag(args, "--force")
	watchMode := hasFlag(args, "--watch")
	paths := positionalArgs(args)
	if len(paths) == 0 {
		paths = []string{"."}
	}

	cfg, err := glimpseconfig.Load(root, "")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	matcher, err := ignore.New(root)
	if err != nil {
		return fmt.Errorf("loading ignore rules: %w", err)
	}

	loader := grammar.NewCompositeLoader(
		grammar.WithGrammarDir(filepath.Join(cfg.CacheDir, "grammars")),
		grammar.WithAutoDownload(true),
		grammar.WithLogger(newLogger("[glimpse:grammar] ")),
	)
	extractor := extract.New(loader)

	ix, err := index.Load(root)
	if err != nil {
		return fmt.Errorf("loading existing index: %w", err)
	}
	if ix == nil {
		ix = index.New()
	}

	ctx := context.Background()
	log := newLogger("[glimpse:index] ")

	scan := func() (int, error) {
		return scanPaths(ctx, root, paths, matcher, extractor, ix, force, log)
	}

	changed, err := scan()
	if err != nil {
		return err
	}
	if err := ix.Save(root); err != nil {
		return fmt.Errorf("saving index: %w", err)
	}
	log.Printf("indexed %d file(s), %d definition(s) total", changed, countDefinitions(ix))

	if !watchMode {
		return nil
	}

	absPaths := make([]string, len(paths))
	for i, p := range paths {
		abs, err := filepath.Abs(filepath.Join(root, p))
		if err != nil {
			return fmt.Errorf("resolving watch path %s: %w", p, err)
		}
		absPaths[i] = abs
	}

	w, err := watch.New(watch.Config{
		Paths:         absPaths,
		DebounceDelay: watch.DefaultDebounceDelay,
		ShouldWatch: func(path string) bool {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return true
			}
			return !matcher.ShouldIgnoreFile(filepath.ToSlash(rel))
		},
	})
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Stop()

	log.Printf("watching for changes; press Ctrl+C to stop")
	for changes := range w.Changes() {
		reindexed := 0
		for path, op := range changes {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if watch.IsRemoval(op) {
				ix.Remove(rel)
				continue
			}
			if err := indexFile(ctx, root, rel, extractor, ix, true, log); err != nil {
				log.Printf("reindexing %s: %v", rel, err)
				continue
			}
			reindexed++
		}
		if err := ix.Save(root); err != nil {
			log.Printf("saving index: %v", err)
			continue
		}
		log.Printf("reindexed %d file(s) after change", reindexed)
	}

	return nil
}

// scanPaths walks every given path under root, skipping anything the
// ignore matcher excludes, and indexes files whose language is recognised
// and whose fingerprint has changed (unless force is set).
func scanPaths(ctx context.Context, root string, paths []string, matcher *ignore.Matcher, extractor *extract.Extractor, ix *index.Index, force bool, log *log.Logger) (int, error) {
	changed := 0
	for _, p := range paths {
		scanRoot := filepath.Join(root, p)
		err := filepath.Walk(scanRoot, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)

			if info.IsDir() {
				if rel != "." && matcher.ShouldIgnoreDir(rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if matcher.ShouldIgnoreFile(rel) {
				return nil
			}

			if _, ok := languageFor(rel); !ok {
				return nil
			}

			if !force && !ix.IsStale(rel, info.ModTime().UnixNano(), info.Size()) {
				return nil
			}

			if err := indexFile(ctx, root, rel, extractor, ix, force, log); err != nil {
				log.Printf("skipping %s: %v", rel, err)
				return nil
			}
			changed++
			return nil
		})
		if err != nil {
			return changed, fmt.Errorf("walking %s: %w", p, err)
		}
	}
	return changed, nil
}

// indexFile extracts definitions/calls/imports for a single file and
// updates ix in place. force is accepted for symmetry with scanPaths but
// staleness has already been decided by the caller.
func indexFile(ctx context.Context, root, rel string, extractor *extract.Extractor, ix *index.Index, force bool, log *log.Logger) error {
	entry, ok := languageFor(rel)
	if !ok {
		return nil
	}

	full := filepath.Join(root, rel)
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			ix.Remove(rel)
			return nil
		}
		return err
	}

	source, err := os.ReadFile(full)
	if err != nil {
		return err
	}

	rec, err := extractor.ExtractFile(ctx, source, entry.Name, rel, info.ModTime().UnixNano(), info.Size())
	if err != nil {
		return err
	}
	ix.Update(rec)
	return nil
}

func languageFor(rel string) (*registry.Entry, bool) {
	base := filepath.Base(rel)
	if entry, ok := registry.GetByFilename(base); ok {
		return entry, true
	}
	ext := strings.TrimPrefix(filepath.Ext(rel), ".")
	if ext == "" {
		return nil, false
	}
	return registry.GetByExtension(ext)
}

func countDefinitions(ix *index.Index) int {
	n := 0
	for range ix.Definitions() {
		n++
	}
	return n
}
