// Package resolve implements the heuristic callee-to-definition resolver:
// same-file lookup, then import-directed file search, then an optional
// global fallback across the whole index.
package resolve

import (
	"path"
	"strings"

	"github.com/jmylchreest/glimpse/pkg/index"
)

// extFamily groups extensions that may cross-resolve against each other
// even though their literal suffix differs (.ts <-> .tsx, .c <-> .h).
func extFamily(ext string) int {
	switch ext {
	case "ts", "tsx", "js", "jsx", "mjs", "cjs":
		return 1
	case "c", "cpp", "cc", "cxx", "h", "hpp", "hxx":
		return 2
	case "scala", "sc":
		return 3
	default:
		return 0
	}
}

// extensionsCompatible reports whether a definition in a file with ext2 may
// satisfy a callee referenced from a file with ext1.
func extensionsCompatible(ext1, ext2 string) bool {
	if ext1 == ext2 {
		return true
	}
	f1, f2 := extFamily(ext1), extFamily(ext2)
	return f1 != 0 && f1 == f2
}

func fileExt(p string) string {
	return strings.TrimPrefix(path.Ext(p), ".")
}

func cleanModulePath(modulePath string) string {
	return strings.Trim(modulePath, `"'<>`)
}

// importToFilePatterns expands an import's module path into candidate
// repository-relative file paths, per the conventions of lang's module
// system. lang is a bare file extension (no leading dot), e.g. "go", "py".
func importToFilePatterns(modulePath, lang string) []string {
	clean := cleanModulePath(modulePath)

	switch lang {
	case "rs":
		stripped := clean
		for _, prefix := range []string{"crate::", "self::", "super::"} {
			stripped = strings.TrimPrefix(stripped, prefix)
		}
		parts := nonEmptyParts(stripped, "::")
		if len(parts) == 0 {
			return nil
		}
		filePath := strings.Join(parts, "/")
		return []string{
			filePath + ".rs",
			filePath + "/mod.rs",
			"src/" + filePath + ".rs",
			"src/" + filePath + "/mod.rs",
		}

	case "py":
		if strings.HasPrefix(clean, ".") {
			return nil
		}
		parts := strings.Split(clean, ".")
		if len(parts) == 0 {
			return nil
		}
		filePath := strings.Join(parts, "/")
		return []string{
			filePath + ".py",
			filePath + "/__init__.py",
			"src/" + filePath + ".py",
		}

	case "go":
		parts := strings.Split(clean, "/")
		localParts := parts
		if len(parts) >= 3 && strings.Contains(parts[0], ".") {
			localParts = parts[3:]
		}
		if len(localParts) == 0 {
			return nil
		}
		return []string{strings.Join(localParts, "/")}

	case "ts", "tsx", "js", "jsx", "mjs", "cjs":
		base := clean
		for _, prefix := range []string{"./", "../", "@/", "@"} {
			base = strings.TrimPrefix(base, prefix)
		}
		return []string{
			base + ".ts",
			base + ".tsx",
			base + ".js",
			base + "/index.ts",
			base + "/index.tsx",
			base + "/index.js",
		}

	case "java":
		filePath := strings.ReplaceAll(clean, ".", "/")
		return []string{
			filePath + ".java",
			"src/" + filePath + ".java",
			"src/main/java/" + filePath + ".java",
		}

	case "scala", "sc":
		trimmed := strings.TrimSuffix(strings.TrimSuffix(clean, "._"), ".*")
		filePath := strings.ReplaceAll(trimmed, ".", "/")
		return []string{filePath + ".scala", filePath + ".sc"}

	case "c", "cpp", "cc", "cxx", "h", "hpp", "hxx":
		return []string{
			clean,
			"include/" + clean,
			"src/" + clean,
		}

	case "zig":
		if strings.HasSuffix(clean, ".zig") || strings.Contains(clean, "/") {
			return []string{clean, "src/" + clean}
		}
		return []string{clean + ".zig", "src/" + clean + ".zig"}

	default:
		return []string{clean}
	}
}

func nonEmptyParts(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// importMatchesCallee reports whether an import statement's final path
// segment plausibly names the symbol callee.
func importMatchesCallee(modulePath, callee, lang string) bool {
	clean := cleanModulePath(modulePath)

	var parts []string
	switch lang {
	case "rs":
		parts = strings.Split(clean, "::")
	case "py", "java", "scala", "sc":
		parts = strings.Split(clean, ".")
	case "go":
		parts = strings.Split(clean, "/")
	default:
		return true
	}

	if len(parts) == 0 {
		return false
	}
	last := parts[len(parts)-1]
	if last == callee {
		return true
	}
	switch lang {
	case "java", "scala", "sc":
		return last == "*" || last == "_"
	default:
		return false
	}
}

// filePatternIndex provides fast lookup from a candidate path or bare
// filename to the indexed files that could satisfy it, and from a
// definition name to every Definition sharing that name.
type filePatternIndex struct {
	byFilename map[string][]string
	bySuffix   map[string][]string
	byDefName  map[string][]index.Definition
}

func buildFilePatternIndex(ix *index.Index) *filePatternIndex {
	fpi := &filePatternIndex{
		byFilename: make(map[string][]string),
		bySuffix:   make(map[string][]string),
		byDefName:  make(map[string][]index.Definition),
	}

	for _, p := range ix.Paths() {
		filename := path.Base(p)
		fpi.byFilename[filename] = append(fpi.byFilename[filename], p)

		components := strings.Split(p, "/")
		for i := range components {
			suffix := strings.Join(components[i:], "/")
			fpi.bySuffix[suffix] = append(fpi.bySuffix[suffix], p)
		}
	}

	for d := range ix.Definitions() {
		fpi.byDefName[d.Name] = append(fpi.byDefName[d.Name], d)
	}

	return fpi
}

func (fpi *filePatternIndex) filesMatching(pattern string) []string {
	if strings.Contains(pattern, "/") {
		return fpi.bySuffix[pattern]
	}
	return fpi.byFilename[pattern]
}

func (fpi *filePatternIndex) definitionByName(name, fromFile string) (index.Definition, bool) {
	defs, ok := fpi.byDefName[name]
	if !ok {
		return index.Definition{}, false
	}
	fromExt := fileExt(fromFile)
	for _, d := range defs {
		if extensionsCompatible(fromExt, fileExt(d.File)) {
			return d, true
		}
	}
	return index.Definition{}, false
}

// Resolver attributes a call's callee to a concrete Definition.
//
// Resolution order:
//  1. Same file: is callee defined in the calling file?
//  2. Via imports: does an import statement in the calling file point at a
//     file that defines callee?
//  3. Global fallback (unless strict): search the whole index by name.
//
// The global fallback can misattribute calls when multiple definitions
// share a name (e.g. "parse"); enable strict mode to disable it.
type Resolver struct {
	index   *index.Index
	strict  bool
	pattern *filePatternIndex
}

// New creates a non-strict Resolver over ix.
func New(ix *index.Index) *Resolver {
	return &Resolver{
		index:   ix,
		pattern: buildFilePatternIndex(ix),
	}
}

// NewStrict creates a Resolver with the given strictness; strict disables
// the global-fallback resolution stage.
func NewStrict(ix *index.Index, strict bool) *Resolver {
	return &Resolver{
		index:   ix,
		strict:  strict,
		pattern: buildFilePatternIndex(ix),
	}
}

// Resolve attempts to find the Definition that callee, referenced from
// fromFile, resolves to. qualifier is currently unused by the heuristic
// stages but accepted for interface parity with LSP-backed resolvers.
func (r *Resolver) Resolve(callee, qualifier, fromFile string) (index.Definition, bool) {
	if d, ok := r.resolveSameFile(callee, fromFile); ok {
		return d, true
	}
	if d, ok := r.resolveViaImports(callee, fromFile); ok {
		return d, true
	}
	if !r.strict {
		return r.pattern.definitionByName(callee, fromFile)
	}
	return index.Definition{}, false
}

func (r *Resolver) resolveSameFile(callee, file string) (index.Definition, bool) {
	rec := r.index.Get(file)
	if rec == nil {
		return index.Definition{}, false
	}
	for _, d := range rec.Definitions {
		if d.Name == callee {
			return d, true
		}
	}
	return index.Definition{}, false
}

func (r *Resolver) resolveViaImports(callee, fromFile string) (index.Definition, bool) {
	rec := r.index.Get(fromFile)
	if rec == nil {
		return index.Definition{}, false
	}
	ext := fileExt(fromFile)

	for _, imp := range rec.Imports {
		if !importMatchesCallee(imp.ModulePath, callee, ext) {
			continue
		}
		for _, pattern := range importToFilePatterns(imp.ModulePath, ext) {
			for _, candidate := range r.pattern.filesMatching(pattern) {
				if d, ok := r.findDefInFile(candidate, callee); ok {
					return d, true
				}
			}
		}
	}
	return index.Definition{}, false
}

func (r *Resolver) findDefInFile(file, name string) (index.Definition, bool) {
	rec := r.index.Get(file)
	if rec == nil {
		return index.Definition{}, false
	}
	for _, d := range rec.Definitions {
		if d.Name == name {
			return d, true
		}
	}
	return index.Definition{}, false
}
