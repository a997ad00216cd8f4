// Package registry holds the static table of supported languages: their
// file extensions, grammar sources, tree-sitter queries, and language
// server configuration. It is the single source of truth every other
// component (grammar, extract, lsp) consults to resolve a language name.
package registry

import (
	"path/filepath"
	"strings"
	"sync"
)

// InstallMethod describes how a language server binary is provisioned.
type InstallMethod string

const (
	InstallNone     InstallMethod = ""         // no LSP support configured
	InstallDownload InstallMethod = "download" // direct archive download
	InstallNPM      InstallMethod = "npm"      // npm package, wrapped in a launcher script
	InstallGo       InstallMethod = "go"       // go install
)

// LSPConfig describes how to provision and launch a language server.
type LSPConfig struct {
	Binary       string            // executable name once installed/on PATH
	Args         []string          // arguments used to start the server
	Install      InstallMethod     // provisioning strategy
	DownloadURLs map[string]string // target-triple ("os-arch") -> archive URL template
	ArchiveKind  string            // "gz" (gzipped binary), "tar.gz", "zip", "" or "raw" (no archive); "tar.xz" is rejected at install time
	NPMPackage   string            // npm package id, when Install == InstallNPM
	GoModule     string            // module path, when Install == InstallGo
	LanguageID   string            // LSP languageId sent in textDocument/didOpen
}

// Entry describes a single supported language.
type Entry struct {
	Name       string   // canonical language name, e.g. "go"
	Extensions []string // file extensions including the leading dot
	Filenames  []string // exact filenames matched regardless of extension
	Shebangs   []string // interpreter names matched from a shebang line

	// Grammar source, consulted by the grammar loader's build-from-source tier.
	SourceRepo string // "owner/repo" on GitHub
	Branch     string // branch name or commit revision to check out; empty means the default branch
	CSymbol    string // C symbol exported by the compiled grammar
	Subpath    string // subdirectory within the repo containing the grammar (monorepo grammars)

	// Tree-sitter queries. Definitions capture @name plus @definition.<kind>;
	// calls capture @name and an optional @qualifier; imports capture the
	// module path as @path, @source, @module, @local_path or @system_path,
	// plus an optional @alias.
	DefinitionQuery string
	CallQuery       string
	ImportQuery     string

	LSP *LSPConfig // nil when no language server is wired for this language
}

var (
	once    sync.Once
	byName  map[string]*Entry
	byExt   map[string]*Entry
	ordered []*Entry
)

func build() {
	ordered = table()
	byName = make(map[string]*Entry, len(ordered))
	byExt = make(map[string]*Entry, len(ordered)*2)
	for _, e := range ordered {
		byName[e.Name] = e
		for _, ext := range e.Extensions {
			byExt[strings.ToLower(ext)] = e
		}
	}
}

func ensure() {
	once.Do(build)
}

// Get returns the registry entry for a language name.
func Get(name string) (*Entry, bool) {
	ensure()
	e, ok := byName[name]
	return e, ok
}

// GetByExtension returns the registry entry whose Extensions contains ext
// (case-insensitive, with or without a leading dot).
func GetByExtension(ext string) (*Entry, bool) {
	ensure()
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	e, ok := byExt[strings.ToLower(ext)]
	return e, ok
}

// GetByFilename resolves a language from a bare filename (e.g. "Makefile").
func GetByFilename(name string) (*Entry, bool) {
	ensure()
	for _, e := range ordered {
		for _, fn := range e.Filenames {
			if fn == name {
				return e, true
			}
		}
	}
	return nil, false
}

// GetByShebang resolves a language from an interpreter name extracted from
// a script's shebang line (e.g. "python3" or "node").
func GetByShebang(interpreter string) (*Entry, bool) {
	ensure()
	interpreter = filepath.Base(interpreter)
	for _, e := range ordered {
		for _, sb := range e.Shebangs {
			if sb == interpreter {
				return e, true
			}
		}
	}
	stripped := strings.TrimRight(interpreter, "0123456789.")
	if stripped != interpreter {
		return GetByShebang(stripped)
	}
	return nil, false
}

// All returns every registered language entry, in table order.
func All() []*Entry {
	ensure()
	out := make([]*Entry, len(ordered))
	copy(out, ordered)
	return out
}
