package grammar

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/glimpse/pkg/registry"
)

func TestSha256File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, []byte("hello grammar"), 0o644); err != nil {
		t.Fatal(err)
	}

	sum, err := sha256File(path)
	if err != nil {
		t.Fatalf("sha256File: %v", err)
	}
	// sha256("hello grammar")
	want := "15e86047cf730a50a9356002fa0a268078f2f63f3b6430dcb824e60bdff19451"
	if sum != want {
		t.Errorf("sha256File = %q; want %q", sum, want)
	}
}

func TestSha256FileMissing(t *testing.T) {
	_, err := sha256File(filepath.Join(t.TempDir(), "missing.bin"))
	if err == nil {
		t.Fatal("expected error reading missing file")
	}
}

func TestRevisionFallback(t *testing.T) {
	if got := revision(&registry.Entry{}); got != "snapshot" {
		t.Errorf("revision(no branch) = %q; want snapshot", got)
	}
	if got := revision(&registry.Entry{Branch: "main"}); got != "main" {
		t.Errorf("revision(branch=main) = %q; want main", got)
	}
}

// hasCompiler reports whether a C compiler is available on PATH, so tests
// that actually invoke the toolchain can skip cleanly in minimal environments.
func hasCompiler() bool {
	_, err := exec.LookPath("cc")
	return err == nil
}

func TestCompileGrammarSourcesMissingParser(t *testing.T) {
	if !hasCompiler() {
		t.Skip("no C compiler on PATH")
	}
	dir := t.TempDir()
	_, err := compileGrammarSources(t.Context(), dir)
	if err == nil {
		t.Fatal("expected error when parser.c is missing")
	}
}

func TestCompileGrammarSourcesMinimalParser(t *testing.T) {
	if !hasCompiler() {
		t.Skip("no C compiler on PATH")
	}
	dir := t.TempDir()
	parserC := `void *tree_sitter_dummy(void) { return 0; }`
	if err := os.WriteFile(filepath.Join(dir, "parser.c"), []byte(parserC), 0o644); err != nil {
		t.Fatal(err)
	}

	objs, err := compileGrammarSources(t.Context(), dir)
	if err != nil {
		t.Fatalf("compileGrammarSources: %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("got %d object files; want 1", len(objs))
	}
	if _, err := os.Stat(objs[0]); err != nil {
		t.Errorf("object file not created: %v", err)
	}
}

func TestLinkSharedLibrary(t *testing.T) {
	if !hasCompiler() {
		t.Skip("no C compiler on PATH")
	}
	dir := t.TempDir()
	parserC := `void *tree_sitter_dummy(void) { return 0; }`
	src := filepath.Join(dir, "parser.c")
	if err := os.WriteFile(src, []byte(parserC), 0o644); err != nil {
		t.Fatal(err)
	}

	objs, err := compileGrammarSources(t.Context(), dir)
	if err != nil {
		t.Fatalf("compileGrammarSources: %v", err)
	}

	outPath := filepath.Join(dir, "grammar"+CurrentPlatform().Ext)
	if err := linkSharedLibrary(t.Context(), objs, outPath); err != nil {
		t.Fatalf("linkSharedLibrary: %v", err)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("shared library not created: %v", err)
	}
}
