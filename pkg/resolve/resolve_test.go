package resolve

import (
	"strings"
	"testing"

	"github.com/jmylchreest/glimpse/pkg/index"
)

func makeDef(name, file string) index.Definition {
	return index.Definition{
		Name: name,
		Kind: index.KindFunction,
		Span: index.Span{StartByte: 0, EndByte: 10, StartLine: 1, EndLine: 3},
		File: file,
	}
}

func makeImport(modulePath, file string) index.Import {
	return index.Import{
		ModulePath: modulePath,
		Span:       index.Span{StartByte: 0, EndByte: 10, StartLine: 1, EndLine: 1},
		File:       file,
	}
}

func TestResolveSameFile(t *testing.T) {
	ix := index.New()
	ix.Update(&index.FileRecord{
		Path:        "src/main.rs",
		Definitions: []index.Definition{makeDef("foo", "src/main.rs")},
	})

	r := New(ix)
	found, ok := r.Resolve("foo", "", "src/main.rs")
	if !ok || found.Name != "foo" {
		t.Fatalf("Resolve(foo) = %+v, %v; want foo, true", found, ok)
	}

	if _, ok := r.Resolve("bar", "", "src/main.rs"); ok {
		t.Error("Resolve(bar) should not find a definition")
	}
}

func TestResolvePrefersSameFile(t *testing.T) {
	ix := index.New()
	ix.Update(&index.FileRecord{Path: "src/a.rs", Definitions: []index.Definition{makeDef("foo", "src/a.rs")}})
	ix.Update(&index.FileRecord{Path: "src/b.rs", Definitions: []index.Definition{makeDef("foo", "src/b.rs")}})

	r := New(ix)

	found, ok := r.Resolve("foo", "", "src/a.rs")
	if !ok || found.File != "src/a.rs" {
		t.Errorf("Resolve from a.rs = %+v; want file src/a.rs", found)
	}

	found, ok = r.Resolve("foo", "", "src/b.rs")
	if !ok || found.File != "src/b.rs" {
		t.Errorf("Resolve from b.rs = %+v; want file src/b.rs", found)
	}
}

func TestResolveViaImports(t *testing.T) {
	ix := index.New()
	ix.Update(&index.FileRecord{
		Path:        "src/utils/helper.rs",
		Definitions: []index.Definition{makeDef("helper", "src/utils/helper.rs")},
	})
	ix.Update(&index.FileRecord{
		Path:    "src/main.rs",
		Imports: []index.Import{makeImport("crate::utils::helper", "src/main.rs")},
	})

	r := New(ix)
	found, ok := r.Resolve("helper", "", "src/main.rs")
	if !ok || found.Name != "helper" {
		t.Fatalf("Resolve via imports = %+v, %v; want helper, true", found, ok)
	}
}

func TestResolveFallsBackToIndex(t *testing.T) {
	ix := index.New()
	ix.Update(&index.FileRecord{Path: "src/parse.rs", Definitions: []index.Definition{makeDef("parse", "src/parse.rs")}})
	ix.Update(&index.FileRecord{Path: "src/main.rs"})

	r := New(ix)
	found, ok := r.Resolve("parse", "", "src/main.rs")
	if !ok || found.File != "src/parse.rs" {
		t.Fatalf("global fallback = %+v, %v; want src/parse.rs, true", found, ok)
	}
}

func TestResolveStrictDisablesFallback(t *testing.T) {
	ix := index.New()
	ix.Update(&index.FileRecord{Path: "src/parse.rs", Definitions: []index.Definition{makeDef("parse", "src/parse.rs")}})
	ix.Update(&index.FileRecord{Path: "src/main.rs"})

	r := NewStrict(ix, true)
	if _, ok := r.Resolve("parse", "", "src/main.rs"); ok {
		t.Error("strict resolver should not use the global fallback")
	}
}

func TestFilePatternIndexMatching(t *testing.T) {
	ix := index.New()
	ix.Update(&index.FileRecord{Path: "src/utils/helper.rs"})
	ix.Update(&index.FileRecord{Path: "src/other.rs"})

	fpi := buildFilePatternIndex(ix)

	if got := fpi.filesMatching("utils/helper.rs"); len(got) != 1 || got[0] != "src/utils/helper.rs" {
		t.Errorf("filesMatching(utils/helper.rs) = %v", got)
	}
	if got := fpi.filesMatching("helper.rs"); len(got) != 1 || got[0] != "src/utils/helper.rs" {
		t.Errorf("filesMatching(helper.rs) = %v", got)
	}
	if got := fpi.filesMatching("other.rs"); len(got) != 1 || got[0] != "src/other.rs" {
		t.Errorf("filesMatching(other.rs) = %v", got)
	}
	if got := fpi.filesMatching("nonexistent.rs"); len(got) != 0 {
		t.Errorf("filesMatching(nonexistent.rs) = %v; want empty", got)
	}
}

func TestImportToFilePatternsRust(t *testing.T) {
	patterns := importToFilePatterns("crate::utils::helper", "rs")
	if !containsSubstr(patterns, "utils/helper.rs") {
		t.Errorf("patterns = %v; want one containing utils/helper.rs", patterns)
	}
	if !containsSubstr(patterns, "utils/helper/mod.rs") {
		t.Errorf("patterns = %v; want one containing utils/helper/mod.rs", patterns)
	}
}

func TestImportToFilePatternsPython(t *testing.T) {
	patterns := importToFilePatterns("mypackage.utils.helper", "py")
	if !containsSubstr(patterns, "mypackage/utils/helper.py") {
		t.Errorf("patterns = %v; want one containing mypackage/utils/helper.py", patterns)
	}
}

func TestImportToFilePatternsJS(t *testing.T) {
	patterns := importToFilePatterns("./components/Button", "ts")
	if !containsSubstr(patterns, "components/Button.ts") {
		t.Errorf("patterns = %v; want one containing components/Button.ts", patterns)
	}
	if !containsSubstr(patterns, "components/Button/index.ts") {
		t.Errorf("patterns = %v; want one containing components/Button/index.ts", patterns)
	}
}

func TestImportToFilePatternsGoExternalModule(t *testing.T) {
	patterns := importToFilePatterns("github.com/acme/widgets/queue", "go")
	if len(patterns) != 1 || patterns[0] != "queue" {
		t.Errorf("patterns = %v; want [\"queue\"]", patterns)
	}
}

func TestResolveIgnoresCrossLanguageDefinitions(t *testing.T) {
	ix := index.New()
	ix.Update(&index.FileRecord{Path: "src/filter.cpp", Definitions: []index.Definition{makeDef("filter", "src/filter.cpp")}})
	ix.Update(&index.FileRecord{Path: "config.nix"})

	r := New(ix)
	if _, ok := r.Resolve("filter", "", "config.nix"); ok {
		t.Error("should not resolve a cpp definition from a .nix file")
	}
}

func TestResolveAllowsSameLanguageFamily(t *testing.T) {
	ix := index.New()
	ix.Update(&index.FileRecord{Path: "src/component.tsx", Definitions: []index.Definition{makeDef("Button", "src/component.tsx")}})
	ix.Update(&index.FileRecord{Path: "src/app.ts"})

	r := New(ix)
	found, ok := r.Resolve("Button", "", "src/app.ts")
	if !ok || found.File != "src/component.tsx" {
		t.Errorf("Resolve(Button) from .ts = %+v, %v; want component.tsx, true", found, ok)
	}
}

func TestExtensionsCompatible(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"rs", "rs", true},
		{"py", "py", true},
		{"ts", "tsx", true},
		{"js", "jsx", true},
		{"c", "h", true},
		{"cpp", "hpp", true},
		{"rs", "py", false},
		{"nix", "cpp", false},
		{"go", "java", false},
	}
	for _, c := range cases {
		if got := extensionsCompatible(c.a, c.b); got != c.want {
			t.Errorf("extensionsCompatible(%q, %q) = %v; want %v", c.a, c.b, got, c.want)
		}
	}
}

func containsSubstr(items []string, substr string) bool {
	for _, item := range items {
		if strings.Contains(item, substr) {
			return true
		}
	}
	return false
}
