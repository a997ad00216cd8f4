package registry

import "testing"

func TestTableEntriesHaveQueries(t *testing.T) {
	for _, e := range All() {
		if e.DefinitionQuery == "" {
			t.Errorf("%s: empty DefinitionQuery", e.Name)
		}
		if e.CallQuery == "" {
			t.Errorf("%s: empty CallQuery", e.Name)
		}
		if e.ImportQuery == "" {
			t.Errorf("%s: empty ImportQuery", e.Name)
		}
	}
}

func TestTableEntriesHaveAtLeastOneMatcher(t *testing.T) {
	for _, e := range All() {
		if len(e.Extensions) == 0 && len(e.Filenames) == 0 && len(e.Shebangs) == 0 {
			t.Errorf("%s: no extensions, filenames, or shebangs to match against", e.Name)
		}
	}
}

func TestTableNamesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, e := range All() {
		if seen[e.Name] {
			t.Errorf("duplicate language name %q in table", e.Name)
		}
		seen[e.Name] = true
	}
}

func TestTableEntriesWithLSPHaveBinary(t *testing.T) {
	for _, e := range All() {
		if e.LSP == nil {
			continue
		}
		if e.LSP.Binary == "" {
			t.Errorf("%s: LSP configured with no Binary", e.Name)
		}
		if e.LSP.LanguageID == "" {
			t.Errorf("%s: LSP configured with no LanguageID", e.Name)
		}
		switch e.LSP.Install {
		case InstallNPM:
			if e.LSP.NPMPackage == "" {
				t.Errorf("%s: InstallNPM with no NPMPackage", e.Name)
			}
		case InstallGo:
			if e.LSP.GoModule == "" {
				t.Errorf("%s: InstallGo with no GoModule", e.Name)
			}
		case InstallDownload:
			if len(e.LSP.DownloadURLs) == 0 && e.LSP.ArchiveKind == "" {
				t.Errorf("%s: InstallDownload with neither DownloadURLs nor ArchiveKind", e.Name)
			}
		}
	}
}

func TestBuiltinLanguagesHaveGrammarSource(t *testing.T) {
	// Every table entry should carry enough to build from source, even the
	// ones that also ship as a builtin grammar — the dynamic tier can
	// rebuild them if a build-from-source test pins a version mismatch.
	for _, name := range []string{"go", "python", "typescript", "javascript", "rust", "java", "c", "cpp", "zig"} {
		e, ok := Get(name)
		if !ok {
			t.Fatalf("missing table entry for builtin language %q", name)
		}
		if e.SourceRepo == "" {
			t.Errorf("%s: empty SourceRepo", name)
		}
		if e.CSymbol == "" {
			t.Errorf("%s: empty CSymbol", name)
		}
	}
}
