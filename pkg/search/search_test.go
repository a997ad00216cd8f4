package search

import (
	"path/filepath"
	"testing"

	"github.com/jmylchreest/glimpse/pkg/index"
)

func rec(path string, defs ...index.Definition) *index.FileRecord {
	return &index.FileRecord{Path: path, Definitions: defs}
}

func defn(name string, kind index.Kind, file, sig string) index.Definition {
	return index.Definition{Name: name, Kind: kind, File: file, Signature: sig}
}

func TestIndexAndSearchByPrefix(t *testing.T) {
	sx, err := OpenMemOnly()
	if err != nil {
		t.Fatal(err)
	}
	defer sx.Close()

	fr := rec("src/user.go",
		defn("getUser", index.KindFunction, "src/user.go", "func getUser(id string) *User"),
		defn("getUserByEmail", index.KindFunction, "src/user.go", "func getUserByEmail(email string) *User"),
		defn("deleteUser", index.KindFunction, "src/user.go", "func deleteUser(id string)"),
	)
	if err := sx.IndexFile(fr); err != nil {
		t.Fatal(err)
	}

	ix := index.New()
	ix.Update(fr)

	results, err := sx.Search("getUser", ix, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 matches for %q, got %d: %+v", "getUser", len(results), results)
	}
}

func TestSearchFiltersByKind(t *testing.T) {
	sx, err := OpenMemOnly()
	if err != nil {
		t.Fatal(err)
	}
	defer sx.Close()

	fr := rec("src/lib.go",
		defn("Walker", index.KindStruct, "src/lib.go", "type Walker struct"),
		defn("Walk", index.KindFunction, "src/lib.go", "func Walk()"),
	)
	if err := sx.IndexFile(fr); err != nil {
		t.Fatal(err)
	}
	ix := index.New()
	ix.Update(fr)

	results, err := sx.Search("Walk", ix, Options{Kind: index.KindFunction})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Definition.Kind != index.KindFunction {
			t.Errorf("expected only function kind results, got %v", r.Definition.Kind)
		}
	}
}

func TestRemoveFileDropsStaleDefinitions(t *testing.T) {
	sx, err := OpenMemOnly()
	if err != nil {
		t.Fatal(err)
	}
	defer sx.Close()

	fr := rec("src/stale.go", defn("onlyHere", index.KindFunction, "src/stale.go", "func onlyHere()"))
	if err := sx.IndexFile(fr); err != nil {
		t.Fatal(err)
	}

	if err := sx.RemoveFile("src/stale.go"); err != nil {
		t.Fatal(err)
	}

	ix := index.New()
	ix.Update(fr)
	results, err := sx.Search("onlyHere", ix, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results after RemoveFile, got %d", len(results))
	}
}

func TestOpenCreatesIndexOnDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search.bleve")

	sx, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer sx.Close()

	fr := rec("src/a.go", defn("Alpha", index.KindFunction, "src/a.go", "func Alpha()"))
	if err := sx.IndexFile(fr); err != nil {
		t.Fatal(err)
	}

	ix := index.New()
	ix.Update(fr)
	results, err := sx.Search("Alpha", ix, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}
