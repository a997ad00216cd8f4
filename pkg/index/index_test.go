package index

import "testing"

func rec(path string, mtime, size int64) *FileRecord {
	return &FileRecord{Path: path, Mtime: mtime, Size: size}
}

func TestIsStaleNoRecord(t *testing.T) {
	ix := New()
	if !ix.IsStale("a.go", 1, 2) {
		t.Error("IsStale should be true when no record exists")
	}
}

func TestIsStaleFingerprintMismatch(t *testing.T) {
	ix := New()
	ix.Update(rec("a.go", 100, 10))

	if ix.IsStale("a.go", 100, 10) {
		t.Error("IsStale should be false when fingerprint matches")
	}
	if !ix.IsStale("a.go", 200, 10) {
		t.Error("IsStale should be true on mtime mismatch")
	}
	if !ix.IsStale("a.go", 100, 20) {
		t.Error("IsStale should be true on size mismatch")
	}
}

func TestUpdateReplacesAtomically(t *testing.T) {
	ix := New()
	ix.Update(&FileRecord{Path: "a.go", Definitions: []Definition{{Name: "Foo"}}})
	ix.Update(&FileRecord{Path: "a.go", Definitions: []Definition{{Name: "Bar"}}})

	got := ix.Get("a.go")
	if len(got.Definitions) != 1 || got.Definitions[0].Name != "Bar" {
		t.Errorf("Update should fully replace the prior record, got %+v", got)
	}
}

func TestRemove(t *testing.T) {
	ix := New()
	ix.Update(rec("a.go", 1, 1))
	ix.Remove("a.go")
	if ix.Get("a.go") != nil {
		t.Error("Get after Remove should be nil")
	}
}

func TestDefinitionsCallsImportsIterate(t *testing.T) {
	ix := New()
	ix.Update(&FileRecord{
		Path:        "a.go",
		Definitions: []Definition{{Name: "Foo", File: "a.go"}},
		Calls:       []Call{{Callee: "Foo", File: "a.go"}},
		Imports:     []Import{{ModulePath: "fmt", File: "a.go"}},
	})
	ix.Update(&FileRecord{
		Path:        "b.go",
		Definitions: []Definition{{Name: "Bar", File: "b.go"}},
		Calls:       []Call{{Callee: "Bar", File: "b.go"}},
	})

	var defs, calls, imports int
	for range ix.Definitions() {
		defs++
	}
	for range ix.Calls() {
		calls++
	}
	for range ix.Imports() {
		imports++
	}

	if defs != 2 {
		t.Errorf("Definitions count = %d; want 2", defs)
	}
	if calls != 2 {
		t.Errorf("Calls count = %d; want 2", calls)
	}
	if imports != 1 {
		t.Errorf("Imports count = %d; want 1", imports)
	}
}

func TestDefinitionsEarlyStop(t *testing.T) {
	ix := New()
	ix.Update(&FileRecord{Path: "a.go", Definitions: []Definition{{Name: "A"}, {Name: "B"}}})

	var seen int
	for range ix.Definitions() {
		seen++
		break
	}
	if seen != 1 {
		t.Errorf("expected early stop after 1, got %d", seen)
	}
}

func TestSpanContainsAndLen(t *testing.T) {
	s := Span{StartByte: 10, EndByte: 20}
	if !s.Contains(10) || !s.Contains(19) {
		t.Error("Contains should be true at bounds [start, end)")
	}
	if s.Contains(20) {
		t.Error("Contains should exclude end_byte")
	}
	if s.Len() != 10 {
		t.Errorf("Len() = %d; want 10", s.Len())
	}
}
