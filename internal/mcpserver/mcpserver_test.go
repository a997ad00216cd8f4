package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/jmylchreest/glimpse/pkg/graph"
	"github.com/jmylchreest/glimpse/pkg/index"
)

func buildIndex() *index.Index {
	ix := index.New()
	ix.Update(&index.FileRecord{
		Path: "src/lib.go",
		Definitions: []index.Definition{
			{Name: "main", Kind: index.KindFunction, File: "src/lib.go", Span: index.Span{StartLine: 1, EndLine: 5}},
			{Name: "helper", Kind: index.KindFunction, File: "src/lib.go", Span: index.Span{StartLine: 7, EndLine: 9}},
		},
		Calls: []index.Call{
			{Callee: "helper", Caller: "main", File: "src/lib.go", Span: index.Span{StartLine: 2, EndLine: 2}},
		},
	})
	return ix
}

func TestHandleBuildCallGraphThenCallees(t *testing.T) {
	s := New(buildIndex(), false, nil)
	ctx := context.Background()

	res, _, err := s.handleBuildCallGraph(ctx, nil, BuildCallGraphInput{})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("build_call_graph reported an error: %+v", res)
	}

	res, _, err = s.handleCallees(ctx, nil, NodeQueryInput{Name: "main"})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("callees reported an error: %+v", res)
	}
}

func TestHandleCalleesBeforeGraphBuilt(t *testing.T) {
	s := New(buildIndex(), false, nil)
	res, _, err := s.handleCallees(context.Background(), nil, NodeQueryInput{Name: "main"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected an error result when no graph has been built yet")
	}
}

func TestHandleCalleesUnknownName(t *testing.T) {
	s := New(buildIndex(), false, nil)
	ctx := context.Background()
	if _, _, err := s.handleBuildCallGraph(ctx, nil, BuildCallGraphInput{}); err != nil {
		t.Fatal(err)
	}

	res, _, err := s.handleCallees(ctx, nil, NodeQueryInput{Name: "doesNotExist"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected an error result for an unknown definition name")
	}
}

func TestBuildCallGraphPreciseWithoutResolverFallsBack(t *testing.T) {
	s := New(buildIndex(), false, nil)
	res, _, err := s.handleBuildCallGraph(context.Background(), nil, BuildCallGraphInput{Precise: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("expected graceful fallback, got error: %+v", res)
	}
}

func TestFormatDefinitionsEmpty(t *testing.T) {
	if got := formatDefinitions(nil); got != "(none)" {
		t.Errorf("formatDefinitions(nil) = %q; want (none)", got)
	}
}

func TestFormatDefinitionsListsEntries(t *testing.T) {
	defs := []index.Definition{
		{Name: "helper", Kind: index.KindFunction, File: "src/lib.go", Span: index.Span{StartLine: 7}},
	}
	got := formatDefinitions(defs)
	if !strings.Contains(got, "helper") || !strings.Contains(got, "src/lib.go") {
		t.Errorf("formatDefinitions = %q; missing expected fields", got)
	}
}

func TestNodesToDefinitions(t *testing.T) {
	ix := buildIndex()
	g := graph.Build(ix)
	id, ok := g.FindNode("main")
	if !ok {
		t.Fatal("expected to find main")
	}
	defs := nodesToDefinitions(g.Callees(id))
	if len(defs) != 1 || defs[0].Name != "helper" {
		t.Errorf("nodesToDefinitions = %+v; want [helper]", defs)
	}
}
