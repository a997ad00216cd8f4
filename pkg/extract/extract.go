// Package extract runs a language's declarative definition/call/import
// queries over a parsed tree and emits the index's Definition/Call/Import
// entities.
package extract

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jmylchreest/glimpse/pkg/grammar"
	"github.com/jmylchreest/glimpse/pkg/index"
	"github.com/jmylchreest/glimpse/pkg/registry"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// kindMappings maps a definition query's kind-bearing capture suffix
// (e.g. "function" in "@definition.function") to an index.Kind. Anything
// not in this table becomes KindOther with Tag set to the suffix.
var kindMappings = map[string]index.Kind{
	"function":  index.KindFunction,
	"method":    index.KindMethod,
	"class":     index.KindClass,
	"struct":    index.KindStruct,
	"enum":      index.KindEnum,
	"trait":     index.KindTrait,
	"interface": index.KindInterface,
	"module":    index.KindModule,
}

// importPathCaptures is the ordered, first-match set of capture names a
// grammar may use to tag the node holding an import's path text.
var importPathCaptures = []string{"path", "source", "system_path", "local_path", "module"}

// querySet holds one language's compiled queries plus the capture-index
// tables resolved once at load time.
type querySet struct {
	definitions *tree_sitter.Query
	calls       *tree_sitter.Query
	imports     *tree_sitter.Query // nil when the language has no import query

	defNameIdx     int
	defKindIdx     map[uint32]index.Kind
	defKindTag     map[uint32]string // populated for indices mapped to KindOther
	callNameIdx    int
	callQualIdx    int
	importPathIdx  map[uint32]bool
	importAliasIdx int
}

func captureIndex(names []string, want string) int {
	for i, n := range names {
		if n == want {
			return i
		}
	}
	return -1
}

func loadQuerySet(lang *tree_sitter.Language, entry *registry.Entry) (*querySet, error) {
	defs, err := tree_sitter.NewQuery(lang, entry.DefinitionQuery)
	if err != nil {
		return nil, fmt.Errorf("compiling definition query for %s: %w", entry.Name, err)
	}
	calls, err := tree_sitter.NewQuery(lang, entry.CallQuery)
	if err != nil {
		return nil, fmt.Errorf("compiling call query for %s: %w", entry.Name, err)
	}

	var imports *tree_sitter.Query
	if strings.TrimSpace(entry.ImportQuery) != "" {
		imports, err = tree_sitter.NewQuery(lang, entry.ImportQuery)
		if err != nil {
			return nil, fmt.Errorf("compiling import query for %s: %w", entry.Name, err)
		}
	}

	qs := &querySet{
		definitions: defs,
		calls:       calls,
		imports:     imports,
		defKindIdx:  make(map[uint32]index.Kind),
		defKindTag:  make(map[uint32]string),
	}

	defNames := defs.CaptureNames()
	qs.defNameIdx = captureIndex(defNames, "name")
	for i, name := range defNames {
		suffix, ok := strings.CutPrefix(name, "definition.")
		if !ok {
			continue
		}
		if kind, ok := kindMappings[suffix]; ok {
			qs.defKindIdx[uint32(i)] = kind
		} else {
			qs.defKindIdx[uint32(i)] = index.KindOther
			qs.defKindTag[uint32(i)] = suffix
		}
	}

	callNames := calls.CaptureNames()
	qs.callNameIdx = captureIndex(callNames, "name")
	qs.callQualIdx = captureIndex(callNames, "qualifier")

	qs.importPathIdx = make(map[uint32]bool)
	qs.importAliasIdx = -1
	if imports != nil {
		importNames := imports.CaptureNames()
		for _, want := range importPathCaptures {
			if idx := captureIndex(importNames, want); idx >= 0 {
				qs.importPathIdx[uint32(idx)] = true
			}
		}
		qs.importAliasIdx = captureIndex(importNames, "alias")
	}

	return qs, nil
}

// Extractor turns a parsed tree into Definitions, Calls, and Imports for
// one language, using its registry-declared queries.
type Extractor struct {
	mu      sync.Mutex
	loader  grammar.Loader
	queries map[string]*querySet
}

// New creates an Extractor backed by the given grammar loader.
func New(loader grammar.Loader) *Extractor {
	return &Extractor{
		loader:  loader,
		queries: make(map[string]*querySet),
	}
}

func (e *Extractor) querySetFor(lang *tree_sitter.Language, entry *registry.Entry) (*querySet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if qs, ok := e.queries[entry.Name]; ok {
		return qs, nil
	}
	qs, err := loadQuerySet(lang, entry)
	if err != nil {
		return nil, err
	}
	e.queries[entry.Name] = qs
	return qs, nil
}

func nodeToSpan(n *tree_sitter.Node) index.Span {
	return index.Span{
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		StartLine: n.StartPosition().Row + 1,
		EndLine:   n.EndPosition().Row + 1,
	}
}

// ExtractDefinitions runs the definition query over the tree and returns
// every matched Definition, in tree-walk order.
func (e *Extractor) ExtractDefinitions(ctx context.Context, tree *tree_sitter.Tree, source []byte, langName, path string) ([]index.Definition, error) {
	_, qs, err := e.resolve(ctx, langName)
	if err != nil {
		return nil, err
	}
	return e.extractDefinitions(qs, tree, source, path), nil
}

func (e *Extractor) extractDefinitions(qs *querySet, tree *tree_sitter.Tree, source []byte, path string) []index.Definition {
	var defs []index.Definition

	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	matches := cursor.Matches(qs.definitions, tree.RootNode(), source)
	for match := matches.Next(); match != nil; match = matches.Next() {
		var name string
		haveName := false
		var kindNode *tree_sitter.Node
		var kind index.Kind
		var tag string

		for _, capture := range match.Captures {
			if int(capture.Index) == qs.defNameIdx {
				name = capture.Node.Utf8Text(source)
				haveName = true
			}
			if k, ok := qs.defKindIdx[capture.Index]; ok {
				node := capture.Node
				kindNode = &node
				kind = k
				tag = qs.defKindTag[capture.Index]
			}
		}

		if !haveName || kindNode == nil {
			continue
		}

		defs = append(defs, index.Definition{
			Name: name,
			Kind: kind,
			Tag:  tag,
			Span: nodeToSpan(kindNode),
			File: path,
		})
	}

	return defs
}

// ExtractCalls runs the call query over the tree, attributing each call to
// its innermost enclosing Definition (smallest span containing the call's
// start byte wins).
func (e *Extractor) ExtractCalls(ctx context.Context, tree *tree_sitter.Tree, source []byte, langName, path string) ([]index.Call, error) {
	_, qs, err := e.resolve(ctx, langName)
	if err != nil {
		return nil, err
	}
	defs := e.extractDefinitions(qs, tree, source, path)
	return e.extractCalls(qs, tree, source, path, defs), nil
}

func (e *Extractor) extractCalls(qs *querySet, tree *tree_sitter.Tree, source []byte, path string, defs []index.Definition) []index.Call {
	var calls []index.Call
	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	matches := cursor.Matches(qs.calls, tree.RootNode(), source)
	for match := matches.Next(); match != nil; match = matches.Next() {
		var callee, qualifier string
		haveCallee := false
		var calleeNode *tree_sitter.Node

		for _, capture := range match.Captures {
			if int(capture.Index) == qs.callNameIdx {
				callee = capture.Node.Utf8Text(source)
				haveCallee = true
				node := capture.Node
				calleeNode = &node
			}
			if qs.callQualIdx >= 0 && int(capture.Index) == qs.callQualIdx {
				qualifier = capture.Node.Utf8Text(source)
			}
		}

		if !haveCallee || calleeNode == nil {
			continue
		}

		calls = append(calls, index.Call{
			Callee:    callee,
			Qualifier: qualifier,
			Span:      nodeToSpan(calleeNode),
			File:      path,
			Caller:    findEnclosingDefinition(defs, calleeNode.StartByte()),
		})
	}

	return calls
}

// ExtractImports runs the import query, if the language has one, and
// deduplicates matches that share the same path-node byte range.
func (e *Extractor) ExtractImports(ctx context.Context, tree *tree_sitter.Tree, source []byte, langName, path string) ([]index.Import, error) {
	_, qs, err := e.resolve(ctx, langName)
	if err != nil {
		return nil, err
	}
	if qs.imports == nil {
		return nil, nil
	}
	return e.extractImports(qs, tree, source, path), nil
}

func (e *Extractor) extractImports(qs *querySet, tree *tree_sitter.Tree, source []byte, path string) []index.Import {
	var imports []index.Import
	seen := make(map[[2]uint32]bool)

	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	matches := cursor.Matches(qs.imports, tree.RootNode(), source)
	for match := matches.Next(); match != nil; match = matches.Next() {
		var modulePath, alias string
		haveModule := false
		var pathNode *tree_sitter.Node

		for _, capture := range match.Captures {
			if qs.importPathIdx[capture.Index] && !haveModule {
				modulePath = capture.Node.Utf8Text(source)
				haveModule = true
				node := capture.Node
				pathNode = &node
			}
			if qs.importAliasIdx >= 0 && int(capture.Index) == qs.importAliasIdx {
				alias = capture.Node.Utf8Text(source)
			}
		}

		if !haveModule || pathNode == nil {
			continue
		}

		key := [2]uint32{pathNode.StartByte(), pathNode.EndByte()}
		if seen[key] {
			continue
		}
		seen[key] = true

		imports = append(imports, index.Import{
			ModulePath: cleanImportPath(modulePath),
			Alias:      alias,
			Span:       nodeToSpan(pathNode),
			File:       path,
		})
	}

	return imports
}

// ExtractFile parses source with the given language's grammar and returns a
// FileRecord populated with every definition, call, and import found. mtime
// and size become the record's fingerprint for index staleness checks.
func (e *Extractor) ExtractFile(ctx context.Context, source []byte, langName, path string, mtime, size int64) (*index.FileRecord, error) {
	lang, qs, err := e.resolve(ctx, langName)
	if err != nil {
		return nil, err
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("setting language %s on parser: %w", langName, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parsing %s: tree-sitter returned no tree", path)
	}
	defer tree.Close()

	defs := e.extractDefinitions(qs, tree, source, path)
	calls := e.extractCalls(qs, tree, source, path, defs)

	var imports []index.Import
	if qs.imports != nil {
		imports = e.extractImports(qs, tree, source, path)
	}

	return &index.FileRecord{
		Path:        path,
		Mtime:       mtime,
		Size:        size,
		Definitions: defs,
		Calls:       calls,
		Imports:     imports,
	}, nil
}

func (e *Extractor) resolve(ctx context.Context, langName string) (*tree_sitter.Language, *querySet, error) {
	entry, ok := registry.Get(langName)
	if !ok {
		return nil, nil, fmt.Errorf("extract: unknown language %q", langName)
	}
	lang, err := e.loader.Load(ctx, langName)
	if err != nil {
		return nil, nil, err
	}
	qs, err := e.querySetFor(lang, entry)
	if err != nil {
		return nil, nil, err
	}
	return lang, qs, nil
}

func findEnclosingDefinition(defs []index.Definition, byteOffset uint32) string {
	var best *index.Definition
	for i := range defs {
		d := &defs[i]
		if !d.Span.Contains(byteOffset) {
			continue
		}
		if best == nil || d.Span.Len() < best.Span.Len() {
			best = d
		}
	}
	if best == nil {
		return ""
	}
	return best.Name
}

func cleanImportPath(path string) string {
	return strings.Trim(path, "\"'`")
}
