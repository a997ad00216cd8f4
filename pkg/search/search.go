// Package search provides fuzzy lookup of indexed definitions by name or
// signature, as a navigation aid for picking root symbols before building a
// call graph from them. It never participates in call resolution itself.
package search

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/edgengram"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/jmylchreest/glimpse/pkg/index"
)

// Result pairs a matched definition with its Bleve relevance score.
type Result struct {
	Definition index.Definition
	Score      float64
}

// Index is a fuzzy, edge-ngram-backed search index over definition names
// and signatures. It is independent of the call graph: callers consult it
// to find candidate root symbols by partial name before resolving calls.
type Index struct {
	bleve bleve.Index
	path  string
}

// Options narrows a search to definitions matching specific attributes.
type Options struct {
	Kind  index.Kind
	File  string
	Limit int
}

// Open opens the search index at path, creating it with the standard
// mapping if it doesn't exist yet, and recovering by rebuilding from
// scratch if the on-disk index is corrupted.
func Open(path string) (*Index, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return create(path)
	}

	b, err := bleve.Open(path)
	if err == nil {
		return &Index{bleve: b, path: path}, nil
	}

	log.Printf("search index corrupted at %s (%v), rebuilding", path, err)
	if rmErr := os.RemoveAll(path); rmErr != nil {
		return nil, fmt.Errorf("removing corrupted search index: %w (original error: %v)", rmErr, err)
	}
	return create(path)
}

func create(path string) (*Index, error) {
	m, err := buildMapping()
	if err != nil {
		return nil, fmt.Errorf("building search mapping: %w", err)
	}
	b, err := bleve.New(path, m)
	if err != nil {
		return nil, fmt.Errorf("creating search index: %w", err)
	}
	return &Index{bleve: b, path: path}, nil
}

// OpenMemOnly opens a transient, non-persisted index, used for one-off
// searches over a freshly built Index that doesn't warrant an on-disk copy.
func OpenMemOnly() (*Index, error) {
	m, err := buildMapping()
	if err != nil {
		return nil, fmt.Errorf("building search mapping: %w", err)
	}
	b, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("creating in-memory search index: %w", err)
	}
	return &Index{bleve: b}, nil
}

func buildMapping() (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()

	if err := im.AddCustomAnalyzer("standard_lower", map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
		},
	}); err != nil {
		return nil, err
	}

	if err := im.AddCustomTokenFilter("edge_ngram_filter", map[string]interface{}{
		"type": edgengram.Name,
		"min":  2.0,
		"max":  15.0,
	}); err != nil {
		return nil, err
	}

	if err := im.AddCustomAnalyzer("edge_ngram", map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
			"edge_ngram_filter",
		},
	}); err != nil {
		return nil, err
	}

	defMapping := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = "standard_lower"
	nameField.Store = true
	defMapping.AddFieldMappingsAt("name", nameField)

	nameEdgeField := bleve.NewTextFieldMapping()
	nameEdgeField.Analyzer = "edge_ngram"
	nameEdgeField.Store = false
	nameEdgeField.IncludeInAll = false
	defMapping.AddFieldMappingsAt("name_edge", nameEdgeField)

	sigField := bleve.NewTextFieldMapping()
	sigField.Analyzer = "standard_lower"
	sigField.Store = true
	defMapping.AddFieldMappingsAt("signature", sigField)

	kindField := bleve.NewTextFieldMapping()
	kindField.Analyzer = keyword.Name
	defMapping.AddFieldMappingsAt("kind", kindField)

	fileField := bleve.NewTextFieldMapping()
	fileField.Analyzer = keyword.Name
	defMapping.AddFieldMappingsAt("file", fileField)

	im.AddDocumentMapping("definition", defMapping)
	im.DefaultMapping = defMapping

	return im, nil
}

func docID(d index.Definition) string {
	return d.File + "#" + d.Name
}

// IndexFile indexes every definition in rec, replacing any previously
// indexed definitions for the same file.
func (ix *Index) IndexFile(rec *index.FileRecord) error {
	if err := ix.RemoveFile(rec.Path); err != nil {
		return err
	}
	for _, d := range rec.Definitions {
		doc := map[string]interface{}{
			"name":      d.Name,
			"name_edge": d.Name,
			"signature": d.Signature,
			"kind":      string(d.Kind),
			"file":      d.File,
		}
		if err := ix.bleve.Index(docID(d), doc); err != nil {
			return fmt.Errorf("indexing definition %s: %w", d.Name, err)
		}
	}
	return nil
}

// RemoveFile deletes every definition previously indexed for path.
func (ix *Index) RemoveFile(path string) error {
	q := bleve.NewTermQuery(path)
	q.SetField("file")
	req := bleve.NewSearchRequest(q)
	req.Size = 10000
	res, err := ix.bleve.Search(req)
	if err != nil {
		return fmt.Errorf("listing existing definitions for %s: %w", path, err)
	}
	for _, hit := range res.Hits {
		if err := ix.bleve.Delete(hit.ID); err != nil {
			return err
		}
	}
	return nil
}

// Search returns definitions whose name or signature fuzzily matches query,
// ranked by relevance and narrowed by opts.
func (ix *Index) Search(query string, rec *index.Index, opts Options) ([]Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	lowerQuery := strings.ToLower(query)

	prefixQuery := bleve.NewPrefixQuery(lowerQuery)
	prefixQuery.SetField("name")

	wildcardQuery := bleve.NewWildcardQuery("*" + lowerQuery + "*")
	wildcardQuery.SetField("name")

	sigQuery := bleve.NewMatchQuery(query)
	sigQuery.SetField("signature")

	q := bleve.NewDisjunctionQuery(prefixQuery, wildcardQuery, sigQuery)

	req := bleve.NewSearchRequest(q)
	req.Size = limit * 4

	searchResult, err := ix.bleve.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var results []Result
	for _, hit := range searchResult.Hits {
		file, name, ok := splitDocID(hit.ID)
		if !ok {
			continue
		}
		fr := rec.Get(file)
		if fr == nil {
			continue
		}
		for _, d := range fr.Definitions {
			if d.Name != name {
				continue
			}
			if opts.Kind != "" && d.Kind != opts.Kind {
				continue
			}
			if opts.File != "" && !strings.Contains(d.File, opts.File) {
				continue
			}
			results = append(results, Result{Definition: d, Score: hit.Score})
		}
		if len(results) >= limit {
			break
		}
	}

	return results, nil
}

func splitDocID(id string) (file, name string, ok bool) {
	i := strings.LastIndex(id, "#")
	if i < 0 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}

// Close releases the underlying Bleve index.
func (ix *Index) Close() error {
	if ix.bleve == nil {
		return nil
	}
	return ix.bleve.Close()
}
