package main

import (
	"fmt"

	"github.com/jmylchreest/glimpse/pkg/index"
	"github.com/jmylchreest/glimpse/pkg/search"
)

// cmdSearch loads the persisted index, builds an ephemeral fuzzy-search
// index over its definitions, and prints the top matches for query.
func cmdSearch(root string, args []string) error {
	queryParts := positionalArgs(args)
	if len(queryParts) == 0 {
		return fmt.Errorf("usage: glimpse search <query> [--kind=KIND] [--file=PATH]")
	}
	query := queryParts[0]
	for _, p := range queryParts[1:] {
		query += " " + p
	}

	ix, err := index.Load(root)
	if err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	if ix == nil {
		return fmt.Errorf("no index found under %s; run 'glimpse index' first", root)
	}

	sx, err := search.OpenMemOnly()
	if err != nil {
		return fmt.Errorf("opening search index: %w", err)
	}
	defer sx.Close()

	for _, rec := range ix.Files() {
		if err := sx.IndexFile(rec); err != nil {
			return fmt.Errorf("indexing %s for search: %w", rec.Path, err)
		}
	}

	opts := search.Options{File: parseFlag(args, "--file=")}
	if k := parseFlag(args, "--kind="); k != "" {
		opts.Kind = index.Kind(k)
	}

	results, err := sx.Search(query, ix, opts)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("(no matches)")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%.2f\t%s:%d\t%s\t%s\n", r.Score, r.Definition.File, r.Definition.Span.StartLine, r.Definition.Kind, r.Definition.Name)
	}
	return nil
}
