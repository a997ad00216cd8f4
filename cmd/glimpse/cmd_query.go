package main

import (
	"context"
	"fmt"

	"github.com/jmylchreest/glimpse/pkg/glimpseconfig"
	"github.com/jmylchreest/glimpse/pkg/graph"
	"github.com/jmylchreest/glimpse/pkg/index"
	"github.com/jmylchreest/glimpse/pkg/lsp"
)

// cmdQuery loads the persisted index, builds a call graph from it, and
// answers one of callees/callers/transitive-callees/post-order for the
// named definition.
func cmdQuery(cmd, root string, args []string) error {
	names := positionalArgs(args)
	if len(names) == 0 {
		return fmt.Errorf("usage: glimpse %s <name> [--file=PATH] [--max-depth=N] [--precise] [--strict]", cmd)
	}
	name := names[0]
	file := parseFlag(args, "--file=")
	precise := hasFlag(args, "--precise")

	ix, err := index.Load(root)
	if err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	if ix == nil {
		return fmt.Errorf("no index found under %s; run 'glimpse index' first", root)
	}

	cfg, err := glimpseconfig.Load(root, "")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var g *graph.CallGraph
	if precise {
		resolver := lsp.NewResolver(root, cfg.CacheDir, cfg.Concurrency)
		defer resolver.Shutdown(context.Background())
		g = graph.BuildWithResolver(ix, resolver)
	} else {
		g = graph.BuildWithOptions(ix, cfg.Strict || hasFlag(args, "--strict"))
	}

	id, ok := findNode(g, name, file)
	if !ok {
		if file != "" {
			return fmt.Errorf("no definition named %q in %s", name, file)
		}
		return fmt.Errorf("no definition named %q", name)
	}

	maxDepth := 0
	if d := parseFlag(args, "--max-depth="); d != "" {
		if _, err := fmt.Sscanf(d, "%d", &maxDepth); err != nil {
			return fmt.Errorf("invalid --max-depth value %q: %w", d, err)
		}
	}

	var defs []index.Definition
	switch cmd {
	case "callees":
		defs = nodesToDefinitions(g.Callees(id))
	case "callers":
		defs = nodesToDefinitions(g.Callers(id))
	case "transitive-callees":
		if maxDepth > 0 {
			defs = g.DefinitionsToDepth(id, maxDepth)
		} else {
			defs = nodesToDefinitions(g.TransitiveCallees(id))
		}
	case "post-order":
		defs = g.PostOrderDefinitions(id)
	default:
		return fmt.Errorf("unknown query command: %s", cmd)
	}

	printDefinitions(defs)
	return nil
}

func findNode(g *graph.CallGraph, name, file string) (graph.NodeID, bool) {
	if file != "" {
		return g.FindNodeByFileAndName(file, name)
	}
	return g.FindNode(name)
}

func nodesToDefinitions(nodes []*graph.Node) []index.Definition {
	defs := make([]index.Definition, 0, len(nodes))
	for _, n := range nodes {
		defs = append(defs, n.Definition)
	}
	return defs
}

func printDefinitions(defs []index.Definition) {
	if len(defs) == 0 {
		fmt.Println("(none)")
		return
	}
	for _, d := range defs {
		fmt.Printf("%s:%d\t%s\t%s\n", d.File, d.Span.StartLine, d.Kind, d.Name)
	}
}
