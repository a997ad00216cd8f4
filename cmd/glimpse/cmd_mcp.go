package main

import (
	"context"
	"fmt"

	"github.com/jmylchreest/glimpse/internal/mcpserver"
	"github.com/jmylchreest/glimpse/pkg/glimpseconfig"
	"github.com/jmylchreest/glimpse/pkg/graph"
	"github.com/jmylchreest/glimpse/pkg/index"
	"github.com/jmylchreest/glimpse/pkg/lsp"
)

// cmdMCP loads the persisted index and serves call-graph queries as MCP
// tools over stdio until the client disconnects. A language-server-backed
// resolver is wired in whenever the project config enables precise mode,
// so the build_call_graph tool's precise option has something to use.
func cmdMCP(root string, args []string) error {
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

	var precise graph.CallResolver
	if cfg.Precise || hasFlag(args, "--precise") {
		resolver := lsp.NewResolver(root, cfg.CacheDir, cfg.Concurrency)
		defer resolver.Shutdown(context.Background())
		precise = resolver
	}

	srv := mcpserver.New(ix, cfg.Strict, precise)
	return srv.Run(context.Background())
}
