// Package mcpserver exposes call-graph queries as Model Context Protocol
// tools, a second, programmatic surface over the same graph-query API a
// library caller already gets from pkg/graph.
package mcpserver

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jmylchreest/glimpse/internal/version"
	"github.com/jmylchreest/glimpse/pkg/graph"
	"github.com/jmylchreest/glimpse/pkg/index"
)

// mcpLog logs to stderr; stdout is reserved for MCP JSON-RPC traffic.
var mcpLog = log.New(os.Stderr, "[glimpse-mcp] ", log.Ltime)

// Server wraps an Index and the most recently built CallGraph for MCP tool
// access. The graph is built by the build_call_graph tool and kept until the
// next build_call_graph call; query tools return an error until one exists.
type Server struct {
	index   *index.Index
	strict  bool
	precise graph.CallResolver // optional; nil disables the precise option

	mu         sync.RWMutex
	graph      *graph.CallGraph
	graphBuilt atomic.Bool

	server *mcp.Server
}

// New wraps ix for MCP access. strict controls whether build_call_graph
// uses the heuristic resolver's global-fallback stage. precise, if
// non-nil, is consulted first when a caller requests build_call_graph
// with precise=true (e.g. an *lsp.Resolver); it may be nil if no language
// server is configured.
func New(ix *index.Index, strict bool, precise graph.CallResolver) *Server {
	return &Server{index: ix, strict: strict, precise: precise}
}

func (s *Server) currentGraph() *graph.CallGraph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

func (s *Server) setGraph(g *graph.CallGraph) {
	s.mu.Lock()
	s.graph = g
	s.mu.Unlock()
	s.graphBuilt.Store(true)
}

// Run registers every tool and serves MCP requests over stdio until the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	srv := mcp.NewServer(
		&mcp.Implementation{
			Name:    "glimpse",
			Version: version.Short(),
		},
		nil,
	)
	s.server = srv

	s.registerTools()

	mcpLog.Printf("glimpse MCP server ready, listening on stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + message}},
		IsError: true,
	}
}

// ============================================================================
// Tool input types
// ============================================================================

type BuildCallGraphInput struct {
	Precise bool `json:"precise,omitempty" jsonschema:"Use the language-server-backed resolver as primary, falling back to the heuristic resolver."`
}

type NodeQueryInput struct {
	Name string `json:"name" jsonschema:"Definition name to look up. When multiple files define the same name, the first indexed definition is used."`
	File string `json:"file,omitempty" jsonschema:"Restrict lookup to a definition in this exact file."`
}

type DepthQueryInput struct {
	Name     string `json:"name" jsonschema:"Definition name to start from."`
	File     string `json:"file,omitempty" jsonschema:"Restrict lookup to a definition in this exact file."`
	MaxDepth int    `json:"max_depth,omitempty" jsonschema:"Maximum traversal depth; 0 means unlimited."`
}

// ============================================================================
// Registration
// ============================================================================

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "build_call_graph",
		Description: `Build (or rebuild) the call graph from the current index.

Must be called at least once before callees, callers, transitive_callees,
or post_order will return results. Set precise=true to resolve calls via
language servers where configured, falling back to the heuristic resolver
for anything a language server can't or didn't resolve.`,
	}, s.handleBuildCallGraph)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "callees",
		Description: `List the direct callees of a definition: the functions/methods it calls.`,
	}, s.handleCallees)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "callers",
		Description: `List the direct callers of a definition: who calls it.`,
	}, s.handleCallers)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "transitive_callees",
		Description: `List every definition reachable by following calls outward from a
definition, optionally bounded by max_depth. Cycle-safe: a definition
appears at most once even if reachable by multiple paths.`,
	}, s.handleTransitiveCallees)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "post_order",
		Description: `Return definitions reachable from a starting definition in post-order
(callees before their callers) — the order in which a bottom-up review or
a leaf-first refactor should visit them.`,
	}, s.handlePostOrder)
}

// ============================================================================
// Handlers
// ============================================================================

func (s *Server) handleBuildCallGraph(_ context.Context, _ *mcp.CallToolRequest, input BuildCallGraphInput) (*mcp.CallToolResult, any, error) {
	mcpLog.Printf("tool: build_call_graph precise=%v", input.Precise)

	var g *graph.CallGraph
	switch {
	case input.Precise && s.precise != nil:
		g = graph.BuildWithResolver(s.index, s.precise)
	case input.Precise:
		mcpLog.Printf("  precise requested but no language server resolver configured; using heuristic resolver")
		fallthrough
	default:
		g = graph.BuildWithOptions(s.index, s.strict)
	}
	s.setGraph(g)

	return textResult(fmt.Sprintf("built call graph: %d definitions, %d call edges", g.NodeCount(), g.EdgeCount())), nil, nil
}

func (s *Server) findNode(input NodeQueryInput) (graph.NodeID, bool) {
	g := s.currentGraph()
	if g == nil {
		return 0, false
	}
	if input.File != "" {
		return g.FindNodeByFileAndName(input.File, input.Name)
	}
	return g.FindNode(input.Name)
}

func (s *Server) handleCallees(_ context.Context, _ *mcp.CallToolRequest, input NodeQueryInput) (*mcp.CallToolResult, any, error) {
	mcpLog.Printf("tool: callees name=%q file=%q", input.Name, input.File)

	g := s.currentGraph()
	if g == nil {
		return errorResult("no call graph built yet; call build_call_graph first"), nil, nil
	}
	id, ok := s.findNode(input)
	if !ok {
		return errorResult(fmt.Sprintf("no definition named %q found", input.Name)), nil, nil
	}

	return textResult(formatDefinitions(nodesToDefinitions(g.Callees(id)))), nil, nil
}

func (s *Server) handleCallers(_ context.Context, _ *mcp.CallToolRequest, input NodeQueryInput) (*mcp.CallToolResult, any, error) {
	mcpLog.Printf("tool: callers name=%q file=%q", input.Name, input.File)

	g := s.currentGraph()
	if g == nil {
		return errorResult("no call graph built yet; call build_call_graph first"), nil, nil
	}
	id, ok := s.findNode(input)
	if !ok {
		return errorResult(fmt.Sprintf("no definition named %q found", input.Name)), nil, nil
	}

	return textResult(formatDefinitions(nodesToDefinitions(g.Callers(id)))), nil, nil
}

func (s *Server) handleTransitiveCallees(_ context.Context, _ *mcp.CallToolRequest, input DepthQueryInput) (*mcp.CallToolResult, any, error) {
	mcpLog.Printf("tool: transitive_callees name=%q file=%q max_depth=%d", input.Name, input.File, input.MaxDepth)

	g := s.currentGraph()
	if g == nil {
		return errorResult("no call graph built yet; call build_call_graph first"), nil, nil
	}
	id, ok := s.findNode(NodeQueryInput{Name: input.Name, File: input.File})
	if !ok {
		return errorResult(fmt.Sprintf("no definition named %q found", input.Name)), nil, nil
	}

	if input.MaxDepth > 0 {
		return textResult(formatDefinitions(g.DefinitionsToDepth(id, input.MaxDepth))), nil, nil
	}
	return textResult(formatDefinitions(nodesToDefinitions(g.TransitiveCallees(id)))), nil, nil
}

func (s *Server) handlePostOrder(_ context.Context, _ *mcp.CallToolRequest, input NodeQueryInput) (*mcp.CallToolResult, any, error) {
	mcpLog.Printf("tool: post_order name=%q file=%q", input.Name, input.File)

	g := s.currentGraph()
	if g == nil {
		return errorResult("no call graph built yet; call build_call_graph first"), nil, nil
	}
	id, ok := s.findNode(input)
	if !ok {
		return errorResult(fmt.Sprintf("no definition named %q found", input.Name)), nil, nil
	}

	return textResult(formatDefinitions(g.PostOrderDefinitions(id))), nil, nil
}

func nodesToDefinitions(nodes []*graph.Node) []index.Definition {
	defs := make([]index.Definition, 0, len(nodes))
	for _, n := range nodes {
		defs = append(defs, n.Definition)
	}
	return defs
}

func formatDefinitions(defs []index.Definition) string {
	if len(defs) == 0 {
		return "(none)"
	}
	out := ""
	for _, d := range defs {
		out += fmt.Sprintf("%s:%d %s %s\n", d.File, d.Span.StartLine, d.Kind, d.Name)
	}
	return out
}
