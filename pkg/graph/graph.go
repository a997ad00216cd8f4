// Package graph builds a call graph from an index's definitions and calls,
// and provides traversal operations over it (callees, callers, transitive
// closures, topological post-order, roots and leaves).
package graph

import (
	"github.com/jmylchreest/glimpse/pkg/index"
	"github.com/jmylchreest/glimpse/pkg/resolve"
)

// NodeID identifies a Node within a CallGraph. IDs are assigned in
// insertion order and are stable for the lifetime of a single Build.
type NodeID int

// Node is one definition in the graph, with the set of definitions it
// calls and the set of definitions that call it.
type Node struct {
	Definition index.Definition
	Callees    map[NodeID]struct{}
	Callers    map[NodeID]struct{}
}

// CallResolver resolves a single Call to the Definition it targets. It
// lets Build accept a precise (LSP-backed) resolver without this package
// depending on one directly.
type CallResolver interface {
	ResolveCall(call index.Call, ix *index.Index) (index.Definition, bool)
}

// CallGraph is a directed graph of call relationships between
// definitions, keyed by stable NodeIDs.
type CallGraph struct {
	nodes        map[NodeID]*Node
	nameToID     map[string]NodeID      // first definition registered under a name wins
	fileNameToID map[fileNameKey]NodeID // exact (file, name) lookup
	nextID       NodeID
}

type fileNameKey struct {
	file string
	name string
}

// New creates an empty CallGraph.
func New() *CallGraph {
	return &CallGraph{
		nodes:        make(map[NodeID]*Node),
		nameToID:     make(map[string]NodeID),
		fileNameToID: make(map[fileNameKey]NodeID),
	}
}

// Build constructs a call graph using the non-strict heuristic resolver.
func Build(ix *index.Index) *CallGraph {
	return BuildWithOptions(ix, false)
}

// BuildWithOptions constructs a call graph using the heuristic resolver,
// with strict controlling whether unresolved same-file/import lookups
// fall back to a global by-name search.
func BuildWithOptions(ix *index.Index, strict bool) *CallGraph {
	r := resolve.NewStrict(ix, strict)
	return buildWith(ix, resolverFunc(func(call index.Call, ix *index.Index) (index.Definition, bool) {
		return r.Resolve(call.Callee, call.Qualifier, call.File)
	}))
}

// BuildWithResolver constructs a call graph using primary to resolve each
// call, falling back to the non-strict heuristic resolver when primary
// can't resolve it. This is how a precise, LSP-backed resolution pass
// plugs in without this package depending on the lsp package.
func BuildWithResolver(ix *index.Index, primary CallResolver) *CallGraph {
	fallback := resolve.New(ix)
	return buildWith(ix, resolverFunc(func(call index.Call, ix *index.Index) (index.Definition, bool) {
		if d, ok := primary.ResolveCall(call, ix); ok {
			return d, true
		}
		return fallback.Resolve(call.Callee, call.Qualifier, call.File)
	}))
}

type resolverFunc func(call index.Call, ix *index.Index) (index.Definition, bool)

func (f resolverFunc) ResolveCall(call index.Call, ix *index.Index) (index.Definition, bool) {
	return f(call, ix)
}

func buildWith(ix *index.Index, resolver CallResolver) *CallGraph {
	g := New()

	for d := range ix.Definitions() {
		g.addDefinition(d)
	}

	for c := range ix.Calls() {
		if c.Caller == "" {
			continue
		}
		callerID, ok := g.FindNodeByFileAndName(c.File, c.Caller)
		if !ok {
			continue
		}

		calleeDef, ok := resolveCallee(c, ix, resolver)
		if !ok {
			continue
		}

		calleeID, ok := g.FindNodeByFileAndName(calleeDef.File, calleeDef.Name)
		if !ok {
			calleeID = g.addDefinition(calleeDef)
		}

		g.addEdge(callerID, calleeID)
	}

	return g
}

func resolveCallee(c index.Call, ix *index.Index, resolver CallResolver) (index.Definition, bool) {
	if c.Resolved != nil {
		rec := ix.Get(c.Resolved.TargetFile)
		if rec == nil {
			return index.Definition{}, false
		}
		for _, d := range rec.Definitions {
			if d.Name == c.Resolved.TargetName {
				return d, true
			}
		}
		return index.Definition{}, false
	}
	return resolver.ResolveCall(c, ix)
}

func (g *CallGraph) addDefinition(def index.Definition) NodeID {
	key := fileNameKey{file: def.File, name: def.Name}
	if id, ok := g.fileNameToID[key]; ok {
		return id
	}

	id := g.nextID
	g.nextID++

	g.nodes[id] = &Node{
		Definition: def,
		Callees:    make(map[NodeID]struct{}),
		Callers:    make(map[NodeID]struct{}),
	}
	if _, ok := g.nameToID[def.Name]; !ok {
		g.nameToID[def.Name] = id
	}
	g.fileNameToID[key] = id

	return id
}

func (g *CallGraph) addEdge(caller, callee NodeID) {
	if caller == callee {
		return
	}
	if n, ok := g.nodes[caller]; ok {
		n.Callees[callee] = struct{}{}
	}
	if n, ok := g.nodes[callee]; ok {
		n.Callers[caller] = struct{}{}
	}
}

// FindNode returns the first-registered node with the given definition
// name, regardless of file.
func (g *CallGraph) FindNode(name string) (NodeID, bool) {
	id, ok := g.nameToID[name]
	return id, ok
}

// FindNodeByFileAndName returns the node for the exact (file, name) pair.
func (g *CallGraph) FindNodeByFileAndName(file, name string) (NodeID, bool) {
	id, ok := g.fileNameToID[fileNameKey{file: file, name: name}]
	return id, ok
}

// GetNode returns the node for id, or nil if absent.
func (g *CallGraph) GetNode(id NodeID) *Node {
	return g.nodes[id]
}

// Callees returns the direct callees of id.
func (g *CallGraph) Callees(id NodeID) []*Node {
	n := g.nodes[id]
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.Callees))
	for cid := range n.Callees {
		if c := g.nodes[cid]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Callers returns the direct callers of id.
func (g *CallGraph) Callers(id NodeID) []*Node {
	n := g.nodes[id]
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.Callers))
	for cid := range n.Callers {
		if c := g.nodes[cid]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// TransitiveCallees returns every node reachable from id by following
// callee edges. id itself is included only when a cycle leads back to it.
func (g *CallGraph) TransitiveCallees(id NodeID) []*Node {
	return g.bfsFrom(id, func(n *Node) map[NodeID]struct{} { return n.Callees })
}

// TransitiveCallers returns every node that can reach id by following
// callee edges. id itself is included only when a cycle leads back to it.
func (g *CallGraph) TransitiveCallers(id NodeID) []*Node {
	return g.bfsFrom(id, func(n *Node) map[NodeID]struct{} { return n.Callers })
}

func (g *CallGraph) bfsFrom(id NodeID, next func(*Node) map[NodeID]struct{}) []*Node {
	visited := make(map[NodeID]struct{})
	var result []*Node
	var queue []NodeID

	if start := g.nodes[id]; start != nil {
		for nid := range next(start) {
			queue = append(queue, nid)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		n := g.nodes[current]
		if n == nil {
			continue
		}
		result = append(result, n)
		for nid := range next(n) {
			if _, seen := visited[nid]; !seen {
				queue = append(queue, nid)
			}
		}
	}

	return result
}

// PostOrder returns the IDs reachable from id via callee edges in
// cycle-safe DFS post-order (id itself is included last among its
// reachable set).
func (g *CallGraph) PostOrder(id NodeID) []NodeID {
	visited := make(map[NodeID]struct{})
	var result []NodeID
	g.postOrderDFS(id, visited, &result)
	return result
}

func (g *CallGraph) postOrderDFS(id NodeID, visited map[NodeID]struct{}, result *[]NodeID) {
	if _, seen := visited[id]; seen {
		return
	}
	visited[id] = struct{}{}

	if n := g.nodes[id]; n != nil {
		for calleeID := range n.Callees {
			g.postOrderDFS(calleeID, visited, result)
		}
	}

	*result = append(*result, id)
}

// PostOrderDefinitions is PostOrder mapped to the underlying Definitions.
func (g *CallGraph) PostOrderDefinitions(id NodeID) []index.Definition {
	ids := g.PostOrder(id)
	defs := make([]index.Definition, 0, len(ids))
	for _, nid := range ids {
		if n := g.nodes[nid]; n != nil {
			defs = append(defs, n.Definition)
		}
	}
	return defs
}

// CalleesToDepth returns every node ID within maxDepth callee hops of id,
// including id itself at depth 0.
func (g *CallGraph) CalleesToDepth(id NodeID, maxDepth int) []NodeID {
	return g.bfsToDepth(id, maxDepth, func(n *Node) map[NodeID]struct{} { return n.Callees })
}

// CallersToDepth returns every node ID within maxDepth caller hops of id,
// including id itself at depth 0.
func (g *CallGraph) CallersToDepth(id NodeID, maxDepth int) []NodeID {
	return g.bfsToDepth(id, maxDepth, func(n *Node) map[NodeID]struct{} { return n.Callers })
}

func (g *CallGraph) bfsToDepth(id NodeID, maxDepth int, next func(*Node) map[NodeID]struct{}) []NodeID {
	type item struct {
		id    NodeID
		depth int
	}

	visited := map[NodeID]struct{}{id: {}}
	result := []NodeID{id}
	queue := []item{{id, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		n := g.nodes[cur.id]
		if n == nil {
			continue
		}
		for nid := range next(n) {
			if _, seen := visited[nid]; !seen {
				visited[nid] = struct{}{}
				result = append(result, nid)
				queue = append(queue, item{nid, cur.depth + 1})
			}
		}
	}

	return result
}

// DefinitionsToDepth is CalleesToDepth mapped to the underlying Definitions.
func (g *CallGraph) DefinitionsToDepth(id NodeID, maxDepth int) []index.Definition {
	ids := g.CalleesToDepth(id, maxDepth)
	defs := make([]index.Definition, 0, len(ids))
	for _, nid := range ids {
		if n := g.nodes[nid]; n != nil {
			defs = append(defs, n.Definition)
		}
	}
	return defs
}

// NodeCount returns the number of nodes in the graph.
func (g *CallGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of caller->callee edges in the graph.
func (g *CallGraph) EdgeCount() int {
	count := 0
	for _, n := range g.nodes {
		count += len(n.Callees)
	}
	return count
}

// Roots returns nodes with no callers.
func (g *CallGraph) Roots() []NodeID {
	var out []NodeID
	for id, n := range g.nodes {
		if len(n.Callers) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Leaves returns nodes with no callees.
func (g *CallGraph) Leaves() []NodeID {
	var out []NodeID
	for id, n := range g.nodes {
		if len(n.Callees) == 0 {
			out = append(out, id)
		}
	}
	return out
}
