package lsp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/jmylchreest/glimpse/pkg/index"
	"github.com/jmylchreest/glimpse/pkg/registry"
	"golang.org/x/sync/semaphore"
)

var signatureFence = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\n(.*?)\\n```")

// Resolver resolves calls to definitions precisely, by consulting the
// language server configured for each call's file extension. It implements
// graph.CallResolver without this package depending on pkg/graph.
type Resolver struct {
	root        string
	cacheDir    string
	concurrency int

	mu            sync.Mutex
	clients       map[string]*Client // keyed by LSP binary name
	failedServers map[string]bool

	stats *Stats
}

// NewResolver creates a Resolver rooted at root, provisioning language
// servers into cacheDir as needed. concurrency bounds how many in-flight
// resolution requests a single batch issues to one server at once.
func NewResolver(root, cacheDir string, concurrency int) *Resolver {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Resolver{
		root:          root,
		cacheDir:      cacheDir,
		concurrency:   concurrency,
		clients:       make(map[string]*Client),
		failedServers: make(map[string]bool),
		stats:         NewStats(),
	}
}

// Stats returns the resolution outcome tally accumulated so far.
func (r *Resolver) Stats() *Stats { return r.stats }

func (r *Resolver) clientForExtension(ctx context.Context, ext string) (*Client, *registry.LSPConfig, error) {
	entry, ok := registry.GetByExtension(ext)
	if !ok || entry.LSP == nil {
		return nil, nil, fmt.Errorf("no language server configured for extension %q", ext)
	}
	cfg := entry.LSP

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failedServers[cfg.Binary] {
		return nil, cfg, fmt.Errorf("%s previously failed to initialize", cfg.Binary)
	}
	if c, ok := r.clients[cfg.Binary]; ok {
		return c, cfg, nil
	}

	binPath, err := EnsureBinary(ctx, cfg, r.cacheDir)
	if err != nil {
		r.failedServers[cfg.Binary] = true
		return nil, cfg, fmt.Errorf("provisioning %s: %w", cfg.Binary, err)
	}

	client, err := NewClient(binPath, r.root, cfg.Args)
	if err != nil {
		r.failedServers[cfg.Binary] = true
		return nil, cfg, fmt.Errorf("spawning %s: %w", cfg.Binary, err)
	}
	if err := client.Initialize(ctx); err != nil {
		r.failedServers[cfg.Binary] = true
		return nil, cfg, fmt.Errorf("initializing %s: %w", cfg.Binary, err)
	}

	r.clients[cfg.Binary] = client
	return client, cfg, nil
}

// ResolveCall resolves a single call, satisfying graph.CallResolver. Most
// callers should prefer ResolveBatch, which amortizes per-server warm-up
// and file opening across many calls.
func (r *Resolver) ResolveCall(call index.Call, ix *index.Index) (index.Definition, bool) {
	results := r.ResolveBatch(context.Background(), []index.Call{call}, ix)
	if len(results) == 0 {
		return index.Definition{}, false
	}
	rc := results[0].Resolved
	rec := ix.Get(rc.TargetFile)
	if rec == nil {
		return index.Definition{}, false
	}
	for _, d := range rec.Definitions {
		if d.Name == rc.TargetName && d.Span == rc.TargetSpan {
			return d, true
		}
	}
	return index.Definition{}, false
}

// BatchResult pairs a resolved call with its position in the batch it was
// submitted in, so callers can correlate results back to their Call slice.
type BatchResult struct {
	Index    int
	Resolved index.ResolvedCall
}

// ResolveBatch resolves many calls at once, grouping them by the language
// server responsible for each call's file extension so that each server is
// only spawned and warmed up once per batch.
func (r *Resolver) ResolveBatch(ctx context.Context, calls []index.Call, ix *index.Index) []BatchResult {
	byServer := make(map[string][]int)
	extByServer := make(map[string]string)

	for i, c := range calls {
		ext := strings.TrimPrefix(filepath.Ext(c.File), ".")
		if ext == "" {
			continue
		}
		entry, ok := registry.GetByExtension(ext)
		if !ok || entry.LSP == nil {
			continue
		}
		byServer[entry.LSP.Binary] = append(byServer[entry.LSP.Binary], i)
		extByServer[entry.LSP.Binary] = ext
	}

	var results []BatchResult

	for serverName, idxs := range byServer {
		ext := extByServer[serverName]
		client, cfg, err := r.clientForExtension(ctx, ext)
		if err != nil {
			continue
		}

		languageID := cfg.LanguageID

		for _, i := range idxs {
			absPath := filepath.Join(r.root, calls[i].File)
			content, err := os.ReadFile(absPath)
			if err != nil {
				continue
			}
			_ = client.OpenFile(absPath, string(content), languageID)
		}

		for d := range ix.Definitions() {
			defExt := strings.TrimPrefix(filepath.Ext(d.File), ".")
			if defEntry, ok := registry.GetByExtension(defExt); ok && defEntry.LSP != nil && defEntry.LSP.Binary == serverName {
				absPath := filepath.Join(r.root, d.File)
				if content, err := os.ReadFile(absPath); err == nil {
					_ = client.OpenFile(absPath, string(content), languageID)
				}
			}
		}

		if !client.IsReady() {
			if len(idxs) > 0 {
				first := filepath.Join(r.root, calls[idxs[0]].File)
				ready := client.WaitForReady(first, 60)
				client.SetReady(true)
				_ = ready
			}
		}

		sem := semaphore.NewWeighted(int64(r.concurrency))
		var wg sync.WaitGroup
		var mu sync.Mutex

		for _, i := range idxs {
			i := i
			_ = sem.Acquire(ctx, 1)
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)

				resolved, ok := r.resolveOne(client, calls[i], ix, serverName)
				if ok {
					mu.Lock()
					results = append(results, BatchResult{Index: i, Resolved: resolved})
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
	}

	return results
}

func (r *Resolver) resolveOne(client *Client, call index.Call, ix *index.Index, serverName string) (index.ResolvedCall, bool) {
	absPath := filepath.Join(r.root, call.File)
	content, err := os.ReadFile(absPath)
	if err != nil {
		return index.ResolvedCall{}, false
	}

	lines := strings.Split(string(content), "\n")
	lineIdx := call.Span.StartLine
	if lineIdx > 0 {
		lineIdx--
	}
	if int(lineIdx) >= len(lines) {
		return index.ResolvedCall{}, false
	}
	lineContent := lines[lineIdx]
	col := uint32(strings.Index(lineContent, call.Callee))
	if strings.Index(lineContent, call.Callee) < 0 {
		col = 0
	}

	signature := ""
	if hover, err := client.Hover(absPath, lineIdx, col); err == nil && hover != "" {
		if sig, ok := ExtractSignature(hover); ok {
			signature = sig
		}
	}

	receiverType := ""
	if call.Qualifier != "" {
		if qcol := strings.Index(lineContent, call.Qualifier); qcol >= 0 {
			if hover, err := client.Hover(absPath, lineIdx, uint32(qcol)); err == nil && hover != "" {
				if rt, ok := firstTypeLikeLine(hover); ok {
					receiverType = rt
				}
			}
		}
	}

	location, _ := client.GotoDefinition(absPath, lineIdx, col)
	if location == nil {
		r.mu.Lock()
		r.stats.forServer(serverName).NoDefinition++
		r.mu.Unlock()
		return index.ResolvedCall{}, false
	}

	if isDeclarationFileURI(location.URI) {
		if refined := r.followDeclaration(client, location); refined != nil {
			location = refined
		}
	}

	defPath, ok := uriToPath(location.URI)
	if !ok {
		return index.ResolvedCall{}, false
	}

	relPath, err := filepath.Rel(r.root, defPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		r.mu.Lock()
		r.stats.forServer(serverName).External++
		r.mu.Unlock()
		return index.ResolvedCall{}, false
	}

	rec := ix.Get(relPath)
	if rec == nil {
		r.mu.Lock()
		r.stats.forServer(serverName).NotIndexed++
		r.mu.Unlock()
		return index.ResolvedCall{}, false
	}

	startLine := location.Range.Start.Line + 1
	endLine := location.Range.End.Line + 1
	for _, d := range rec.Definitions {
		if d.Span.StartLine <= startLine && d.Span.EndLine >= endLine {
			r.mu.Lock()
			r.stats.forServer(serverName).Resolved++
			r.mu.Unlock()
			return index.ResolvedCall{
				TargetFile:   relPath,
				TargetName:   d.Name,
				TargetSpan:   d.Span,
				Signature:    signature,
				ReceiverType: receiverType,
			}, true
		}
	}

	r.mu.Lock()
	r.stats.forServer(serverName).NoMatch++
	r.mu.Unlock()
	return index.ResolvedCall{}, false
}

// firstTypeLikeLine returns the first non-empty line of a hover response,
// used as a receiver-type heuristic when no structured type info is
// available from the server.
func firstTypeLikeLine(hover string) (string, bool) {
	for _, line := range strings.Split(hover, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "`")
		if line != "" {
			return line, true
		}
	}
	return "", false
}

// followDeclaration resolves a definition that landed in a declaration-only
// file (.h, .d.ts, ...) onward to its implementation, falling back to the
// original location if no implementation is found.
func (r *Resolver) followDeclaration(client *Client, decl *Location) *Location {
	declPath, ok := uriToPath(decl.URI)
	if !ok {
		return nil
	}
	content, err := os.ReadFile(declPath)
	if err != nil {
		return nil
	}

	ext := strings.TrimPrefix(filepath.Ext(declPath), ".")
	entry, ok := registry.GetByExtension(ext)
	languageID := ext
	if ok {
		languageID = entry.Name
	}
	_ = client.OpenFile(declPath, string(content), languageID)

	line, char := decl.Range.Start.Line, decl.Range.Start.Character

	if impl, err := client.GotoImplementation(declPath, line, char); err == nil && impl != nil {
		return impl
	}
	if def, err := client.GotoDefinition(declPath, line, char); err == nil && def != nil && !isDeclarationFileURI(def.URI) {
		return def
	}
	return decl
}

func isDeclarationFileURI(uri string) bool {
	name := uri
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		name = uri[i+1:]
	}
	if strings.HasSuffix(name, ".d.ts") || strings.HasSuffix(name, ".d.mts") || strings.HasSuffix(name, ".d.cts") {
		return true
	}
	ext := ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		ext = name[i+1:]
	}
	switch ext {
	case "h", "hpp", "hxx", "hh":
		return true
	default:
		return false
	}
}

// ExtractSignature pulls a single-line signature out of a hover response's
// first fenced code block, if present.
func ExtractSignature(hover string) (string, bool) {
	m := signatureFence.FindStringSubmatch(hover)
	if m == nil {
		return "", false
	}
	lines := strings.Split(strings.TrimSpace(m[1]), "\n")
	if len(lines) == 0 {
		return "", false
	}
	return strings.TrimSpace(lines[0]), true
}

// Shutdown terminates every spawned language server.
func (r *Resolver) Shutdown(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		_ = c.Shutdown(ctx)
	}
	r.clients = make(map[string]*Client)
}
