// Command glimpse indexes a codebase's definitions and calls, builds a
// call graph from the result, and answers callee/caller/traversal queries
// against it — directly, or over MCP for editor/agent integration.
package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/glimpse/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]
	root := findProjectRoot()

	if err := runCommand(cmd, root, args); err != nil {
		fatal("%v", err)
	}
}

func runCommand(cmd, root string, args []string) error {
	switch cmd {
	case "index":
		return cmdIndex(root, args)
	case "callees", "callers", "transitive-callees", "post-order":
		return cmdQuery(cmd, root, args)
	case "search":
		return cmdSearch(root, args)
	case "mcp":
		return cmdMCP(root, args)
	case "help", "-h", "--help":
		printUsage()
		return nil
	case "version", "-v", "--version":
		fmt.Println(version.String())
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func parseFlag(args []string, prefix string) string {
	for _, arg := range args {
		if strings.HasPrefix(arg, prefix) {
			return strings.TrimPrefix(arg, prefix)
		}
	}
	return ""
}

func hasFlag(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}
	return false
}

func positionalArgs(args []string) []string {
	var out []string
	for _, a := range args {
		if !strings.HasPrefix(a, "--") {
			out = append(out, a)
		}
	}
	return out
}

func newLogger(prefix string) *log.Logger {
	return log.New(os.Stderr, prefix, log.Ltime)
}

func printUsage() {
	fmt.Printf(`glimpse %s - call-graph engine for multi-language codebases

Usage:
  glimpse <command> [arguments]

Commands:
  index               Scan a codebase and build its definition/call index
  callees <name>      List direct callees of a definition
  callers <name>      List direct callers of a definition
  transitive-callees <name>  List every definition reachable by following calls outward
  post-order <name>   List definitions reachable from a definition, callees first
  search <query>      Fuzzy-search indexed definition names and signatures
  mcp                 Start the MCP server over stdio
  version             Show version information

Flags (index):
  --force             Reindex every file, ignoring fingerprints
  --watch             Keep running, reindexing files as they change

Flags (callees/callers/transitive-callees/post-order):
  --file=PATH         Disambiguate among same-named definitions in different files
  --max-depth=N       Bound traversal depth (transitive-callees only)
  --precise           Resolve calls via language servers where configured
  --strict            Disable the heuristic resolver's fallback stage

Examples:
  glimpse index .
  glimpse index --watch .
  glimpse callees main --file=cmd/glimpse/main.go
  glimpse transitive-callees handleRequest --max-depth=3
  glimpse search getUser
  glimpse mcp
`, version.Short())
}

// findProjectRoot finds the git root directory, or falls back to cwd.
func findProjectRoot() string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err == nil {
		return strings.TrimSpace(string(output))
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, ".glimpse")); err == nil {
			return dir
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd
		}
		dir = parent
	}
}
