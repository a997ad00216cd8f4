package grammar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/jmylchreest/glimpse/pkg/registry"
)

// buildGrammarFromSource clones a grammar's source repository (if not
// already cloned into dir/sources/<name>), compiles its parser.c and
// optional scanner.c/scanner.cc, and links the result into a shared
// library at dir/<LibraryFilename(name)>, i.e. dir/<name>/grammar<ext>. It
// returns the library's path
// relative to dir and its SHA256 checksum.
func buildGrammarFromSource(ctx context.Context, dir, name string, entry *registry.Entry) (libFile, sha256sum string, err error) {
	srcDir := filepath.Join(dir, "sources", name)
	if err := cloneOrUpdate(ctx, srcDir, entry); err != nil {
		return "", "", fmt.Errorf("fetching grammar source: %w", err)
	}

	grammarDir := srcDir
	if entry.Subpath != "" {
		grammarDir = filepath.Join(srcDir, entry.Subpath)
	}
	srcRoot := filepath.Join(grammarDir, "src")

	objs, err := compileGrammarSources(ctx, srcRoot)
	if err != nil {
		return "", "", err
	}

	outDir := filepath.Join(dir, name)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating output directory: %w", err)
	}
	libPath := filepath.Join(outDir, "grammar"+CurrentPlatform().Ext)

	if err := linkSharedLibrary(ctx, objs, libPath); err != nil {
		return "", "", err
	}

	sum, err := sha256File(libPath)
	if err != nil {
		return "", "", err
	}

	rel, err := filepath.Rel(dir, libPath)
	if err != nil {
		rel = filepath.Join(name, filepath.Base(libPath))
	}
	return rel, sum, nil
}

// cloneOrUpdate clones entry.SourceRepo into srcDir, or fetches+checks out
// entry.Branch if it was already cloned. A missing Branch leaves the
// repository on its default branch.
func cloneOrUpdate(ctx context.Context, srcDir string, entry *registry.Entry) error {
	url := "https://github.com/" + entry.SourceRepo + ".git"

	if _, err := os.Stat(filepath.Join(srcDir, ".git")); err == nil {
		repo, openErr := git.PlainOpen(srcDir)
		if openErr != nil {
			return openErr
		}
		if entry.Branch == "" {
			return nil
		}
		wt, wtErr := repo.Worktree()
		if wtErr != nil {
			return wtErr
		}
		_ = repo.FetchContext(ctx, &git.FetchOptions{})
		return wt.Checkout(&git.CheckoutOptions{
			Branch: plumbing.NewBranchReferenceName(entry.Branch),
			Force:  true,
		})
	}

	opts := &git.CloneOptions{
		URL:   url,
		Depth: 1,
	}
	if entry.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(entry.Branch)
		opts.SingleBranch = true
	}
	_, err := git.PlainCloneContext(ctx, srcDir, false, opts)
	if err != nil && entry.Branch != "" {
		// The ref might be a commit revision rather than a branch; clone the
		// default branch and check out that commit hash explicitly. Tag names
		// are not resolved here.
		opts.ReferenceName = ""
		opts.SingleBranch = false
		repo, cloneErr := git.PlainCloneContext(ctx, srcDir, false, &git.CloneOptions{URL: url, Depth: 1})
		if cloneErr != nil {
			return cloneErr
		}
		wt, wtErr := repo.Worktree()
		if wtErr != nil {
			return wtErr
		}
		return wt.Checkout(&git.CheckoutOptions{
			Hash:  plumbing.NewHash(entry.Branch),
			Force: true,
		})
	}
	return err
}

// compileGrammarSources compiles parser.c (always present) and
// scanner.c/scanner.cc (optional, external scanners) into object files,
// returning their paths.
func compileGrammarSources(ctx context.Context, srcRoot string) ([]string, error) {
	var objs []string

	parserC := filepath.Join(srcRoot, "parser.c")
	if _, err := os.Stat(parserC); err != nil {
		return nil, fmt.Errorf("parser.c not found under %s: %w", srcRoot, err)
	}
	obj, err := compileCFile(ctx, parserC, srcRoot)
	if err != nil {
		return nil, err
	}
	objs = append(objs, obj)

	if _, err := os.Stat(filepath.Join(srcRoot, "scanner.c")); err == nil {
		obj, err := compileCFile(ctx, filepath.Join(srcRoot, "scanner.c"), srcRoot)
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	} else if _, err := os.Stat(filepath.Join(srcRoot, "scanner.cc")); err == nil {
		obj, err := compileCppFile(ctx, filepath.Join(srcRoot, "scanner.cc"), srcRoot)
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}

	return objs, nil
}

func compileCFile(ctx context.Context, src, includeDir string) (string, error) {
	return runCompiler(ctx, "cc", src, includeDir)
}

func compileCppFile(ctx context.Context, src, includeDir string) (string, error) {
	return runCompiler(ctx, "c++", src, includeDir)
}

func runCompiler(ctx context.Context, compiler, src, includeDir string) (string, error) {
	obj := src + ".o"
	cmd := exec.CommandContext(ctx, compiler,
		"-c", "-O3", "-fPIC", "-w",
		"-I", includeDir,
		"-o", obj,
		src,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w\n%s", compiler, src, err, out)
	}
	return obj, nil
}

// linkSharedLibrary links compiled object files into a platform-specific
// shared library: a dynamic library on macOS, a DLL on Windows, and an ELF
// shared object everywhere else.
func linkSharedLibrary(ctx context.Context, objs []string, outPath string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		args := append([]string{"-dynamiclib", "-undefined", "dynamic_lookup", "-o", outPath}, objs...)
		cmd = exec.CommandContext(ctx, "cc", args...)
	case "windows":
		args := append([]string{"/DLL", "/OUT:" + outPath}, objs...)
		cmd = exec.CommandContext(ctx, "link", args...)
	default:
		args := append([]string{"-shared", "-o", outPath}, objs...)
		cmd = exec.CommandContext(ctx, "cc", args...)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("linking %s: %w\n%s", outPath, err, out)
	}
	return nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
