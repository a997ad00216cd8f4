package lsp

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jmylchreest/glimpse/pkg/httputil"
	"github.com/jmylchreest/glimpse/pkg/registry"
)

// binDir returns the directory language server binaries are provisioned
// into, creating it if necessary.
func binDir(cacheDir string) (string, error) {
	dir := filepath.Join(cacheDir, "lsp", "bin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating lsp bin directory: %w", err)
	}
	return dir, nil
}

func binaryExt() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

func binaryPath(cacheDir, name string) (string, error) {
	dir, err := binDir(cacheDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+binaryExt()), nil
}

// EnsureBinary returns a path to an executable for cfg, installing it into
// cacheDir first if it isn't already on PATH or previously provisioned.
func EnsureBinary(ctx context.Context, cfg *registry.LSPConfig, cacheDir string) (string, error) {
	if path, err := exec.LookPath(cfg.Binary); err == nil {
		return path, nil
	}

	target, err := binaryPath(cacheDir, cfg.Binary)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	switch cfg.Install {
	case registry.InstallNPM:
		return installNPM(ctx, cfg, cacheDir)
	case registry.InstallGo:
		return installGo(ctx, cfg, cacheDir)
	case registry.InstallDownload:
		return installDownload(ctx, cfg, cacheDir)
	default:
		return "", fmt.Errorf("no provisioning strategy configured for %s", cfg.Binary)
	}
}

func installNPM(ctx context.Context, cfg *registry.LSPConfig, cacheDir string) (string, error) {
	if cfg.NPMPackage == "" {
		return "", fmt.Errorf("no npm package configured for %s", cfg.Binary)
	}

	prefix := filepath.Join(cacheDir, "lsp", "npm")
	if err := os.MkdirAll(prefix, 0o755); err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, "npm", "install", "--prefix", prefix, cfg.NPMPackage)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("npm install %s: %w: %s", cfg.NPMPackage, err, out)
	}

	installed := filepath.Join(prefix, "node_modules", ".bin", cfg.Binary)
	if _, err := os.Stat(installed); err != nil {
		return "", fmt.Errorf("npm package %s did not produce binary %s", cfg.NPMPackage, cfg.Binary)
	}

	target, err := binaryPath(cacheDir, cfg.Binary)
	if err != nil {
		return "", err
	}
	return target, wrapperScript(target, installed)
}

func installGo(ctx context.Context, cfg *registry.LSPConfig, cacheDir string) (string, error) {
	if cfg.GoModule == "" {
		return "", fmt.Errorf("no go module configured for %s", cfg.Binary)
	}

	dir, err := binDir(cacheDir)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, "go", "install", cfg.GoModule)
	cmd.Env = append(os.Environ(), "GOBIN="+dir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("go install %s: %w: %s", cfg.GoModule, err, out)
	}

	return binaryPath(cacheDir, cfg.Binary)
}

func installDownload(ctx context.Context, cfg *registry.LSPConfig, cacheDir string) (string, error) {
	triple := fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH)
	urlTemplate, ok := cfg.DownloadURLs[triple]
	if !ok {
		return "", fmt.Errorf("no download configured for %s on %s", cfg.Binary, triple)
	}

	client := httputil.NewClient()
	resp, err := client.Get(ctx, urlTemplate)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", cfg.Binary, err)
	}
	defer resp.Body.Close()

	target, err := binaryPath(cacheDir, cfg.Binary)
	if err != nil {
		return "", err
	}

	switch cfg.ArchiveKind {
	case "", "raw":
		return target, writeBinary(target, resp.Body)
	case "gz":
		return target, extractFromGzip(resp.Body, target)
	case "tar.gz":
		return target, extractFromTarGz(resp.Body, cfg.Binary+binaryExt(), target)
	case "zip":
		return target, extractFromZip(resp.Body, cfg.Binary+binaryExt(), target)
	default:
		return "", fmt.Errorf("unsupported archive kind %q for %s (no decoder available for this format in this build)", cfg.ArchiveKind, cfg.Binary)
	}
}

// extractFromGzip decodes a raw gzipped binary (not a tarball) straight
// into target, e.g. rust-analyzer's release assets.
func extractFromGzip(r io.Reader, target string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()
	return writeBinary(target, gz)
}

func writeBinary(target string, r io.Reader) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, r)
	return err
}

func extractFromTarGz(r io.Reader, binaryName, target string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return fmt.Errorf("binary %s not found in archive", binaryName)
		}
		if err != nil {
			return err
		}
		if filepath.Base(hdr.Name) != binaryName {
			continue
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, tr)
		return err
	}
}

func extractFromZip(r io.Reader, binaryName, target string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(strings.NewReader(string(data)), int64(len(data)))
	if err != nil {
		return fmt.Errorf("opening zip archive: %w", err)
	}

	for _, f := range zr.File {
		if filepath.Base(f.Name) != binaryName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer rc.Close()

		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, rc)
		return err
	}
	return fmt.Errorf("binary %s not found in archive", binaryName)
}

func wrapperScript(wrapperPath, targetPath string) error {
	if runtime.GOOS == "windows" {
		content := fmt.Sprintf("@echo off\r\n\"%s\" %%*\r\n", targetPath)
		return os.WriteFile(wrapperPath, []byte(content), 0o755)
	}
	content := fmt.Sprintf("#!/bin/sh\nexec \"%s\" \"$@\"\n", targetPath)
	return os.WriteFile(wrapperPath, []byte(content), 0o755)
}
