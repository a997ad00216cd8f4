package glimpseconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	opts, err := Load(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if opts.Strict {
		t.Error("Strict should default to false")
	}
	if opts.Concurrency != 4 {
		t.Errorf("Concurrency = %d; want 4", opts.Concurrency)
	}
	if opts.IndexDir != ".glimpse" {
		t.Errorf("IndexDir = %q; want .glimpse", opts.IndexDir)
	}
}

func TestLoadProjectConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ProjectConfigFile)
	if err := os.WriteFile(cfgPath, []byte(`{"strict": true, "concurrency": 8}`), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := Load(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if !opts.Strict {
		t.Error("expected strict=true from project config file")
	}
	if opts.Concurrency != 8 {
		t.Errorf("Concurrency = %d; want 8", opts.Concurrency)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ProjectConfigFile)
	if err := os.WriteFile(cfgPath, []byte(`{"concurrency": 8}`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GLIMPSE_CONCURRENCY", "16")

	opts, err := Load(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if opts.Concurrency != 16 {
		t.Errorf("Concurrency = %d; want 16 (env should win)", opts.Concurrency)
	}
}

func TestLoadExplicitConfigPathMustExist(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir, filepath.Join(dir, "missing.json"))
	if err == nil {
		t.Error("expected an error for a missing explicit config path")
	}
}

func TestLoadMissingProjectConfigFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir, ""); err != nil {
		t.Errorf("missing project config file should fall back to defaults, got %v", err)
	}
}
