// Package glimpseconfig assembles runtime options from defaults, an
// optional project config file, and environment variables, in that order
// of precedence.
package glimpseconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ProjectConfigFile is the project-local config file name, checked in the
// project root when no explicit path is given to Load.
const ProjectConfigFile = ".glimpse.json"

// EnvPrefix namespaces environment variable overrides, e.g.
// GLIMPSE_CONCURRENCY=8.
const EnvPrefix = "GLIMPSE_"

// Options bundles the settings that shape how an index is built and
// resolved. Zero values are meaningful defaults filled in by Load.
type Options struct {
	// Strict disables the heuristic resolver's global-fallback stage:
	// unresolved calls stay unresolved rather than guessing.
	Strict bool `koanf:"strict"`
	// Precise enables the language-server-backed resolver as the primary
	// source of truth, with the heuristic resolver as fallback.
	Precise bool `koanf:"precise"`
	// Concurrency bounds in-flight LSP requests per language server.
	Concurrency int `koanf:"concurrency"`
	// CacheDir holds provisioned language server binaries.
	CacheDir string `koanf:"cache_dir"`
	// IndexDir is loaded and defaulted here, but pkg/index does not read it:
	// the persisted bbolt database always lives under index.DirName.
	IndexDir string `koanf:"index_dir"`
}

func defaults() map[string]interface{} {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = ".cache"
	}
	return map[string]interface{}{
		"strict":      false,
		"precise":     false,
		"concurrency": 4,
		"cache_dir":   filepath.Join(cacheDir, "glimpse"),
		"index_dir":   ".glimpse",
	}
}

// Load builds Options from built-in defaults, then a project config file
// (configPath if non-empty, else ProjectConfigFile in projectRoot if it
// exists), then GLIMPSE_* environment variables, each layer overriding the
// last.
func Load(projectRoot, configPath string) (Options, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Options{}, fmt.Errorf("loading default config: %w", err)
	}

	path := configPath
	if path == "" {
		path = filepath.Join(projectRoot, ProjectConfigFile)
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return Options{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	} else if configPath != "" {
		return Options{}, fmt.Errorf("config file %s: %w", configPath, err)
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(k, v string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(k, EnvPrefix)), v
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Options{}, fmt.Errorf("loading environment overrides: %w", err)
	}

	var opts Options
	if err := k.Unmarshal("", &opts); err != nil {
		return Options{}, fmt.Errorf("decoding config: %w", err)
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.CacheDir == "" {
		opts.CacheDir = defaults()["cache_dir"].(string)
	}
	if opts.IndexDir == "" {
		opts.IndexDir = ".glimpse"
	}

	return opts, nil
}
