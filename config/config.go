package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	envPrefix      = "PROMPTFLOW_"
	globalDirName  = "promptflow"
	globalFileName = "config.yaml"
	localFileName  = ".promptflow.yaml"
)

// Resolver merges the engine's configuration layers into a Resolved view.
// The key set is fixed to the lifecycle keys returned by Defaults; unknown
// keys in config files are reported as warnings and ignored.
type Resolver struct {
	defaults   map[string]string
	globalPath string
	localPath  string
	root       string

	errWriter io.Writer

	// Warnings collects non-fatal issues hit during resolution.
	Warnings []string
}

// NewResolver creates the standard resolver: lifecycle defaults, the global
// file at ~/.config/promptflow/config.yaml, the nearest workspace
// .promptflow.yaml, and PROMPTFLOW_* environment overrides.
func NewResolver() *Resolver {
	r := &Resolver{
		defaults:  Defaults(),
		errWriter: os.Stderr,
	}
	if root := findWorkspaceRoot("."); root != "" {
		r.root = root
		r.localPath = filepath.Join(root, localFileName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		r.globalPath = filepath.Join(home, ".config", globalDirName, globalFileName)
	}
	return r
}

// NewResolverWithPaths creates a resolver reading explicit file paths instead
// of discovering them. Callers that manage their own layout, and tests, use
// this.
func NewResolverWithPaths(globalPath, localPath string) *Resolver {
	return &Resolver{
		defaults:   Defaults(),
		globalPath: globalPath,
		localPath:  localPath,
		errWriter:  os.Stderr,
	}
}

// WithErrWriter redirects warning output, which goes to stderr by default.
func (r *Resolver) WithErrWriter(w io.Writer) *Resolver {
	r.errWriter = w
	return r
}

func (r *Resolver) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	if r.errWriter != nil {
		fmt.Fprintf(r.errWriter, "Warning: %s\n", msg)
	}
}

// Resolved holds the merged configuration with per-key provenance.
type Resolved struct {
	values  map[string]string
	sources map[string]Source
}

// Get returns the value for a key, or empty string if not set.
func (c *Resolved) Get(key string) string {
	return c.values[key]
}

// Source returns the layer a key's value came from.
func (c *Resolved) Source(key string) Source {
	return c.sources[key]
}

// GetWithSource returns both the value and its source.
func (c *Resolved) GetWithSource(key string) (string, Source) {
	return c.values[key], c.sources[key]
}

// All returns a copy of every key-value pair.
func (c *Resolved) All() map[string]string {
	result := make(map[string]string, len(c.values))
	for k, v := range c.values {
		result[k] = v
	}
	return result
}

// Keys returns the configuration keys in sorted order.
func (c *Resolved) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve merges defaults, the global file, the workspace file, and the
// environment, in that order of increasing precedence.
func (r *Resolver) Resolve() *Resolved {
	cfg := &Resolved{
		values:  make(map[string]string),
		sources: make(map[string]Source),
	}

	for key, value := range r.defaults {
		cfg.values[key] = value
		cfg.sources[key] = SourceDefault
	}

	r.applyFile(cfg, r.globalPath, SourceGlobal)
	r.applyFile(cfg, r.localPath, SourceLocal)
	r.applyEnv(cfg)

	return cfg
}

// ResolveWithFlags resolves the layers and applies non-empty flag values on
// top.
func (r *Resolver) ResolveWithFlags(flags map[string]string) *Resolved {
	cfg := r.Resolve()

	for key, value := range flags {
		if value != "" {
			cfg.values[key] = value
			cfg.sources[key] = SourceFlag
		}
	}

	return cfg
}

// applyFile layers one YAML config file onto cfg. A missing file is fine;
// unknown keys and parse failures produce warnings.
func (r *Resolver) applyFile(cfg *Resolved, path string, src Source) {
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		r.warn(fmt.Sprintf("could not parse %s: %v", path, err))
		return
	}

	for key, value := range parsed {
		if _, known := r.defaults[key]; !known {
			r.warn(fmt.Sprintf("%s: unknown key %q ignored", path, key))
			continue
		}
		if strVal := asString(value); strVal != "" {
			cfg.values[key] = strVal
			cfg.sources[key] = src
		}
	}
}

// applyEnv layers PROMPTFLOW_* variables for the known keys onto cfg.
func (r *Resolver) applyEnv(cfg *Resolved) {
	for key := range r.defaults {
		if value := os.Getenv(EnvVar(key)); value != "" {
			cfg.values[key] = value
			cfg.sources[key] = SourceEnv
		}
	}
}

// EnvVar returns the environment variable name for a lifecycle key,
// e.g. "max_retries" maps to PROMPTFLOW_MAX_RETRIES.
func EnvVar(key string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Root returns the workspace root the local config was found under, if any.
func (r *Resolver) Root() string {
	return r.root
}

// GlobalPath returns the path of the global config file.
func (r *Resolver) GlobalPath() string {
	return r.globalPath
}

// LocalPath returns the path of the workspace config file.
func (r *Resolver) LocalPath() string {
	return r.localPath
}

func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int, int64, float64:
		return fmt.Sprintf("%v", val)
	default:
		return ""
	}
}

// findWorkspaceRoot walks up from startDir looking for a directory holding a
// .promptflow.yaml or a .git directory.
func findWorkspaceRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, localFileName)); err == nil {
			return dir
		}
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
