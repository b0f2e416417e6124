package config

import (
	"fmt"
	"strconv"
)

// Configuration keys the lifecycle engine consumes.
const (
	KeyMaxRetries      = "max_retries"
	KeyThreshold       = "threshold"
	KeyAllowSkipConfig = "allow_skip_config"
	KeyLogRoot         = "log_root"
	KeyRootRaw         = "root_raw"
	KeyRootTempl       = "root_templ"
	KeyRootConfig      = "root_config"
	KeyRootActive      = "root_active"
	KeyStrategy        = "strategy"
	KeyMatrixDir       = "matrix_dir"
)

// Defaults returns the built-in defaults for every lifecycle key.
func Defaults() map[string]string {
	return map[string]string{
		KeyMaxRetries:      "3",
		KeyThreshold:       "0.90",
		KeyAllowSkipConfig: "true",
		KeyLogRoot:         "logs",
		KeyRootRaw:         "00-raw",
		KeyRootTempl:       "01-templates",
		KeyRootConfig:      "02-config",
		KeyRootActive:      "03-active",
		KeyStrategy:        "heuristic",
		KeyMatrixDir:       "config/scoring",
	}
}

// Load resolves the layered configuration and parses it into Settings.
func Load() (Settings, error) {
	return Parse(NewResolver().Resolve())
}

// DefaultSettings returns the built-in defaults as typed Settings. It reads
// no files and no environment.
func DefaultSettings() Settings {
	resolved := &Resolved{values: Defaults(), sources: map[string]Source{}}
	s, err := Parse(resolved)
	if err != nil {
		panic(err) // Defaults is static and always parses
	}
	return s
}

// Settings is the typed configuration surface of the lifecycle engine.
type Settings struct {
	MaxRetries      int
	Threshold       float64
	AllowSkipConfig bool
	LogRoot         string
	ArtifactRoots   map[string]string // stage name -> storage root
	Strategy        string
	MatrixDir       string
}

// Parse converts resolved string values into typed Settings, validating the
// ranges the engine depends on.
func Parse(resolved *Resolved) (Settings, error) {
	maxRetries, err := strconv.Atoi(resolved.Get(KeyMaxRetries))
	if err != nil || maxRetries < 0 {
		return Settings{}, fmt.Errorf("invalid %s: %q", KeyMaxRetries, resolved.Get(KeyMaxRetries))
	}

	threshold, err := strconv.ParseFloat(resolved.Get(KeyThreshold), 64)
	if err != nil || threshold < 0 || threshold > 1 {
		return Settings{}, fmt.Errorf("invalid %s: %q", KeyThreshold, resolved.Get(KeyThreshold))
	}

	skipConfig, err := strconv.ParseBool(resolved.Get(KeyAllowSkipConfig))
	if err != nil {
		return Settings{}, fmt.Errorf("invalid %s: %q", KeyAllowSkipConfig, resolved.Get(KeyAllowSkipConfig))
	}

	return Settings{
		MaxRetries:      maxRetries,
		Threshold:       threshold,
		AllowSkipConfig: skipConfig,
		LogRoot:         resolved.Get(KeyLogRoot),
		ArtifactRoots: map[string]string{
			"raw":    resolved.Get(KeyRootRaw),
			"templ":  resolved.Get(KeyRootTempl),
			"config": resolved.Get(KeyRootConfig),
			"active": resolved.Get(KeyRootActive),
		},
		Strategy:  resolved.Get(KeyStrategy),
		MatrixDir: resolved.Get(KeyMatrixDir),
	}, nil
}
