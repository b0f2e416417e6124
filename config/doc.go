// Package config resolves the lifecycle engine's layered configuration.
//
// Precedence, highest first:
//  1. Command-line flags (via ResolveWithFlags)
//  2. PROMPTFLOW_* environment variables
//  3. Workspace config (.promptflow.yaml at the workspace root)
//  4. Global config (~/.config/promptflow/config.yaml)
//  5. Built-in defaults
//
// The key set is fixed to the lifecycle keys returned by Defaults; unknown
// keys found in config files produce warnings and are ignored.
//
// # Basic Usage
//
// Most callers want the typed Settings in one call:
//
//	settings, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	fmt.Println(settings.MaxRetries) // 3
//
// Provenance is available through the resolver when a caller needs to show
// where a value came from:
//
//	resolved := config.NewResolver().Resolve()
//	value, source := resolved.GetWithSource(config.KeyThreshold)
//
// # Environment Variables
//
// Every lifecycle key maps to an environment variable through EnvVar:
//
//	PROMPTFLOW_MAX_RETRIES=5    # sets "max_retries"
//	PROMPTFLOW_THRESHOLD=0.85   # sets "threshold"
//
// # Workspace Detection
//
// The resolver walks up from the working directory looking for a directory
// holding a .promptflow.yaml or a .git directory, and reads the workspace
// config there. SaveLocal and SaveGlobal write individual keys back to the
// workspace and global files.
package config
