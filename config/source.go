package config

// Source records which layer a resolved setting came from. The engine reads
// four layers, lowest to highest precedence: built-in lifecycle defaults, the
// global file under ~/.config/promptflow/, the workspace .promptflow.yaml,
// and PROMPTFLOW_* environment variables. Flags passed by the caller override
// everything.
type Source string

const (
	// SourceDefault marks a built-in lifecycle default.
	SourceDefault Source = "default"

	// SourceGlobal marks a value from ~/.config/promptflow/config.yaml.
	SourceGlobal Source = "global"

	// SourceLocal marks a value from the workspace .promptflow.yaml.
	SourceLocal Source = "local"

	// SourceEnv marks a PROMPTFLOW_* environment override.
	SourceEnv Source = "env"

	// SourceFlag marks a command-line flag override.
	SourceFlag Source = "flag"
)
