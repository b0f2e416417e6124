// Package prompt provides prompt template loading and management.
//
// Core types:
//   - Loader: Loads prompt templates from files or embedded defaults
//   - Builder: Constructs prompts programmatically
//
// Example usage:
//
//	loader := prompt.NewLoader(projectDir)
//	text, err := loader.LoadWithVars("evaluate-artifact", map[string]any{
//	    "matrix": matrixName,
//	})
package prompt
