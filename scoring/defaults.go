package scoring

import (
	"embed"
	"fmt"
)

// embeddedMatrices holds the built-in scoring matrices embedded in the
// binary, one YAML file per lifecycle matrix.
//
//go:embed matrices/*.yaml
var embeddedMatrices embed.FS

// RegisterDefaults loads every built-in matrix into the registry. Callers
// can re-register a name afterwards to override an individual matrix.
func RegisterDefaults(r *Registry) error {
	entries, err := embeddedMatrices.ReadDir("matrices")
	if err != nil {
		return fmt.Errorf("read embedded matrices: %w", err)
	}

	for _, entry := range entries {
		data, err := embeddedMatrices.ReadFile("matrices/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read embedded matrix %s: %w", entry.Name(), err)
		}
		m, err := ParseMatrix(data)
		if err != nil {
			return fmt.Errorf("embedded matrix %s: %w", entry.Name(), err)
		}
		r.Register(m)
	}

	return nil
}
