package scoring

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Dimension is one evaluation criterion in a matrix.
type Dimension struct {
	Weight      float64 `yaml:"weight" json:"weight"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	// Feedback is the canned guidance surfaced when this dimension scores
	// poorly.
	Feedback string `yaml:"feedback,omitempty" json:"feedback,omitempty"`
}

// Matrix maps dimension names to their weights and feedback templates.
// Weights are static per matrix and must be non-negative.
type Matrix struct {
	Name       string               `yaml:"name" json:"name"`
	Dimensions map[string]Dimension `yaml:"dimensions" json:"dimensions"`
}

// Validate checks that every weight is non-negative.
func (m Matrix) Validate() error {
	for name, d := range m.Dimensions {
		if d.Weight < 0 {
			return fmt.Errorf("matrix %q: dimension %q has negative weight %v",
				m.Name, name, d.Weight)
		}
	}
	return nil
}

// WeightSum returns the sum of all dimension weights.
func (m Matrix) WeightSum() float64 {
	var sum float64
	for _, d := range m.Dimensions {
		sum += d.Weight
	}
	return sum
}

// DimensionNames returns the matrix's dimension names, sorted.
func (m Matrix) DimensionNames() []string {
	names := make([]string, 0, len(m.Dimensions))
	for name := range m.Dimensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadMatrix reads a matrix definition from a YAML file.
func LoadMatrix(path string) (Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Matrix{}, fmt.Errorf("load scoring matrix: %w", err)
	}
	return ParseMatrix(data)
}

// ParseMatrix decodes a YAML matrix definition.
func ParseMatrix(data []byte) (Matrix, error) {
	var m Matrix
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Matrix{}, fmt.Errorf("parse scoring matrix: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Matrix{}, err
	}
	return m, nil
}

// Registry holds named matrices, one per artifact family.
type Registry struct {
	matrices map[string]Matrix
	fallback string
}

// NewRegistry creates a registry. The matrix registered under fallback is
// returned for unknown names.
func NewRegistry(fallback string) *Registry {
	return &Registry{matrices: make(map[string]Matrix), fallback: fallback}
}

// Register adds a matrix under its name.
func (r *Registry) Register(m Matrix) {
	r.matrices[m.Name] = m
}

// Lookup returns the matrix for name, falling back to the registry default.
func (r *Registry) Lookup(name string) (Matrix, error) {
	if m, ok := r.matrices[name]; ok {
		return m, nil
	}
	if m, ok := r.matrices[r.fallback]; ok {
		return m, nil
	}
	return Matrix{}, fmt.Errorf("unknown scoring matrix: %q", name)
}
