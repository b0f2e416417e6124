package artifact

// Artifact is one versioned unit of work product: its identity plus the
// opaque content payload. Content is typically YAML prompt text; the
// lifecycle engine never interprets it.
type Artifact struct {
	Ref     Ref    `json:"ref"`
	Content []byte `json:"content,omitempty"`
}

// New creates an artifact at the raw stage with the given base name,
// initial version, and content.
func New(base string, version Version, content []byte) Artifact {
	return Artifact{
		Ref: Ref{
			Base:    base,
			Stage:   StageRaw,
			Version: version,
			Ext:     ".yaml",
		},
		Content: content,
	}
}

// WithVersion returns a copy of a with its version replaced.
func (a Artifact) WithVersion(v Version) Artifact {
	a.Ref.Version = v
	return a
}

// WithContent returns a copy of a with its content replaced.
func (a Artifact) WithContent(content []byte) Artifact {
	a.Content = content
	return a
}
