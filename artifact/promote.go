package artifact

import (
	"fmt"
	"path"

	"github.com/promptlab/promptflow/store"
)

// DefaultRoots maps each stage to its default storage root.
func DefaultRoots() map[Stage]string {
	return map[Stage]string{
		StageRaw:    "00-raw",
		StageTempl:  "01-templates",
		StageConfig: "02-config",
		StageActive: "03-active",
	}
}

// Manager resolves artifact storage locations and performs promotions.
type Manager struct {
	store      store.Store
	roots      map[Stage]string
	skipConfig bool
	archive    func(Ref) error
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Store      store.Store      // Required artifact storage
	Roots      map[Stage]string // Per-stage roots (default: DefaultRoots)
	SkipConfig bool             // Skip the config stage on promotion
	// Archive is invoked with the pre-promotion ref after a successful
	// move. Archival itself is an external concern; an error here is
	// returned but does not undo the promotion.
	Archive func(Ref) error
}

// NewManager creates a version/stage manager.
func NewManager(cfg ManagerConfig) *Manager {
	roots := cfg.Roots
	if roots == nil {
		roots = DefaultRoots()
	}
	return &Manager{
		store:      cfg.Store,
		roots:      roots,
		skipConfig: cfg.SkipConfig,
		archive:    cfg.Archive,
	}
}

// Location returns the storage root for a stage. Pure function of stage and
// static configuration.
func (m *Manager) Location(stage Stage) string {
	return m.roots[stage]
}

// Key returns the store key for a ref: its stage root joined with the
// canonical identifier.
func (m *Manager) Key(ref Ref) string {
	return path.Join(m.Location(ref.Stage), ref.Format())
}

// Save writes an artifact's content to its resolved location.
func (m *Manager) Save(a Artifact) error {
	return m.store.Write(m.Key(a.Ref), a.Content)
}

// Load reads the content for a ref from its resolved location.
func (m *Manager) Load(ref Ref) (Artifact, error) {
	data, err := m.store.Read(m.Key(ref))
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Ref: ref, Content: data}, nil
}

// Promote advances ref one stage and bumps its version: a major bump when
// the destination stage is active, a patch bump otherwise. The stored
// artifact is relocated atomically; on failure it remains unchanged at the
// old location. Promoting a terminal artifact is a no-op.
func (m *Manager) Promote(ref Ref) (Ref, error) {
	if !ref.Stage.Valid() {
		return Ref{}, fmt.Errorf("%w: stage %q", ErrMalformedIdentifier, ref.Stage)
	}
	if ref.Stage.Terminal() {
		return ref, nil
	}

	next := ref.Stage.Next(m.skipConfig)
	level := BumpPatch
	if next == StageActive {
		level = BumpMajor
	}
	version, err := ref.Version.Bump(level)
	if err != nil {
		return Ref{}, err
	}

	promoted := Ref{
		Base:    ref.Base,
		Stage:   next,
		Version: version,
		Ext:     ref.Ext,
	}

	if err := m.store.Rename(m.Key(ref), m.Key(promoted)); err != nil {
		return Ref{}, fmt.Errorf("promote %s: %w", ref, err)
	}

	if m.archive != nil {
		if err := m.archive(ref); err != nil {
			return promoted, fmt.Errorf("archive %s: %w", ref, err)
		}
	}
	return promoted, nil
}
