package artifact

// Stage denotes the maturity level of an artifact.
type Stage string

// Lifecycle stages, in promotion order.
const (
	StageRaw    Stage = "raw"
	StageTempl  Stage = "templ"
	StageConfig Stage = "config"
	StageActive Stage = "active"
)

// stageOrder is the promotion sequence.
var stageOrder = []Stage{StageRaw, StageTempl, StageConfig, StageActive}

// Stages returns the promotion sequence in order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Valid reports whether s is a recognized stage token.
func (s Stage) Valid() bool {
	for _, st := range stageOrder {
		if s == st {
			return true
		}
	}
	return false
}

// Terminal reports whether s is the final stage.
func (s Stage) Terminal() bool {
	return s == StageActive
}

// Next returns the stage following s. The terminal stage returns itself.
// When skipConfig is true the config stage is skipped, provided a
// non-terminal stage remains after the skip.
func (s Stage) Next(skipConfig bool) Stage {
	if s.Terminal() {
		return s
	}
	for i, st := range stageOrder {
		if st != s {
			continue
		}
		next := stageOrder[i+1]
		if skipConfig && next == StageConfig {
			next = stageOrder[i+2]
		}
		return next
	}
	return s
}
