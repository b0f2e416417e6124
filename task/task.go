package task

import (
	"github.com/randalmurphal/llmkit/model"
)

// Type represents the type of task a pipeline step is performing.
// This determines which model tier is appropriate.
type Type string

const (
	// Evaluation and improvement - need reasoning
	Evaluate Type = "evaluate"
	Improve  Type = "improve"

	// Standard pipeline tasks - default tier
	Extract Type = "extract"
	Match   Type = "match"

	// Fast tasks - can use smaller models
	Classify Type = "classify"
	Sync     Type = "sync"
)

// DefaultModelMap maps task types to default models.
var DefaultModelMap = map[Type]model.ModelName{
	Evaluate: model.ModelOpus,
	Improve:  model.ModelOpus,
	Extract:  model.ModelSonnet,
	Match:    model.ModelSonnet,
	Classify: model.ModelHaiku,
	Sync:     model.ModelHaiku,
}

// TierForTask returns the appropriate tier for a task type.
func TierForTask(t Type) model.Tier {
	switch t {
	case Evaluate, Improve:
		return model.TierThinking
	case Classify, Sync:
		return model.TierFast
	default:
		return model.TierDefault
	}
}

// NewSelector creates a model selector configured for lifecycle tasks.
// It uses the standard task-to-tier mapping.
func NewSelector(opts ...model.SelectorOption) *model.Selector {
	// Prepend the tier function to use Type
	allOpts := append([]model.SelectorOption{
		model.WithTierFunc(func(task any) model.Tier {
			if t, ok := task.(Type); ok {
				return TierForTask(t)
			}
			return model.TierDefault
		}),
	}, opts...)

	return model.NewSelector(allOpts...)
}

// SelectModel selects the appropriate model for a task type.
// Uses the default model map unless overridden.
func SelectModel(t Type) model.ModelName {
	if m, ok := DefaultModelMap[t]; ok {
		return m
	}
	// Fall back to tier-based selection
	switch TierForTask(t) {
	case model.TierThinking:
		return model.ModelOpus
	case model.TierFast:
		return model.ModelHaiku
	default:
		return model.ModelSonnet
	}
}
