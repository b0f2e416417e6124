package agent

import (
	"errors"
	"fmt"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/promptlab/promptflow/controller"
	"github.com/promptlab/promptflow/prompt"
	"github.com/promptlab/promptflow/scoring"
)

// Strategy selects how artifacts are evaluated and improved.
type Strategy string

// Strategies.
const (
	StrategyHeuristic Strategy = "heuristic"
	StrategyLLM       Strategy = "llm"
	StrategyHybrid    Strategy = "hybrid"
)

// ErrUnknownStrategy indicates an unrecognized strategy name.
var ErrUnknownStrategy = errors.New("unknown agent strategy")

// Config assembles a strategy pair.
type Config struct {
	Strategy Strategy

	// Client is required for the llm and hybrid strategies.
	Client llm.Client

	// Prompts overrides the default template loader.
	Prompts *prompt.Loader

	// Heuristic tunes the deterministic checks (heuristic and hybrid).
	Heuristic HeuristicConfig
}

// New returns the Evaluator/Improver pair for the configured strategy.
func New(cfg Config) (scoring.Evaluator, controller.Improver, error) {
	switch cfg.Strategy {
	case StrategyHeuristic, "":
		return NewHeuristicEvaluator(cfg.Heuristic), NewHeuristicImprover(cfg.Heuristic), nil

	case StrategyLLM:
		if cfg.Client == nil {
			return nil, nil, fmt.Errorf("strategy %q requires an llm client", cfg.Strategy)
		}
		return NewLLMEvaluator(cfg.Client, cfg.Prompts), NewLLMImprover(cfg.Client, cfg.Prompts), nil

	case StrategyHybrid:
		if cfg.Client == nil {
			return nil, nil, fmt.Errorf("strategy %q requires an llm client", cfg.Strategy)
		}
		evaluator := NewHybridEvaluator(
			NewLLMEvaluator(cfg.Client, cfg.Prompts),
			NewHeuristicEvaluator(cfg.Heuristic),
		)
		improver := NewHybridImprover(
			NewLLMImprover(cfg.Client, cfg.Prompts),
			NewHeuristicImprover(cfg.Heuristic),
		)
		return evaluator, improver, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
	}
}
