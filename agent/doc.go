// Package agent provides the evaluation and improvement strategies the
// retry/promotion controller drives.
//
// One Evaluator/Improver pair exists per strategy:
//   - heuristic: deterministic text checks, no external calls
//   - llm: an LLM scores and rewrites artifacts via prompt templates
//   - hybrid: llm with heuristic fallback when the model is unavailable
//
// The strategy is selected by configuration, not by parallel code paths:
//
//	evaluator, improver, err := agent.New(agent.Config{
//	    Strategy: agent.StrategyHybrid,
//	    Client:   client,
//	})
package agent
