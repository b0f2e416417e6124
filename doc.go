// Package promptflow provides workflow orchestration and versioned retry
// primitives for a prompt-artifact lifecycle pipeline.
//
// The package is organized into subpackages by domain:
//
//   - artifact: Versioned identifiers, stage promotion, storage resolution
//   - store: Storage port with filesystem and in-memory implementations
//   - eventlog: Append-only JSONL event log with causal chains and replay
//   - scoring: Weighted scoring matrices and the quality gate
//   - align: Quality/feedback report alignment checking
//   - controller: Bounded evaluate-improve-promote retry loop
//   - pipeline: Sequential fail-fast orchestration on flowgraph
//   - agent: Evaluator/improver strategies (heuristic, llm, hybrid)
//   - prompt: Prompt template loading with embedded defaults
//   - task: Task-based model tier selection
//   - config: Hierarchical configuration with source tracking
//   - context: Service dependency injection
//   - notify: Notification services (Slack, webhook, log)
//   - errors: Fault taxonomy predicates and wrappers
//
// # Quick Start
//
//	import (
//	    "github.com/promptlab/promptflow/agent"
//	    flowcontext "github.com/promptlab/promptflow/context"
//	    "github.com/promptlab/promptflow/pipeline"
//	)
//
//	// Wire services with the heuristic strategy
//	services, _ := flowcontext.NewServices(flowcontext.Config{
//	    BaseDir:  ".promptflow",
//	    Strategy: agent.StrategyHeuristic,
//	})
//
//	// Build a retry controller and run a pipeline
//	ctrl := services.Controller(0.90, 3)
//	quality := pipeline.QualityStep("quality", ctrl)
//
// See individual package documentation for detailed usage.
package promptflow
