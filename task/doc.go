// Package task provides task-based model selection for LLM operations.
//
// Core types:
//   - Type: Type of task (evaluate, improve, extract, classify, etc.)
//   - Selector: Selects appropriate model based on task type
//
// Task types:
//   - Evaluate/Improve: scoring and rewriting artifacts, high-stakes reasoning
//   - Extract/Match: structured generation, default tier
//   - Classify/Sync: quick labeling and bookkeeping, fast tier
//
// Example usage:
//
//	selector := task.NewSelector()
//	name := task.SelectModel(task.Evaluate)
package task
