package context

import (
	"context"

	"github.com/promptlab/promptflow/artifact"
	"github.com/promptlab/promptflow/controller"
	"github.com/promptlab/promptflow/eventlog"
	"github.com/promptlab/promptflow/prompt"
	"github.com/promptlab/promptflow/scoring"
	"github.com/promptlab/promptflow/store"
	llm "github.com/randalmurphal/llmkit/claude"
)

// =============================================================================
// Context Injection Helpers
// =============================================================================
// These helpers allow promptflow services to be injected into context.Context
// for use by flowgraph nodes.

// serviceContextKey is a private type for context keys to avoid collisions
type serviceContextKey string

// Context keys for promptflow services
const (
	storeServiceKey     serviceContextKey = "promptflow.store"
	artifactServiceKey  serviceContextKey = "promptflow.artifacts"
	logServiceKey       serviceContextKey = "promptflow.eventlog"
	llmServiceKey       serviceContextKey = "promptflow.llm"
	promptServiceKey    serviceContextKey = "promptflow.prompts"
	evaluatorServiceKey serviceContextKey = "promptflow.evaluator"
	improverServiceKey  serviceContextKey = "promptflow.improver"
)

// WithStore adds an artifact store to the context
func WithStore(ctx context.Context, st store.Store) context.Context {
	return context.WithValue(ctx, storeServiceKey, st)
}

// Store extracts the artifact store from context
func Store(ctx context.Context) store.Store {
	if st, ok := ctx.Value(storeServiceKey).(store.Store); ok {
		return st
	}
	return nil
}

// MustStore extracts the artifact store or panics
func MustStore(ctx context.Context) store.Store {
	st := Store(ctx)
	if st == nil {
		panic("promptflow/context: store.Store not found in context")
	}
	return st
}

// WithArtifact adds an artifact manager to the context
func WithArtifact(ctx context.Context, mgr *artifact.Manager) context.Context {
	return context.WithValue(ctx, artifactServiceKey, mgr)
}

// Artifact extracts artifact manager from context
func Artifact(ctx context.Context) *artifact.Manager {
	if mgr, ok := ctx.Value(artifactServiceKey).(*artifact.Manager); ok {
		return mgr
	}
	return nil
}

// MustArtifact extracts artifact manager or panics
func MustArtifact(ctx context.Context) *artifact.Manager {
	mgr := Artifact(ctx)
	if mgr == nil {
		panic("promptflow/context: artifact.Manager not found in context")
	}
	return mgr
}

// WithLog adds an event log to the context
func WithLog(ctx context.Context, log eventlog.Log) context.Context {
	return context.WithValue(ctx, logServiceKey, log)
}

// Log extracts the event log from context
func Log(ctx context.Context) eventlog.Log {
	if log, ok := ctx.Value(logServiceKey).(eventlog.Log); ok {
		return log
	}
	return nil
}

// MustLog extracts the event log or panics
func MustLog(ctx context.Context) eventlog.Log {
	log := Log(ctx)
	if log == nil {
		panic("promptflow/context: eventlog.Log not found in context")
	}
	return log
}

// WithLLM adds an LLM client to the context.
// This uses flowgraph's llm.Client interface.
func WithLLM(ctx context.Context, client llm.Client) context.Context {
	return context.WithValue(ctx, llmServiceKey, client)
}

// LLM extracts the LLM client from context.
func LLM(ctx context.Context) llm.Client {
	if client, ok := ctx.Value(llmServiceKey).(llm.Client); ok {
		return client
	}
	return nil
}

// MustLLM extracts the LLM client or panics.
func MustLLM(ctx context.Context) llm.Client {
	client := LLM(ctx)
	if client == nil {
		panic("promptflow/context: llm.Client not found in context")
	}
	return client
}

// WithPrompt adds a prompt loader to the context
func WithPrompt(ctx context.Context, loader *prompt.Loader) context.Context {
	return context.WithValue(ctx, promptServiceKey, loader)
}

// Prompt extracts prompt loader from context
func Prompt(ctx context.Context) *prompt.Loader {
	if loader, ok := ctx.Value(promptServiceKey).(*prompt.Loader); ok {
		return loader
	}
	return nil
}

// MustPrompt extracts prompt loader or panics
func MustPrompt(ctx context.Context) *prompt.Loader {
	loader := Prompt(ctx)
	if loader == nil {
		panic("promptflow/context: prompt.Loader not found in context")
	}
	return loader
}

// WithEvaluator adds a scoring evaluator to the context
func WithEvaluator(ctx context.Context, ev scoring.Evaluator) context.Context {
	return context.WithValue(ctx, evaluatorServiceKey, ev)
}

// Evaluator extracts the scoring evaluator from context
func Evaluator(ctx context.Context) scoring.Evaluator {
	if ev, ok := ctx.Value(evaluatorServiceKey).(scoring.Evaluator); ok {
		return ev
	}
	return nil
}

// MustEvaluator extracts the scoring evaluator or panics
func MustEvaluator(ctx context.Context) scoring.Evaluator {
	ev := Evaluator(ctx)
	if ev == nil {
		panic("promptflow/context: scoring.Evaluator not found in context")
	}
	return ev
}

// WithImprover adds an artifact improver to the context
func WithImprover(ctx context.Context, imp controller.Improver) context.Context {
	return context.WithValue(ctx, improverServiceKey, imp)
}

// Improver extracts the artifact improver from context
func Improver(ctx context.Context) controller.Improver {
	if imp, ok := ctx.Value(improverServiceKey).(controller.Improver); ok {
		return imp
	}
	return nil
}

// MustImprover extracts the artifact improver or panics
func MustImprover(ctx context.Context) controller.Improver {
	imp := Improver(ctx)
	if imp == nil {
		panic("promptflow/context: controller.Improver not found in context")
	}
	return imp
}
