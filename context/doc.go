// Package context provides dependency injection for lifecycle services.
//
// Core types:
//   - Services: Collection of all promptflow services for injection
//   - SourceSet: Gathers raw prompt material into a raw-stage artifact
//   - SourceLimits: Size limits for source assembly
//
// Context injection functions:
//   - WithStore/Store: Artifact store injection
//   - WithArtifact/Artifact: Artifact manager injection
//   - WithLog/Log: Event log injection
//   - WithLLM/LLM: LLM client injection (flowgraph llm.Client)
//   - WithPrompt/Prompt: Prompt loader injection
//   - WithEvaluator/Evaluator: Scoring evaluator injection
//   - WithImprover/Improver: Artifact improver injection
//
// Example usage:
//
//	settings, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	services, err := context.NewServices(context.Config{
//	    BaseDir:  ".promptflow",
//	    Settings: &settings,
//	})
//	ctx := services.InjectAll(ctx)
//
//	// Later, retrieve services
//	mgr := context.Artifact(ctx)
//	log := context.Log(ctx)
package context
