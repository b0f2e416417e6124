// Package pipeline orchestrates ordered processing steps over a workflow run.
//
// A Pipeline takes an ordered list of Step descriptors, compiles them into a
// flowgraph graph, and executes them strictly in sequence. Each step's event
// is chained to the previous step's via source_event_id, so one run produces
// one linear causal chain in the event log. A failing step stops the run:
// downstream steps never execute, and the failing event is the run's result.
//
// Steps that drive an evaluate/improve cycle delegate to the controller
// package, whose retry sub-chain is the only place the causal chain branches.
// The orchestrator itself never retries a step.
//
// Example usage:
//
//	p, err := pipeline.New(pipeline.Config{
//	    Log: log,
//	    Steps: []pipeline.Step{
//	        {Name: "extract", Type: eventlog.TypeExtraction, Fn: extractFn},
//	        pipeline.QualityStep("quality", ctrl),
//	        {Name: "classify", Type: eventlog.TypeClassification, Fn: classifyFn},
//	    },
//	})
//	state, err := p.Run(ctx, pipeline.NewState("wf-contact"))
package pipeline
