package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	llm "github.com/randalmurphal/llmkit/claude"
	"gopkg.in/yaml.v3"

	"github.com/promptlab/promptflow/controller"
	"github.com/promptlab/promptflow/prompt"
	"github.com/promptlab/promptflow/scoring"
	"github.com/promptlab/promptflow/task"
)

// evaluatePrompt and improvePrompt name the templates the LLM strategies
// load; embedded defaults ship with the prompt package.
const (
	evaluatePrompt = "evaluate-artifact"
	improvePrompt  = "improve-artifact"
)

// LLMEvaluator scores artifacts by asking a model to fill in the matrix.
type LLMEvaluator struct {
	client llm.Client
	loader *prompt.Loader
}

// NewLLMEvaluator creates an LLM-backed evaluator.
func NewLLMEvaluator(client llm.Client, loader *prompt.Loader) *LLMEvaluator {
	if loader == nil {
		loader = prompt.NewLoader(".")
	}
	return &LLMEvaluator{client: client, loader: loader}
}

// Evaluate implements scoring.Evaluator.
func (e *LLMEvaluator) Evaluate(ctx context.Context, content []byte, matrix scoring.Matrix) (*scoring.Report, error) {
	systemPrompt, err := e.loader.Load(evaluatePrompt)
	if err != nil {
		return nil, err
	}

	matrixYAML, err := yaml.Marshal(matrix)
	if err != nil {
		return nil, fmt.Errorf("marshal matrix %s: %w", matrix.Name, err)
	}

	userPrompt := prompt.NewBuilder().
		AddSection("Scoring Matrix", string(matrixYAML)).
		AddSection("Artifact", string(content)).
		Build()

	slog.Debug("evaluating with model",
		"matrix", matrix.Name,
		"model", task.SelectModel(task.Evaluate))

	result, err := e.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: userPrompt}},
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Scores   map[string]float64 `json:"scores"`
		Feedback string             `json:"feedback"`
		Issues   []string           `json:"issues"`
	}
	if err := json.Unmarshal([]byte(extractJSON(result.Content)), &parsed); err != nil {
		return nil, fmt.Errorf("parse evaluation response: %w", err)
	}

	return &scoring.Report{
		Scores:   parsed.Scores,
		Feedback: parsed.Feedback,
		Issues:   parsed.Issues,
	}, nil
}

// LLMImprover rewrites artifacts by asking a model to address flagged
// dimensions.
type LLMImprover struct {
	client llm.Client
	loader *prompt.Loader
}

// NewLLMImprover creates an LLM-backed improver.
func NewLLMImprover(client llm.Client, loader *prompt.Loader) *LLMImprover {
	if loader == nil {
		loader = prompt.NewLoader(".")
	}
	return &LLMImprover{client: client, loader: loader}
}

// Improve implements controller.Improver.
func (i *LLMImprover) Improve(ctx context.Context, content []byte, result *scoring.EvaluationResult) (*controller.ImproveResult, error) {
	systemPrompt, err := i.loader.Load(improvePrompt)
	if err != nil {
		return nil, err
	}

	builder := prompt.NewBuilder().
		AddSection("Artifact", string(content))
	if result.Feedback != "" {
		builder.AddSection("Reviewer Feedback", result.Feedback)
	}
	if flagged := result.FlaggedDimensions(); len(flagged) > 0 {
		builder.AddList("Dimensions Below Target", flagged)
	}

	slog.Debug("improving with model", "model", task.SelectModel(task.Improve))

	resp, err := i.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: builder.Build()}},
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Content   string   `json:"content"`
		Addressed []string `json:"addressed"`
		Rationale string   `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &parsed); err != nil {
		return nil, fmt.Errorf("parse improvement response: %w", err)
	}
	if parsed.Content == "" {
		return nil, fmt.Errorf("improvement response carried no content")
	}

	return &controller.ImproveResult{
		Content:   []byte(parsed.Content),
		Addressed: parsed.Addressed,
		Rationale: parsed.Rationale,
	}, nil
}

// extractJSON pulls a JSON object out of a model response, handling fenced
// code blocks around the payload.
func extractJSON(output string) string {
	output = strings.TrimSpace(output)

	if start := strings.Index(output, "```json"); start != -1 {
		start += 7
		if end := strings.Index(output[start:], "```"); end != -1 {
			return strings.TrimSpace(output[start : start+end])
		}
	} else if start := strings.Index(output, "```"); start != -1 {
		start += 3
		if end := strings.Index(output[start:], "```"); end != -1 {
			return strings.TrimSpace(output[start : start+end])
		}
	}
	return output
}
