package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/promptlab/promptflow/align"
	"github.com/promptlab/promptflow/artifact"
	"github.com/promptlab/promptflow/eventlog"
	"github.com/promptlab/promptflow/scoring"
)

// State names the controller's position in the lifecycle state machine.
type State string

// Controller states.
const (
	StateEvaluating State = "evaluating"
	StateRetrying   State = "retrying"
	StatePromoting  State = "promoting"
	StateAborted    State = "aborted"
)

// ImproveResult is what the improvement collaborator returns: new content
// plus the dimension keys it claims to have addressed. The collaborator
// never assigns the new version or stage; that stays with the controller.
type ImproveResult struct {
	Content   []byte
	Addressed []string
	Rationale string
}

// Improver is the improvement collaborator.
type Improver interface {
	Improve(ctx context.Context, content []byte, result *scoring.EvaluationResult) (*ImproveResult, error)
}

// ImproverFunc adapts a function to the Improver interface.
type ImproverFunc func(ctx context.Context, content []byte, result *scoring.EvaluationResult) (*ImproveResult, error)

// Improve implements Improver.
func (f ImproverFunc) Improve(ctx context.Context, content []byte, result *scoring.EvaluationResult) (*ImproveResult, error) {
	return f(ctx, content, result)
}

// Outcome is the terminal result of running one lineage.
type Outcome struct {
	State       State                     // StatePromoting or StateAborted
	Final       artifact.Ref              // Last ref the lineage reached
	Retry       RetryState                // Final retry bookkeeping
	LastResult  *scoring.EvaluationResult // Last evaluation, if one completed
	LastEventID string                    // Tail of the causal chain
}

// Promoted reports whether the lineage ended in promotion.
func (o *Outcome) Promoted() bool {
	return o.State == StatePromoting
}

// Config assembles a Controller.
type Config struct {
	Gate     *scoring.Gate     // Required scoring gate
	Improver Improver          // Required improvement collaborator
	Manager  *artifact.Manager // Required version/stage manager
	Checker  *align.Checker    // Required alignment checker
	Log      eventlog.Log      // Required event log
	Matrices *scoring.Registry // Required matrix registry

	// MaxRetries bounds the improvement loop (default DefaultMaxRetries).
	MaxRetries int

	// WriteReports controls whether the controller persists quality and
	// feedback reports itself. When false an external process must have
	// produced them, and a missing report aborts the lineage.
	WriteReports bool

	// AgentName and AgentVersion stamp the events this controller emits.
	AgentName    string
	AgentVersion string
}

// Controller runs the retry/promotion state machine for artifact lineages.
type Controller struct {
	gate         *scoring.Gate
	improver     Improver
	manager      *artifact.Manager
	checker      *align.Checker
	log          eventlog.Log
	matrices     *scoring.Registry
	maxRetries   int
	writeReports bool
	agentName    string
	agentVersion string
}

// New creates a controller from cfg.
func New(cfg Config) *Controller {
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	name := cfg.AgentName
	if name == "" {
		name = "lifecycle-controller"
	}
	version := cfg.AgentVersion
	if version == "" {
		version = "1.0.0"
	}
	return &Controller{
		gate:         cfg.Gate,
		improver:     cfg.Improver,
		manager:      cfg.Manager,
		checker:      cfg.Checker,
		log:          cfg.Log,
		matrices:     cfg.Matrices,
		maxRetries:   maxRetries,
		writeReports: cfg.WriteReports,
		agentName:    name,
		agentVersion: version,
	}
}

// RunIdentifier parses an identifier and runs its lineage. A malformed
// identifier is logged as an error event and aborts immediately.
func (c *Controller) RunIdentifier(ctx context.Context, workflowID, identifier, sourceEventID string) (*Outcome, error) {
	ref, err := artifact.Parse(identifier)
	if err != nil {
		evID, logErr := c.appendError(workflowID, "", sourceEventID, err)
		if logErr != nil {
			return nil, logErr
		}
		return &Outcome{State: StateAborted, LastEventID: evID}, err
	}
	return c.Run(ctx, workflowID, ref, sourceEventID)
}

// Run drives one artifact lineage to a terminal state.
//
// sourceEventID, when non-empty, chains the lineage's first event to the
// orchestrator event that triggered it.
func (c *Controller) Run(ctx context.Context, workflowID string, ref artifact.Ref, sourceEventID string) (*Outcome, error) {
	retry := RetryState{MaxRetries: c.maxRetries}
	current := ref
	srcID := sourceEventID

	outcome := &Outcome{Final: current, Retry: retry}

	for iteration := 1; ; iteration++ {
		slog.Debug("evaluating artifact",
			"workflowId", workflowID,
			"artifact", current.Format(),
			"iteration", iteration)

		art, err := c.manager.Load(current)
		if err != nil {
			return c.abortOnFault(outcome, workflowID, current, srcID, fmt.Errorf("load %s: %w", current, err))
		}

		matrix, err := c.matrixFor(current)
		if err != nil {
			return c.abortOnFault(outcome, workflowID, current, srcID, err)
		}

		result, err := c.gate.Evaluate(ctx, art.Content, matrix)
		if err != nil {
			// Evaluator unavailability is a step failure, not a quality
			// failure: abort without consuming retry budget.
			return c.abortOnFault(outcome, workflowID, current, srcID, err)
		}
		outcome.LastResult = result

		scoringEv, err := c.append(workflowID, eventlog.TypeScoring, eventlog.StatusSuccess, current, srcID, map[string]any{
			"score":          result.Score,
			"pass_threshold": result.PassThreshold,
			"feedback":       result.Feedback,
			"issues":         result.Issues,
			"matrix":         matrix.Name,
		}, iteration)
		if err != nil {
			return outcome, err
		}
		srcID = scoringEv
		outcome.LastEventID = scoringEv

		if c.writeReports {
			if err := c.checker.SaveQualityReport(current.Base, current.Version.String(), result.FlaggedDimensions()); err != nil {
				return c.abortOnFault(outcome, workflowID, current, srcID, err)
			}
		}

		if result.PassThreshold {
			promoted, err := c.manager.Promote(current)
			if err != nil {
				return c.abortOnFault(outcome, workflowID, current, srcID, err)
			}
			evID, err := c.append(workflowID, eventlog.TypePromotion, eventlog.StatusSuccess, promoted, srcID, map[string]any{
				"from":  current.Format(),
				"to":    promoted.Format(),
				"score": result.Score,
			}, iteration)
			if err != nil {
				return outcome, err
			}
			outcome.State = StatePromoting
			outcome.Final = promoted
			outcome.Retry = retry
			outcome.LastEventID = evID
			return outcome, nil
		}

		if retry.Exhausted() {
			evID, err := c.append(workflowID, eventlog.TypeError, eventlog.StatusError, current, srcID, map[string]any{
				"reason":      "retry budget exhausted",
				"retry_count": retry.RetryCount,
				"max_retries": retry.MaxRetries,
				"score":       result.Score,
			}, iteration)
			if err != nil {
				return outcome, err
			}
			outcome.State = StateAborted
			outcome.Final = current
			outcome.Retry = retry
			outcome.LastEventID = evID
			return outcome, nil
		}

		improved, err := c.improver.Improve(ctx, art.Content, result)
		if err != nil {
			return c.abortOnFault(outcome, workflowID, current, srcID, fmt.Errorf("improve %s: %w", current, err))
		}

		bumped, err := current.Version.Bump(artifact.BumpPatch)
		if err != nil {
			return c.abortOnFault(outcome, workflowID, current, srcID, err)
		}
		next := current
		next.Version = bumped

		if err := c.manager.Save(artifact.Artifact{Ref: next, Content: improved.Content}); err != nil {
			return c.abortOnFault(outcome, workflowID, current, srcID, err)
		}

		improveEv, err := c.append(workflowID, eventlog.TypeImprovement, eventlog.StatusSuccess, next, srcID, map[string]any{
			"from_version": current.Version.String(),
			"to_version":   next.Version.String(),
			"addressed":    improved.Addressed,
			"rationale":    improved.Rationale,
		}, iteration)
		if err != nil {
			return outcome, err
		}
		srcID = improveEv

		if c.writeReports {
			if err := c.checker.SaveFeedbackReport(current.Base, current.Version.String(), improved.Addressed); err != nil {
				return c.abortOnFault(outcome, workflowID, current, srcID, err)
			}
		}

		alignResult, err := c.checker.CheckReports(current.Base, current.Version.String())
		if err != nil {
			// A missing report is a data-integrity fault, reported rather
			// than silently treated as "not aligned".
			return c.abortOnFault(outcome, workflowID, current, srcID, err)
		}

		alignEv, err := c.append(workflowID, eventlog.TypeAlignmentCheck, eventlog.StatusSuccess, next, srcID, map[string]any{
			"aligned":       alignResult.Aligned,
			"quality_keys":  alignResult.QualityKeys,
			"feedback_keys": alignResult.FeedbackKeys,
		}, iteration)
		if err != nil {
			return outcome, err
		}
		srcID = alignEv
		outcome.LastEventID = alignEv

		// An unaligned improvement still consumed a budgeted attempt, and
		// the improved artifact is never discarded.
		retry.consume(alignResult.Aligned)
		outcome.Retry = retry
		current = next
		outcome.Final = current
	}
}

// matrixFor selects the scoring matrix for a ref: the raw stage uses the
// generic raw matrix, later stages the artifact family's own.
func (c *Controller) matrixFor(ref artifact.Ref) (scoring.Matrix, error) {
	name := ref.Base
	if ref.Stage == artifact.StageRaw {
		name = "raw"
	}
	return c.matrices.Lookup(name)
}

// abortOnFault logs a fault as an error event and returns an aborted
// outcome carrying the original error.
func (c *Controller) abortOnFault(outcome *Outcome, workflowID string, ref artifact.Ref, srcID string, fault error) (*Outcome, error) {
	slog.Debug("lineage aborted on fault",
		"workflowId", workflowID,
		"artifact", ref.Format(),
		"error", fault)

	evID, logErr := c.appendError(workflowID, ref.Version.String(), srcID, fault)
	if logErr != nil {
		return outcome, errors.Join(fault, logErr)
	}
	outcome.State = StateAborted
	outcome.Final = ref
	outcome.LastEventID = evID
	return outcome, fault
}

func (c *Controller) append(workflowID string, eventType eventlog.Type, status eventlog.Status, ref artifact.Ref, srcID string, payload map[string]any, iteration int) (string, error) {
	ev := eventlog.New(workflowID, eventType, status)
	ev.AgentName = c.agentName
	ev.AgentVersion = c.agentVersion
	ev.PromptVersion = ref.Version.String()
	ev.StepID = ref.Base
	ev.SourceEventID = srcID
	ev.Payload = payload
	ev.Meta = map[string]any{"iteration": iteration}

	if err := c.log.Append(ev); err != nil {
		// An outcome that cannot be durably recorded must not be treated
		// as having happened.
		return "", err
	}
	return ev.EventID, nil
}

func (c *Controller) appendError(workflowID, promptVersion, srcID string, fault error) (string, error) {
	ev := eventlog.New(workflowID, eventlog.TypeError, eventlog.StatusError)
	ev.AgentName = c.agentName
	ev.AgentVersion = c.agentVersion
	ev.PromptVersion = promptVersion
	ev.SourceEventID = srcID
	ev.Payload = map[string]any{"error": fault.Error()}

	if err := c.log.Append(ev); err != nil {
		return "", err
	}
	return ev.EventID, nil
}
