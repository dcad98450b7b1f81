package orchestration

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taxonaut/taxonaut/core"
)

// State of a plan execution.
type State string

const (
	StateIdle            State = "idle"
	StateRunningMustCall State = "running_must_call"
	StateRunningOptional State = "running_optional"
	StateAborted         State = "aborted"
	StateDone            State = "done"
)

// AbortedOutcomeName is the tool name of the synthetic outcome appended
// when a must-call failure (or cancellation) aborts the plan.
const AbortedOutcomeName = "plan_aborted"

// ExecutionResult is the executor's output: the final state, the ordered
// outcome sequence (one per attempted entry, plus the synthetic aborted
// marker when phase 1 fails), and a user-facing message for plans that
// ran no tools. Response assembly happens outside this package.
type ExecutionResult struct {
	PlanID        string             `json:"plan_id"`
	State         State              `json:"state"`
	Outcomes      []core.ToolOutcome `json:"outcomes"`
	Message       string             `json:"message,omitempty"`
	TotalDuration time.Duration      `json:"total_duration"`
}

// Succeeded reports whether every attempted outcome succeeded and the
// plan was not aborted.
func (r *ExecutionResult) Succeeded() bool {
	if r.State == StateAborted {
		return false
	}
	for _, o := range r.Outcomes {
		if !o.Succeeded {
			return false
		}
	}
	return true
}

// Executor runs research plans in two phases. Phase 1 invokes the
// must-call entries in plan order and fails fast: the first failure
// aborts the remaining must-call entries and skips phase 2 entirely.
// Phase 2 invokes the optional entries in plan order, best-effort: a
// failure is recorded and execution continues.
//
// Tools run strictly sequentially. Later optional tools may assume
// artifacts from earlier entries exist, and sequential order keeps
// failure attribution trivial.
type Executor struct {
	registry *Registry
	tools    map[string]Tool
	logger   core.Logger
	tracer   trace.Tracer

	// callTimeout bounds each individual tool invocation.
	callTimeout time.Duration
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithCallTimeout overrides the per-invocation timeout.
func WithCallTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.callTimeout = d
		}
	}
}

// NewExecutor creates an executor over the registry and tool set. Every
// registered capability must have an implementation and every
// implementation a registry entry; mismatches are configuration errors
// caught here rather than at execution time.
func NewExecutor(registry *Registry, tools []Tool, opts ...ExecutorOption) (*Executor, error) {
	e := &Executor{
		registry:    registry,
		tools:       make(map[string]Tool, len(tools)),
		logger:      &core.NoOpLogger{},
		tracer:      otel.Tracer("taxonaut/orchestration"),
		callTimeout: core.DefaultRequestTimeout,
	}

	for _, tool := range tools {
		if _, ok := registry.Lookup(tool.Name()); !ok {
			return nil, fmt.Errorf("%w: %q has no registry entry", core.ErrToolNotFound, tool.Name())
		}
		e.tools[tool.Name()] = tool
	}
	for _, name := range registry.Names() {
		if _, ok := e.tools[name]; !ok {
			return nil, fmt.Errorf("%w: capability %q", core.ErrToolNotRegistered, name)
		}
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SetLogger sets the logger provider
func (e *Executor) SetLogger(logger core.Logger) {
	if logger == nil {
		e.logger = &core.NoOpLogger{}
	} else {
		e.logger = logger
	}
}

// Execute runs a plan. Every attempted entry contributes exactly one
// outcome; no planned entry is silently dropped. An empty plan is a
// no-op that surfaces the plan's clarification message, never an error.
func (e *Executor) Execute(ctx context.Context, plan *core.ResearchPlan, tc *ToolContext) *ExecutionResult {
	ctx, span := e.tracer.Start(ctx, "orchestration.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("plan.id", plan.PlanID),
		attribute.String("plan.query_type", string(plan.QueryType)),
		attribute.Int("plan.entry_count", len(plan.Entries)),
	)

	startTime := time.Now()
	result := &ExecutionResult{
		PlanID:   plan.PlanID,
		State:    StateIdle,
		Outcomes: make([]core.ToolOutcome, 0, len(plan.Entries)+1),
	}

	if len(plan.Entries) == 0 {
		result.State = StateDone
		result.Message = plan.Message
		if result.Message == "" {
			result.Message = "I couldn't find an actionable way to answer that. Could you rephrase?"
		}
		result.TotalDuration = time.Since(startTime)
		e.logger.Info("Empty plan, nothing to execute", map[string]interface{}{
			"operation": "execute",
			"plan_id":   plan.PlanID,
		})
		return result
	}

	mustCall, optional := splitByPriority(plan.Entries)

	e.logger.Debug("Starting plan execution", map[string]interface{}{
		"operation":      "execute",
		"plan_id":        plan.PlanID,
		"must_call":      len(mustCall),
		"optional":       len(optional),
	})

	// Phase 1: must-call, fail fast.
	result.State = StateRunningMustCall
	for _, entry := range mustCall {
		if err := ctx.Err(); err != nil {
			e.abort(result, fmt.Sprintf("execution canceled before %s: %v", entry.ToolName, err))
			result.TotalDuration = time.Since(startTime)
			return result
		}

		outcome := e.invoke(ctx, entry, tc)
		result.Outcomes = append(result.Outcomes, outcome)

		if !outcome.Succeeded {
			e.logger.Warn("Must-call tool failed, aborting plan", map[string]interface{}{
				"operation": "execute",
				"plan_id":   plan.PlanID,
				"tool":      entry.ToolName,
				"error":     outcome.Error,
			})
			e.abort(result, fmt.Sprintf("plan aborted: must-call tool %s failed", entry.ToolName))
			result.TotalDuration = time.Since(startTime)
			return result
		}
	}

	// Phase 2: optional, best effort. Failures are recorded and the
	// next entry still runs.
	result.State = StateRunningOptional
	for _, entry := range optional {
		if err := ctx.Err(); err != nil {
			e.abort(result, fmt.Sprintf("execution canceled before %s: %v", entry.ToolName, err))
			result.TotalDuration = time.Since(startTime)
			return result
		}

		outcome := e.invoke(ctx, entry, tc)
		result.Outcomes = append(result.Outcomes, outcome)

		if !outcome.Succeeded {
			e.logger.Info("Optional tool failed, continuing", map[string]interface{}{
				"operation": "execute",
				"plan_id":   plan.PlanID,
				"tool":      entry.ToolName,
				"error":     outcome.Error,
			})
		}
	}

	result.State = StateDone
	result.TotalDuration = time.Since(startTime)

	failed := 0
	for _, o := range result.Outcomes {
		if !o.Succeeded {
			failed++
		}
	}
	e.logger.Info("Plan execution finished", map[string]interface{}{
		"operation":   "execute",
		"plan_id":     plan.PlanID,
		"state":       string(result.State),
		"outcomes":    len(result.Outcomes),
		"failed":      failed,
		"duration_ms": result.TotalDuration.Milliseconds(),
	})
	return result
}

// invoke runs one tool with panic containment and a bounded timeout.
// It always returns exactly one outcome.
func (e *Executor) invoke(ctx context.Context, entry core.ToolPlanEntry, tc *ToolContext) (outcome core.ToolOutcome) {
	startTime := time.Now()

	ctx, span := e.tracer.Start(ctx, "orchestration.invoke."+entry.ToolName)
	defer span.End()
	span.SetAttributes(
		attribute.String("tool.name", entry.ToolName),
		attribute.String("tool.priority", string(entry.Priority)),
	)

	defer func() {
		if r := recover(); r != nil {
			// A panicking tool becomes a failed outcome; it must never
			// escape the executor boundary.
			e.logger.Error("Tool invocation panicked", map[string]interface{}{
				"operation": "invoke",
				"tool":      entry.ToolName,
				"panic":     fmt.Sprintf("%v", r),
				"stack":     string(debug.Stack()),
			})
			outcome = core.ToolOutcome{
				ToolName:  entry.ToolName,
				Succeeded: false,
				Message:   "tool failed unexpectedly",
				Error:     fmt.Sprintf("panic: %v", r),
				StartTime: startTime,
				Duration:  time.Since(startTime),
			}
		}
		span.SetAttributes(attribute.Bool("tool.succeeded", outcome.Succeeded))
	}()

	tool, ok := e.tools[entry.ToolName]
	if !ok {
		return core.ToolOutcome{
			ToolName:  entry.ToolName,
			Succeeded: false,
			Message:   "tool not available",
			Error:     core.ErrToolNotRegistered.Error(),
			StartTime: startTime,
			Duration:  time.Since(startTime),
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	outcome = tool.Invoke(callCtx, tc)
	outcome.ToolName = entry.ToolName
	if outcome.StartTime.IsZero() {
		outcome.StartTime = startTime
	}
	if outcome.Duration == 0 {
		outcome.Duration = time.Since(startTime)
	}
	return outcome
}

// abort appends the synthetic aborted outcome and moves the result to
// the aborted state.
func (e *Executor) abort(result *ExecutionResult, message string) {
	result.Outcomes = append(result.Outcomes, core.ToolOutcome{
		ToolName:  AbortedOutcomeName,
		Succeeded: false,
		Message:   message,
		Error:     core.ErrPlanAborted.Error(),
		StartTime: time.Now(),
	})
	result.State = StateAborted
	result.Message = "I could not complete your request."
}

func splitByPriority(entries []core.ToolPlanEntry) (mustCall, optional []core.ToolPlanEntry) {
	for _, entry := range entries {
		if entry.Priority == core.PriorityMustCall {
			mustCall = append(mustCall, entry)
		} else {
			optional = append(optional, entry)
		}
	}
	return mustCall, optional
}
