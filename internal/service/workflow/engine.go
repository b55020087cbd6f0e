package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/events"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/logging"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service"
)

// EngineDeps holds the collaborators shared by every stage.
type EngineDeps struct {
	Invoker service.Invoker
	Prompts *PromptRenderer
	Sink    *events.Sink
	Logger  *logging.Logger
	Metrics *service.Metrics

	// HistoryWindow is how many recent turns the planner sees.
	// Zero means DefaultHistoryWindow; negative disables history.
	HistoryWindow int

	// Now overrides the clock used for durations.
	Now func() time.Time
}

// Engine runs the four stages in fixed order over one WorkflowState.
// An Engine holds no per-request state and may be reused.
type Engine struct {
	stages  []Stage
	sink    *events.Sink
	logger  *logging.Logger
	metrics *service.Metrics
	now     func() time.Time
}

// NewEngine wires the stages. Invoker and Prompts are required.
func NewEngine(deps EngineDeps) (*Engine, error) {
	if deps.Invoker == nil {
		return nil, core.ErrInternal(core.CodeInvalidConfig, "workflow engine requires an invoker")
	}
	if deps.Prompts == nil {
		p, err := NewPromptRenderer()
		if err != nil {
			return nil, fmt.Errorf("loading prompts: %w", err)
		}
		deps.Prompts = p
	}
	if deps.Sink == nil {
		deps.Sink = events.NewSink()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	window := deps.HistoryWindow
	switch {
	case window == 0:
		window = DefaultHistoryWindow
	case window < 0:
		window = 0
	}

	base := func(name core.StageName) stageBase {
		return stageBase{
			name:    name,
			invoker: deps.Invoker,
			prompts: deps.Prompts,
			sink:    deps.Sink,
			logger:  deps.Logger.WithStage(string(name)),
			now:     deps.Now,
		}
	}

	return &Engine{
		stages: []Stage{
			&PlanStage{stageBase: base(core.StagePlan), historyWindow: window},
			&ResearchStage{stageBase: base(core.StageResearch)},
			&ExecuteStage{stageBase: base(core.StageExecute)},
			&ValidateStage{stageBase: base(core.StageValidate)},
		},
		sink:    deps.Sink,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		now:     deps.Now,
	}, nil
}

// Stages returns the stage names in execution order.
func (e *Engine) Stages() []core.StageName {
	out := make([]core.StageName, len(e.stages))
	for i, s := range e.stages {
		out[i] = s.Name()
	}
	return out
}

// Sink returns the event sink the engine reports to.
func (e *Engine) Sink() *events.Sink { return e.sink }

// Process runs the pipeline for one request. On failure the partially
// accumulated state is dropped and the stage error is returned wrapped.
func (e *Engine) Process(ctx context.Context, query string, history []core.Message) (core.WorkflowState, error) {
	if err := validateQuery(query); err != nil {
		return core.WorkflowState{}, err
	}

	start := e.now()
	state := core.NewWorkflowState(query, history)
	e.sink.Log(events.AgentOrchestrator, "Workflow Started",
		fmt.Sprintf("Query length: %d chars, History items: %d", chars(query), len(history)), events.StatusInfo)
	e.sink.LogTransition(events.AgentOrchestrator, e.stages[0].Name().DisplayName(), "")

	for _, stage := range e.stages {
		if err := ctx.Err(); err != nil {
			return e.failed(start, stage.Name(), err)
		}

		stageStart := e.now()
		update, err := stage.Run(ctx, state)
		if err != nil {
			return e.failed(start, stage.Name(), err)
		}
		next, err := state.Apply(stage.Name(), update)
		if err != nil {
			return e.failed(start, stage.Name(), err)
		}
		state = next
		e.metrics.ObserveStage(string(stage.Name()), string(state.Status), e.now().Sub(stageStart))

		e.sink.LogTransition(stage.Name().DisplayName(), core.NextStage(stage.Name()).DisplayName(),
			"Status: "+string(state.Status))
	}

	total := e.now().Sub(start)
	e.sink.LogTimed(events.AgentOrchestrator, "Workflow Completed",
		fmt.Sprintf("Total duration: %.2fs, Iterations: %d", total.Seconds(), state.Iteration),
		events.StatusSuccess, total)
	e.metrics.ObserveWorkflow("success", total)
	return state, nil
}

func (e *Engine) failed(start time.Time, stage core.StageName, err error) (core.WorkflowState, error) {
	total := e.now().Sub(start)
	e.sink.LogTimed(events.AgentOrchestrator, "Workflow Failed",
		fmt.Sprintf("Stage: %s, Error: %v", stage.DisplayName(), err), events.StatusError, total)
	e.metrics.ObserveWorkflow("failure", total)
	e.logger.Error("workflow failed", "stage", string(stage), "error", err)
	return core.WorkflowState{}, fmt.Errorf("workflow: %w", err)
}

func validateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return core.ErrValidation(core.CodeEmptyQuery, "query must not be empty")
	}
	if chars(query) > core.MaxQueryLength {
		return core.ErrValidation(core.CodeQueryTooLong,
			fmt.Sprintf("query exceeds %d characters", core.MaxQueryLength))
	}
	return nil
}
