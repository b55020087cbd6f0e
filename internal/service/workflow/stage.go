// Package workflow implements the fixed Plan → Research → Execute → Validate
// pipeline and the Engine that threads WorkflowState through it.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/events"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/logging"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service"
)

// Stage is one step of the pipeline. The set is closed: only PlanStage,
// ResearchStage, ExecuteStage and ValidateStage implement it.
type Stage interface {
	Name() core.StageName
	Run(ctx context.Context, state core.WorkflowState) (core.StateUpdate, error)
	isStage()
}

// stageBase carries what every stage needs to call out and report.
type stageBase struct {
	name    core.StageName
	invoker service.Invoker
	prompts *PromptRenderer
	sink    *events.Sink
	logger  *logging.Logger
	now     func() time.Time
}

func (b stageBase) Name() core.StageName { return b.name }

func (stageBase) isStage() {}

func (b stageBase) agent() string { return b.name.DisplayName() }

func (b stageBase) logInfo(operation, details string) {
	b.sink.Log(b.agent(), operation, details, events.StatusInfo)
}

func (b stageBase) logDone(operation, details string, start time.Time) {
	b.sink.LogTimed(b.agent(), operation, details, events.StatusSuccess, b.now().Sub(start))
}

func (b stageBase) logSkip(operation, details string) {
	b.sink.Log(b.agent(), operation, details, events.StatusWarning)
}

func (b stageBase) fail(step string, err error, start time.Time) error {
	b.sink.LogTimed(b.agent(), "Execution Failed", "Error: "+err.Error(), events.StatusError, b.now().Sub(start))
	b.logger.Error("stage failed", "step", step, "error", err)
	return fmt.Errorf("%s: %s: %w", b.name, step, err)
}

// call renders a task template and sends it with the stage's system prompt.
func (b stageBase) call(ctx context.Context, templateID string, data any) (string, error) {
	prompt, err := b.prompts.Render(templateID, data)
	if err != nil {
		return "", core.ErrInternal("PROMPT_RENDER", err.Error()).WithCause(err)
	}
	return b.invoker.Invoke(ctx, service.CallRequest{
		Agent:        b.agent(),
		SystemPrompt: b.prompts.System(b.name),
		Prompt:       prompt,
	})
}

func chars(s string) int {
	return utf8.RuneCountInString(s)
}

// countItems counts non-blank lines of a newline-delimited list.
func countItems(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
