package workflow

import (
	"context"
	"fmt"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

// DefaultHistoryWindow is how many recent conversation turns the planner sees.
const DefaultHistoryWindow = 5

// PlanStage drafts the trip plan, then asks for the research task list
// derived from it.
type PlanStage struct {
	stageBase
	historyWindow int
}

// Run performs two generation calls: the plan, then the task extraction.
func (s *PlanStage) Run(ctx context.Context, state core.WorkflowState) (core.StateUpdate, error) {
	start := s.now()
	s.logInfo("Execution Started", fmt.Sprintf("Processing user query (%d chars)", chars(state.UserQuery)))

	history := state.RecentHistory(s.historyWindow)
	contextChars := 0
	for _, m := range history {
		contextChars += chars(m.Role) + chars(m.Content) + 3 // "role: content\n"
	}
	s.logInfo("Creating Travel Plan",
		fmt.Sprintf("Context length: %d chars, History items: %d", contextChars, len(state.ConversationHistory)))

	plan, err := s.call(ctx, promptPlan, planPromptData{Query: state.UserQuery, History: history})
	if err != nil {
		return core.StateUpdate{}, s.fail("drafting plan", err, start)
	}
	s.logDone("Plan Created", fmt.Sprintf("Plan length: %d characters", chars(plan)), start)

	s.logInfo("Extracting Research Tasks", "Analyzing plan to identify research requirements")
	tasks, err := s.call(ctx, promptTasks, tasksPromptData{Plan: plan})
	if err != nil {
		return core.StateUpdate{}, s.fail("extracting research tasks", err, start)
	}

	s.logDone("Execution Completed", fmt.Sprintf("Research tasks identified: %d items", countItems(tasks)), start)
	return core.StateUpdate{
		Plan:          core.Text(plan),
		ResearchTasks: core.Text(tasks),
		Status:        core.StatusPlanCreated,
	}, nil
}
