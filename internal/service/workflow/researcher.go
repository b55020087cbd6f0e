package workflow

import (
	"context"
	"fmt"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

// NoResearchTasks is stored as research results when the plan yielded no tasks.
const NoResearchTasks = "No research tasks provided."

// ResearchStage researches every task extracted by the planner.
type ResearchStage struct {
	stageBase
}

// Run short-circuits with StatusNoTasks when there is nothing to research.
func (s *ResearchStage) Run(ctx context.Context, state core.WorkflowState) (core.StateUpdate, error) {
	start := s.now()
	n := countItems(state.ResearchTasks)
	s.logInfo("Execution Started", fmt.Sprintf("Research tasks: %d items", n))

	if isBlank(state.ResearchTasks) {
		s.logSkip("No Research Tasks", "Skipping research - no tasks provided")
		return core.StateUpdate{
			ResearchResults: core.Text(NoResearchTasks),
			Status:          core.StatusNoTasks,
		}, nil
	}

	s.logInfo("Conducting Research", fmt.Sprintf("Researching %d tasks", n))
	results, err := s.call(ctx, promptResearch, researchPromptData{
		Plan:  state.Plan,
		Tasks: state.ResearchTasks,
		Query: state.UserQuery,
	})
	if err != nil {
		return core.StateUpdate{}, s.fail("researching tasks", err, start)
	}

	s.logDone("Research Completed", fmt.Sprintf("Results length: %d characters", chars(results)), start)
	return core.StateUpdate{
		ResearchResults: core.Text(results),
		Status:          core.StatusResearchCompleted,
	}, nil
}
