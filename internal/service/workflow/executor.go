package workflow

import (
	"context"
	"fmt"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

// ExecuteStage synthesizes the plan and research into the final itinerary.
type ExecuteStage struct {
	stageBase
}

// Run performs one generation call.
func (s *ExecuteStage) Run(ctx context.Context, state core.WorkflowState) (core.StateUpdate, error) {
	start := s.now()
	s.logInfo("Execution Started", fmt.Sprintf("Synthesizing plan (%d chars) and research (%d chars)",
		chars(state.Plan), chars(state.ResearchResults)))

	itinerary, err := s.call(ctx, promptItinerary, itineraryPromptData{
		Plan:     state.Plan,
		Research: state.ResearchResults,
		Query:    state.UserQuery,
	})
	if err != nil {
		return core.StateUpdate{}, s.fail("composing itinerary", err, start)
	}

	s.logDone("Execution Completed", fmt.Sprintf("Final itinerary created: %d characters", chars(itinerary)), start)
	return core.StateUpdate{
		FinalItinerary: core.Text(itinerary),
		Status:         core.StatusExecutionCompleted,
	}, nil
}
