package workflow

import (
	"context"
	"fmt"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

// NoContentToValidate is stored as validation when neither an itinerary nor
// a plan exists.
const NoContentToValidate = "No content to validate."

// ValidateStage reviews the final itinerary, or the plan when no itinerary
// was produced.
type ValidateStage struct {
	stageBase
}

// Run short-circuits with StatusNoContent when there is nothing to review.
func (s *ValidateStage) Run(ctx context.Context, state core.WorkflowState) (core.StateUpdate, error) {
	start := s.now()

	content, label := state.FinalItinerary, "final itinerary"
	if isBlank(content) {
		content, label = state.Plan, "plan"
	}
	s.logInfo("Validation Started", fmt.Sprintf("Validating %s (%d chars)", label, chars(content)))

	if isBlank(content) {
		s.logSkip("No Content to Validate", "Skipping validation - no content provided")
		return core.StateUpdate{
			Validation: core.Text(NoContentToValidate),
			Status:     core.StatusNoContent,
		}, nil
	}

	validation, err := s.call(ctx, promptReview, reviewPromptData{Content: content, Query: state.UserQuery})
	if err != nil {
		return core.StateUpdate{}, s.fail("validating "+label, err, start)
	}

	s.logDone("Validation Completed", fmt.Sprintf("Validation feedback: %d characters", chars(validation)), start)
	return core.StateUpdate{
		Validation: core.Text(validation),
		Status:     core.StatusValidationCompleted,
	}, nil
}
