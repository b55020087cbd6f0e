package testutil

import (
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

// NewTestState creates a WorkflowState with a sample query for tests.
// Use functional options to override specific fields.
func NewTestState(opts ...func(*core.WorkflowState)) core.WorkflowState {
	s := core.NewWorkflowState("5-day trip to Lisbon, budget $1500", nil)
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
