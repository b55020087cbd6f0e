package core

// StageName identifies a step of the planning pipeline.
type StageName string

const (
	// StagePlan drafts the trip plan and extracts the research task list.
	StagePlan StageName = "planner"

	// StageResearch gathers options, prices and availability for each task.
	StageResearch StageName = "researcher"

	// StageExecute synthesizes plan and research into the final itinerary.
	StageExecute StageName = "executor"

	// StageValidate reviews the itinerary (or plan) and lists next steps.
	StageValidate StageName = "validator"

	// StageDone is the terminal marker after every stage has run.
	// It is NOT an executable stage.
	StageDone StageName = "done"
)

// AllStages returns the executable stages in pipeline order.
func AllStages() []StageName {
	return []StageName{StagePlan, StageResearch, StageExecute, StageValidate}
}

// StageOrder returns the 0-indexed position of a stage, or -1 if unknown.
func StageOrder(s StageName) int {
	switch s {
	case StagePlan:
		return 0
	case StageResearch:
		return 1
	case StageExecute:
		return 2
	case StageValidate:
		return 3
	case StageDone:
		return 4
	default:
		return -1
	}
}

// NextStage returns the stage that follows s. The last executable stage
// is followed by StageDone; unknown stages return "".
func NextStage(s StageName) StageName {
	switch s {
	case StagePlan:
		return StageResearch
	case StageResearch:
		return StageExecute
	case StageExecute:
		return StageValidate
	case StageValidate:
		return StageDone
	default:
		return ""
	}
}

// DisplayName returns the agent label used in operation logs.
func (s StageName) DisplayName() string {
	switch s {
	case StagePlan:
		return "Planner"
	case StageResearch:
		return "Researcher"
	case StageExecute:
		return "Executor"
	case StageValidate:
		return "Validator"
	case StageDone:
		return "END"
	default:
		return string(s)
	}
}

// Status labels the outcome of the most recent stage.
type Status string

const (
	StatusInitialized         Status = "initialized"
	StatusPlanCreated         Status = "plan_created"
	StatusResearchCompleted   Status = "research_completed"
	StatusNoTasks             Status = "no_tasks"
	StatusExecutionCompleted  Status = "execution_completed"
	StatusValidationCompleted Status = "validation_completed"
	StatusNoContent           Status = "no_content"
)

// IsShortCircuit reports whether the status marks a stage that had nothing to do.
func (s Status) IsShortCircuit() bool {
	return s == StatusNoTasks || s == StatusNoContent
}
