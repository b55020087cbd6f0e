package core

import "fmt"

// Message is one role/content turn of a conversation.
type Message struct {
	Role    string `json:"role" yaml:"role"` // "user", "assistant"
	Content string `json:"content" yaml:"content"`
}

// WorkflowState is the record threaded through the pipeline. It is created
// per request and owned by exactly one execution context at a time.
type WorkflowState struct {
	UserQuery           string    `json:"user_query" yaml:"user_query"`
	ConversationHistory []Message `json:"conversation_history,omitempty" yaml:"conversation_history,omitempty"`
	Plan                string    `json:"plan" yaml:"plan"`
	ResearchTasks       string    `json:"research_tasks" yaml:"research_tasks"`
	ResearchResults     string    `json:"research_results" yaml:"research_results"`
	FinalItinerary      string    `json:"final_itinerary" yaml:"final_itinerary"`
	Validation          string    `json:"validation" yaml:"validation"`
	Status              Status    `json:"status" yaml:"status"`
	CurrentAgent        StageName `json:"current_agent" yaml:"current_agent"`
	Iteration           int       `json:"iteration" yaml:"iteration"`
}

// NewWorkflowState returns a fresh state with only the query and a private
// copy of the history populated.
func NewWorkflowState(query string, history []Message) WorkflowState {
	var h []Message
	if len(history) > 0 {
		h = make([]Message, len(history))
		copy(h, history)
	}
	return WorkflowState{
		UserQuery:           query,
		ConversationHistory: h,
		Status:              StatusInitialized,
	}
}

// RecentHistory returns at most the last n history entries.
func (s WorkflowState) RecentHistory(n int) []Message {
	if n <= 0 || len(s.ConversationHistory) == 0 {
		return nil
	}
	if len(s.ConversationHistory) <= n {
		return s.ConversationHistory
	}
	return s.ConversationHistory[len(s.ConversationHistory)-n:]
}

// Field names a content field of WorkflowState.
type Field string

const (
	FieldPlan            Field = "plan"
	FieldResearchTasks   Field = "research_tasks"
	FieldResearchResults Field = "research_results"
	FieldFinalItinerary  Field = "final_itinerary"
	FieldValidation      Field = "validation"
)

// OwnedFields returns the content fields a stage may write.
func OwnedFields(stage StageName) []Field {
	switch stage {
	case StagePlan:
		return []Field{FieldPlan, FieldResearchTasks}
	case StageResearch:
		return []Field{FieldResearchResults}
	case StageExecute:
		return []Field{FieldFinalItinerary}
	case StageValidate:
		return []Field{FieldValidation}
	default:
		return nil
	}
}

// StateUpdate is the partial result of one stage. Nil fields are left untouched.
type StateUpdate struct {
	Plan            *string
	ResearchTasks   *string
	ResearchResults *string
	FinalItinerary  *string
	Validation      *string
	Status          Status
}

// Text returns a pointer to s, for building updates.
func Text(s string) *string { return &s }

// Fields lists the content fields set on the update.
func (u StateUpdate) Fields() []Field {
	var out []Field
	if u.Plan != nil {
		out = append(out, FieldPlan)
	}
	if u.ResearchTasks != nil {
		out = append(out, FieldResearchTasks)
	}
	if u.ResearchResults != nil {
		out = append(out, FieldResearchResults)
	}
	if u.FinalItinerary != nil {
		out = append(out, FieldFinalItinerary)
	}
	if u.Validation != nil {
		out = append(out, FieldValidation)
	}
	return out
}

// Apply merges the update produced by stage into s and returns the result.
// An update touching a field the stage does not own is rejected, so later
// stages never clobber what earlier ones wrote. Every successful merge sets
// CurrentAgent and advances Iteration by exactly one.
func (s WorkflowState) Apply(stage StageName, u StateUpdate) (WorkflowState, error) {
	owned := OwnedFields(stage)
	if owned == nil {
		return s, ErrInternal(CodeStateOwnership, fmt.Sprintf("stage %q cannot update state", stage))
	}
	for _, f := range u.Fields() {
		if !containsField(owned, f) {
			return s, ErrInternal(CodeStateOwnership,
				fmt.Sprintf("stage %q attempted to write %q", stage, f))
		}
	}

	if u.Plan != nil {
		s.Plan = *u.Plan
	}
	if u.ResearchTasks != nil {
		s.ResearchTasks = *u.ResearchTasks
	}
	if u.ResearchResults != nil {
		s.ResearchResults = *u.ResearchResults
	}
	if u.FinalItinerary != nil {
		s.FinalItinerary = *u.FinalItinerary
	}
	if u.Validation != nil {
		s.Validation = *u.Validation
	}
	if u.Status != "" {
		s.Status = u.Status
	}
	s.CurrentAgent = stage
	s.Iteration++
	return s, nil
}

func containsField(fields []Field, f Field) bool {
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}

// Result is the flat caller-facing view of a finished state.
type Result struct {
	Plan            string `json:"plan" yaml:"plan"`
	ResearchResults string `json:"research_results" yaml:"research_results"`
	FinalItinerary  string `json:"final_itinerary" yaml:"final_itinerary"`
	Validation      string `json:"validation" yaml:"validation"`
	Status          Status `json:"status" yaml:"status"`
}

// Result projects the state onto the caller-facing shape.
func (s WorkflowState) Result() Result {
	return Result{
		Plan:            s.Plan,
		ResearchResults: s.ResearchResults,
		FinalItinerary:  s.FinalItinerary,
		Validation:      s.Validation,
		Status:          s.Status,
	}
}
