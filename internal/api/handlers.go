package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/bridge"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/events"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service/conversation"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service/report"
)

// PlanRequest is the body of POST /api/v1/plan and POST /api/v1/tasks.
type PlanRequest struct {
	Query          string         `json:"query"`
	History        []core.Message `json:"history,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
}

// PlanResponse carries a finished pipeline result.
type PlanResponse struct {
	Result         core.Result `json:"result"`
	Answer         string      `json:"answer"`
	Summary        string      `json:"summary"`
	NextSteps      string      `json:"next_steps"`
	Iteration      int         `json:"iteration"`
	ConversationID string      `json:"conversation_id,omitempty"`
}

// TaskResponse acknowledges a background submission.
type TaskResponse struct {
	TaskID         string        `json:"task_id"`
	Status         bridge.Status `json:"status"`
	ConversationID string        `json:"conversation_id,omitempty"`
}

// TaskStatusResponse is the body of GET /api/v1/tasks/current.
type TaskStatusResponse struct {
	Status      bridge.Status `json:"status"`
	TaskID      string        `json:"task_id,omitempty"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	Result      *PlanResponse `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
	RateLimited bool          `json:"rate_limited"`
}

func newPlanResponse(state core.WorkflowState, conversationID string) *PlanResponse {
	res := state.Result()
	answer := report.Compose(res)
	return &PlanResponse{
		Result:         res,
		Answer:         answer.Markdown,
		Summary:        answer.Summary,
		NextSteps:      answer.NextSteps,
		Iteration:      state.Iteration,
		ConversationID: conversationID,
	}
}

func decodePlanRequest(w http.ResponseWriter, r *http.Request) (PlanRequest, bool) {
	var req PlanRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, false
	}
	return req, true
}

// history returns the request history, falling back to the stored
// conversation when the request carries none.
func (s *Server) history(ctx context.Context, req PlanRequest) ([]core.Message, error) {
	if len(req.History) > 0 || req.ConversationID == "" {
		return req.History, nil
	}
	return s.recorder.History(ctx, req.ConversationID)
}

func (s *Server) recordTurn(ctx context.Context, conversationID, query string, state core.WorkflowState, err error) {
	if recErr := s.recorder.RecordTurn(ctx, conversationID, query, conversation.Reply(state, err)); recErr != nil {
		s.logger.Warn("failed to record conversation turn", "conversation_id", conversationID, "error", recErr)
	}
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePlanRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	history, err := s.history(ctx, req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.ConversationID == "" {
		req.ConversationID = conversation.NewID()
	}

	state, err := s.planner.Process(ctx, req.Query, history)
	if !core.IsCategory(err, core.ErrCatValidation) {
		s.recordTurn(r.Context(), req.ConversationID, req.Query, state, err)
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newPlanResponse(state, req.ConversationID))
}

func (s *Server) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePlanRequest(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondDomainError(w, core.ErrValidation(core.CodeEmptyQuery, "query must not be empty"))
		return
	}

	history, err := s.history(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.ConversationID == "" {
		req.ConversationID = conversation.NewID()
	}

	id, err := s.tasks.Submit(r.Context(), bridge.Request{
		Query:          req.Query,
		History:        history,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, TaskResponse{TaskID: id, Status: bridge.StatusPending, ConversationID: req.ConversationID})
}

func (s *Server) handlePollTask(w http.ResponseWriter, r *http.Request) {
	poll := s.tasks.Poll()
	resp := TaskStatusResponse{Status: poll.Status, TaskID: poll.TaskID}
	if !poll.StartedAt.IsZero() {
		started := poll.StartedAt
		resp.StartedAt = &started
	}

	// Poll hands each outcome out once, so the turn is recorded once.
	if out := poll.Outcome; out != nil {
		s.recordTurn(r.Context(), out.Request.ConversationID, out.Request.Query, out.State, out.Err)
		if out.Succeeded() {
			resp.Result = newPlanResponse(out.State, out.Request.ConversationID)
		} else {
			resp.Error = out.ErrorMessage()
			resp.RateLimited = out.RateLimited()
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// eventFilter parses ?stage=&status=&limit=. Stage accepts a pipeline stage
// ("planner") or any agent label ("Orchestrator").
func eventFilter(r *http.Request) (events.Filter, error) {
	q := r.URL.Query()
	var f events.Filter

	if stage := strings.TrimSpace(q.Get("stage")); stage != "" {
		name := core.StageName(strings.ToLower(stage))
		if core.StageOrder(name) >= 0 && name != core.StageDone {
			f.Agent = name.DisplayName()
		} else {
			f.Agent = stage
		}
	}
	if status := q.Get("status"); status != "" {
		f.Status = events.Status(strings.ToLower(status))
		if !f.Status.Valid() {
			return f, core.ErrValidation(core.CodeInvalidRequest, "unknown status: "+status)
		}
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return f, core.ErrValidation(core.CodeInvalidRequest, "limit must be a non-negative integer")
		}
		f.Limit = n
	}
	return f, nil
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	f, err := eventFilter(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": s.sink.Events(f),
	})
}

func (s *Server) handleEventSummary(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.sink.Summary())
}

func (s *Server) handleClearEvents(w http.ResponseWriter, _ *http.Request) {
	s.sink.Clear()
	w.WriteHeader(http.StatusNoContent)
}
