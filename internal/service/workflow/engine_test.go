package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/events"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/testutil"
)

func TestNewEngine_RequiresInvoker(t *testing.T) {
	if _, err := NewEngine(EngineDeps{}); err == nil {
		t.Fatal("expected error without invoker")
	}
}

func TestEngine_StageOrder(t *testing.T) {
	h := newHarness(t, testutil.NewTravelGenerator())
	got := h.engine.Stages()
	want := core.AllStages()
	if len(got) != len(want) {
		t.Fatalf("Stages() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEngine_ProcessLisbon(t *testing.T) {
	h := newHarness(t, testutil.NewTravelGenerator())

	state, err := h.engine.Process(context.Background(), "5-day trip to Lisbon, budget $1500", nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if state.Iteration != 4 {
		t.Errorf("Iteration = %d, want 4", state.Iteration)
	}
	if state.Status != core.StatusValidationCompleted {
		t.Errorf("Status = %q", state.Status)
	}
	if state.CurrentAgent != core.StageValidate {
		t.Errorf("CurrentAgent = %q", state.CurrentAgent)
	}
	if !strings.Contains(state.Plan, "Day-by-Day") {
		t.Error("plan should have a day-by-day structure")
	}
	if countItems(state.ResearchTasks) == 0 {
		t.Error("research tasks should be a non-empty list")
	}
	if state.ResearchResults == "" || state.FinalItinerary == "" {
		t.Error("research and itinerary should be populated")
	}
	if !strings.Contains(state.Validation, "Validation Status") || !strings.Contains(state.Validation, "Next Steps") {
		t.Errorf("validation = %q", state.Validation)
	}
	if h.gen.Calls() != 5 {
		t.Errorf("calls = %d, want 5", h.gen.Calls())
	}
}

func TestEngine_ProcessKeepsCallerHistory(t *testing.T) {
	h := newHarness(t, testutil.NewTravelGenerator())
	history := []core.Message{{Role: "user", Content: "I prefer trains"}}

	state, err := h.engine.Process(context.Background(), "Lisbon", history)
	if err != nil {
		t.Fatal(err)
	}
	history[0].Content = "mutated"
	if state.ConversationHistory[0].Content != "I prefer trains" {
		t.Error("state should hold its own copy of the history")
	}
	if state.UserQuery != "Lisbon" {
		t.Errorf("UserQuery = %q", state.UserQuery)
	}
}

func TestEngine_ProcessTransitions(t *testing.T) {
	h := newHarness(t, testutil.NewTravelGenerator())
	if _, err := h.engine.Process(context.Background(), "Lisbon", nil); err != nil {
		t.Fatal(err)
	}

	var transitions []string
	for _, e := range h.sink.Events(events.Filter{Agent: events.AgentOrchestrator}) {
		if strings.HasPrefix(e.Operation, "State Transition: ") {
			transitions = append(transitions, strings.TrimPrefix(e.Operation, "State Transition: "))
		}
	}
	want := []string{
		"Orchestrator → Planner",
		"Planner → Researcher",
		"Researcher → Executor",
		"Executor → Validator",
		"Validator → END",
	}
	if strings.Join(transitions, "|") != strings.Join(want, "|") {
		t.Errorf("transitions = %v", transitions)
	}

	all := h.sink.Events(events.Filter{})
	if all[0].Operation != "Workflow Started" {
		t.Errorf("first event = %q", all[0].Operation)
	}
	last := all[len(all)-1]
	if last.Operation != "Workflow Completed" || last.Status != events.StatusSuccess {
		t.Errorf("last event = %+v", last)
	}
	if !strings.Contains(last.Details, "Iterations: 4") {
		t.Errorf("details = %q", last.Details)
	}
}

func TestEngine_ProcessNoTasksStillCompletes(t *testing.T) {
	gen := testutil.NewTravelGenerator(
		testutil.Step{Response: testutil.TravelPlan},
		testutil.Step{Response: "   "},
	)
	h := newHarness(t, gen)

	state, err := h.engine.Process(context.Background(), "Lisbon", nil)
	if err != nil {
		t.Fatal(err)
	}
	if state.ResearchResults != NoResearchTasks {
		t.Errorf("ResearchResults = %q", state.ResearchResults)
	}
	if state.Iteration != 4 || state.Status != core.StatusValidationCompleted {
		t.Errorf("state = %d/%q", state.Iteration, state.Status)
	}
	// plan, tasks, itinerary, validation; research skipped
	if gen.Calls() != 4 {
		t.Errorf("calls = %d, want 4", gen.Calls())
	}
}

func TestEngine_ProcessRejectsBadQuery(t *testing.T) {
	h := newHarness(t, testutil.NewTravelGenerator())
	tests := []struct {
		query string
		code  string
	}{
		{"", core.CodeEmptyQuery},
		{"  \n", core.CodeEmptyQuery},
		{strings.Repeat("a", core.MaxQueryLength+1), core.CodeQueryTooLong},
	}
	for _, tt := range tests {
		_, err := h.engine.Process(context.Background(), tt.query, nil)
		var de *core.DomainError
		if !errors.As(err, &de) || de.Code != tt.code {
			t.Errorf("query len %d: err = %v, want %s", len(tt.query), err, tt.code)
		}
	}
	if h.gen.Calls() != 0 {
		t.Errorf("calls = %d, want 0", h.gen.Calls())
	}
}

func TestEngine_ProcessRateLimitPropagates(t *testing.T) {
	quota := errors.New("429 RESOURCE_EXHAUSTED: quota exceeded")
	gen := testutil.NewTravelGenerator(
		testutil.Step{Response: testutil.TravelPlan},
		testutil.Step{Response: testutil.TravelTasks},
	).Repeat(4, quota)
	h := newHarness(t, gen, service.WithPolicy(service.NewBackoffPolicy(service.WithMaxRetries(3))))

	state, err := h.engine.Process(context.Background(), "Lisbon", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !core.IsRateLimit(err) {
		t.Errorf("IsRateLimit(%v) = false", err)
	}
	if state.Iteration != 0 || state.Plan != "" {
		t.Errorf("failed run should return the zero state, got %+v", state)
	}
	// two planner calls, four research attempts, nothing after
	if gen.Calls() != 6 {
		t.Errorf("calls = %d, want 6", gen.Calls())
	}
	failed := h.sink.Events(events.Filter{Agent: events.AgentOrchestrator, Status: events.StatusError})
	if len(failed) != 1 || failed[0].Operation != "Workflow Failed" || !failed[0].HasDuration() {
		t.Errorf("failure events = %+v", failed)
	}
	if !strings.Contains(failed[0].Details, "Researcher") {
		t.Errorf("details = %q", failed[0].Details)
	}
}

func TestEngine_ProcessFatalStopsPipeline(t *testing.T) {
	gen := testutil.NewScriptedGenerator().ThenError(errors.New("invalid argument: malformed request"))
	h := newHarness(t, gen)

	_, err := h.engine.Process(context.Background(), "Lisbon", nil)
	if !core.IsCategory(err, core.ErrCatFatal) {
		t.Fatalf("err = %v, want fatal", err)
	}
	if gen.Calls() != 1 {
		t.Errorf("calls = %d, want 1", gen.Calls())
	}
}

func TestEngine_ProcessCanceledContext(t *testing.T) {
	h := newHarness(t, testutil.NewTravelGenerator())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.engine.Process(ctx, "Lisbon", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if h.gen.Calls() != 0 {
		t.Errorf("calls = %d, want 0", h.gen.Calls())
	}
}

func TestEngine_ProcessRecordsMetrics(t *testing.T) {
	metrics := service.NewMetrics()
	sink := events.NewSink()
	gen := testutil.NewTravelGenerator()
	engine, err := NewEngine(EngineDeps{
		Invoker: service.NewCaller(gen, service.WithSink(sink), service.WithSleeper(noSleep)),
		Sink:    sink,
		Metrics: metrics,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Process(context.Background(), "Lisbon", nil); err != nil {
		t.Fatal(err)
	}

	families, err := metrics.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if strings.HasSuffix(f.GetName(), "workflows_total") {
			found = true
		}
	}
	if !found {
		t.Error("workflow counter not registered")
	}
}

func TestEngine_HistoryWindowDisabled(t *testing.T) {
	gen := testutil.NewTravelGenerator()
	engine, err := NewEngine(EngineDeps{
		Invoker:       service.NewCaller(gen, service.WithSleeper(noSleep)),
		HistoryWindow: -1,
	})
	if err != nil {
		t.Fatal(err)
	}
	history := []core.Message{{Role: "user", Content: "earlier turn"}}
	if _, err := engine.Process(context.Background(), "Lisbon", history); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(gen.Prompts()[0], "earlier turn") {
		t.Error("history should not be sent when the window is disabled")
	}
}

func TestEngine_Clock(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	now := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	sink := events.NewSink()
	engine, err := NewEngine(EngineDeps{
		Invoker: service.NewCaller(testutil.NewTravelGenerator(), service.WithSleeper(noSleep)),
		Sink:    sink,
		Now:     now,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Process(context.Background(), "Lisbon", nil); err != nil {
		t.Fatal(err)
	}
	done := sink.Events(events.Filter{Agent: events.AgentOrchestrator, Status: events.StatusSuccess})
	if len(done) != 1 || done[0].Duration <= 0 {
		t.Errorf("completion event = %+v", done)
	}
}
