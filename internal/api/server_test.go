package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/bridge"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/events"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service/conversation"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service/workflow"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/testutil"
)

// memoryStore is an in-memory core.ChatStore.
type memoryStore struct {
	mu   sync.Mutex
	msgs map[string][]core.Message
}

func newMemoryStore() *memoryStore {
	return &memoryStore{msgs: make(map[string][]core.Message)}
}

func (m *memoryStore) SaveMessage(_ context.Context, userID, role, content, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "/" + conversationID
	m.msgs[key] = append(m.msgs[key], core.Message{Role: role, Content: content})
	return nil
}

func (m *memoryStore) LoadHistory(_ context.Context, userID, conversationID string) ([]core.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Message(nil), m.msgs[userID+"/"+conversationID]...), nil
}

func (m *memoryStore) ListConversations(context.Context, string) ([]core.ConversationSummary, error) {
	return nil, nil
}
func (m *memoryStore) DeleteConversation(context.Context, string, string) error { return nil }
func (m *memoryStore) Close() error                                             { return nil }

// plannerFunc adapts a function to bridge.Processor.
type plannerFunc func(ctx context.Context, query string, history []core.Message) (core.WorkflowState, error)

func (f plannerFunc) Process(ctx context.Context, query string, history []core.Message) (core.WorkflowState, error) {
	return f(ctx, query, history)
}

type testEnv struct {
	server  *Server
	handler http.Handler
	sink    *events.Sink
	store   *memoryStore
	gen     *testutil.ScriptedGenerator
}

func noSleep(context.Context, time.Duration) error { return nil }

func newTestEnv(t *testing.T, planner bridge.Processor) *testEnv {
	t.Helper()
	sink := events.NewSink()
	metrics := service.NewMetrics()
	gen := testutil.NewTravelGenerator()
	if planner == nil {
		caller := service.NewCaller(gen,
			service.WithSink(sink),
			service.WithMetrics(metrics),
			service.WithSleeper(noSleep))
		engine, err := workflow.NewEngine(workflow.EngineDeps{Invoker: caller, Sink: sink, Metrics: metrics})
		require.NoError(t, err)
		planner = engine
	}
	store := newMemoryStore()
	srv := NewServer(planner, bridge.New(planner, bridge.WithSink(sink)), sink,
		WithMetrics(metrics),
		WithRecorder(conversation.NewRecorder(store, "", nil)),
	)
	return &testEnv{server: srv, handler: srv.Handler(), sink: sink, store: store, gen: gen}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/plan", PlanRequest{Query: "Lisbon"}).Code)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "travelbuddy_workflows_total")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/plan", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHTTPStatusForDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantOK     bool
	}{
		{"validation", core.ErrValidation(core.CodeEmptyQuery, "bad"), http.StatusUnprocessableEntity, true},
		{"not found", core.ErrNotFound("conversation", "x"), http.StatusNotFound, true},
		{"conflict", core.ErrConflict(core.CodeTaskInFlight, bridge.BusyMessage), http.StatusConflict, true},
		{"rate limit", core.ErrRateLimitExceeded(4, errors.New("429")), http.StatusTooManyRequests, true},
		{"fatal", core.ErrFatal(errors.New("bad key")), http.StatusBadGateway, true},
		{"transient", core.ErrTransientService(4, errors.New("503")), http.StatusBadGateway, true},
		{"internal", core.ErrInternal("WORKER_PANIC", "boom"), http.StatusInternalServerError, true},
		{"wrapped", errors.Join(errors.New("workflow"), core.ErrNotFound("x", "y")), http.StatusNotFound, true},
		{"non-domain error", errors.New("plain"), 0, false},
		{"nil error", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, ok := httpStatusForDomainError(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantStatus, status)
			}
		})
	}
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
