package service

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.ObserveCall("Planner", "success", 150*time.Millisecond)
	m.ObserveCall("Planner", "rate_limit", 10*time.Millisecond)
	m.IncRetry("Planner", KindRateLimit)
	m.ObserveStage("planner", "plan_created", time.Second)
	m.ObserveWorkflow("success", 4*time.Second)

	if got := testutil.ToFloat64(m.calls.WithLabelValues("Planner", "success")); got != 1 {
		t.Errorf("success calls = %v", got)
	}
	if got := testutil.ToFloat64(m.retries.WithLabelValues("Planner", "rate_limit")); got != 1 {
		t.Errorf("retries = %v", got)
	}
	if got := testutil.ToFloat64(m.workflows.WithLabelValues("success")); got != 1 {
		t.Errorf("workflows = %v", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCall("a", "b", time.Second)
	m.IncRetry("a", KindTransient)
	m.ObserveStage("a", "b", time.Second)
	m.ObserveWorkflow("a", time.Second)
	if m.Registry() != nil {
		t.Error("nil metrics should have no registry")
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("nil handler status = %d, want 404", rec.Code)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveWorkflow("failure", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	if !strings.Contains(string(body), `travelbuddy_workflows_total{outcome="failure"} 1`) {
		t.Errorf("exposition missing workflow counter:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Errorf("exposition missing runtime collector")
	}
}
