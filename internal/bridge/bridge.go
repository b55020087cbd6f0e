// Package bridge runs one workflow at a time off the caller's goroutine and
// hands its outcome back through a single-slot channel that the caller polls.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/events"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/logging"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service/report"
)

// BusyMessage is shown when a request arrives while another is running.
const BusyMessage = "A request is already being processed. Please wait for it to finish."

// Processor runs the whole pipeline for one request.
type Processor interface {
	Process(ctx context.Context, query string, history []core.Message) (core.WorkflowState, error)
}

// Request is the immutable input of one background task.
type Request struct {
	Query          string         `json:"query"`
	History        []core.Message `json:"history,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
}

// Status is what Poll observed.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Outcome is the terminal message a worker writes exactly once.
type Outcome struct {
	TaskID   string
	Request  Request
	State    core.WorkflowState
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the workflow finished without error.
func (o Outcome) Succeeded() bool { return o.Err == nil }

// RateLimited reports whether the failure was an exhausted rate limit.
func (o Outcome) RateLimited() bool { return core.IsRateLimit(o.Err) }

// ErrorMessage renders the failure for display, or "" on success.
func (o Outcome) ErrorMessage() string { return report.RenderError(o.Err) }

// PollResult is a non-blocking view of the bridge.
type PollResult struct {
	Status    Status
	TaskID    string
	StartedAt time.Time
	Outcome   *Outcome
}

type task struct {
	id        string
	req       Request
	startedAt time.Time
	done      chan struct{}
	// out is set before done is closed.
	out Outcome
}

// Bridge owns at most one in-flight task. Submit and Poll may be called from
// any goroutine.
type Bridge struct {
	proc   Processor
	sink   *events.Sink
	logger *logging.Logger
	now    func() time.Time
	newID  func() string

	mu     sync.Mutex
	active *task
	slot   chan Outcome
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithSink records task lifecycle events.
func WithSink(s *events.Sink) Option {
	return func(b *Bridge) {
		if s != nil {
			b.sink = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(fn func() string) Option {
	return func(b *Bridge) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// New creates an idle bridge around proc.
func New(proc Processor, opts ...Option) *Bridge {
	b := &Bridge{
		proc:   proc,
		sink:   events.NewSink(),
		logger: logging.NewNop(),
		now:    time.Now,
		newID:  func() string { return "task_" + uuid.NewString() },
		slot:   make(chan Outcome, 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Submit starts req on a new worker and returns its task id. It fails with a
// conflict error while an earlier task is running or its outcome has not yet
// been drained by Poll. Cancelling ctx after Submit does not stop the worker.
func (b *Bridge) Submit(ctx context.Context, req Request) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active != nil {
		b.sink.Log(events.AgentBridge, "Task Rejected",
			"Task "+b.active.id+" is still in flight", events.StatusWarning)
		return "", core.ErrConflict(core.CodeTaskInFlight, BusyMessage).WithDetail("task_id", b.active.id)
	}

	req.History = append([]core.Message(nil), req.History...)
	t := &task{
		id:        b.newID(),
		req:       req,
		startedAt: b.now(),
		done:      make(chan struct{}),
	}
	b.active = t

	b.sink.Log(events.AgentBridge, "Task Submitted",
		fmt.Sprintf("Task %s: query %d chars, history %d items", t.id, len([]rune(req.Query)), len(req.History)),
		events.StatusInfo)
	b.logger.Info("background task submitted", "task_id", t.id)

	go b.run(context.WithoutCancel(ctx), t)
	return t.id, nil
}

func (b *Bridge) run(ctx context.Context, t *task) {
	defer close(t.done)

	out := Outcome{TaskID: t.id, Request: t.req}
	func() {
		defer func() {
			if r := recover(); r != nil {
				out.Err = core.ErrInternal("WORKER_PANIC", fmt.Sprintf("workflow worker panicked: %v", r))
			}
		}()
		out.State, out.Err = b.proc.Process(ctx, t.req.Query, t.req.History)
	}()
	out.Duration = b.now().Sub(t.startedAt)

	if out.Err != nil {
		out.State = core.WorkflowState{}
		b.sink.LogTimed(events.AgentBridge, "Task Failed",
			fmt.Sprintf("Task %s: %s", t.id, report.ErrorMessage(out.Err)), events.StatusError, out.Duration)
		b.logger.Error("background task failed", "task_id", t.id, "rate_limited", out.RateLimited(), "error", out.Err)
	} else {
		b.sink.LogTimed(events.AgentBridge, "Task Completed",
			fmt.Sprintf("Task %s: status %s", t.id, out.State.Status), events.StatusSuccess, out.Duration)
		b.logger.Info("background task completed", "task_id", t.id, "duration", out.Duration.String())
	}

	t.out = out
	// Capacity one and a single active task, so this never blocks.
	b.slot <- out
}

// Poll never blocks. It returns the outcome once, after which the bridge is
// idle and accepts a new Submit.
func (b *Bridge) Poll() PollResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active == nil {
		return PollResult{Status: StatusIdle}
	}
	select {
	case out := <-b.slot:
		t := b.active
		b.active = nil
		return finished(t, out)
	default:
		return PollResult{Status: StatusPending, TaskID: b.active.id, StartedAt: b.active.startedAt}
	}
}

// Busy reports whether a task is running or waiting to be drained.
func (b *Bridge) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active != nil
}

// Wait blocks until the task active at call time finishes or ctx is done.
// It returns that task's outcome even when a concurrent Poll drained it
// first. With no active task it returns an idle result immediately.
func (b *Bridge) Wait(ctx context.Context) (PollResult, error) {
	b.mu.Lock()
	t := b.active
	b.mu.Unlock()
	if t == nil {
		return PollResult{Status: StatusIdle}, nil
	}
	select {
	case <-t.done:
	case <-ctx.Done():
		return PollResult{}, ctx.Err()
	}

	b.mu.Lock()
	if b.active == t {
		// The worker fills the slot before closing done.
		<-b.slot
		b.active = nil
	}
	b.mu.Unlock()
	return finished(t, t.out), nil
}

func finished(t *task, out Outcome) PollResult {
	status := StatusSucceeded
	if out.Err != nil {
		status = StatusFailed
	}
	return PollResult{Status: status, TaskID: t.id, StartedAt: t.startedAt, Outcome: &out}
}
