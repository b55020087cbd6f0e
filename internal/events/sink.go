package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/logging"
)

// Sink is the append-only operation log. Appends are serialized, so one
// Sink may be shared by several pipelines.
type Sink struct {
	mu     sync.RWMutex
	events []LogEvent
	logger *logging.Logger
	bus    *broadcaster
	now    func() time.Time
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithLogger mirrors every event into logger.
func WithLogger(logger *logging.Logger) SinkOption {
	return func(s *Sink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) SinkOption {
	return func(s *Sink) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSubscriberBuffer sets the per-subscriber channel capacity.
func WithSubscriberBuffer(n int) SinkOption {
	return func(s *Sink) {
		s.bus = newBroadcaster(n)
	}
}

// NewSink creates an empty sink.
func NewSink(opts ...SinkOption) *Sink {
	s := &Sink{
		logger: logging.NewNop(),
		bus:    newBroadcaster(100),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Log records an operation without a duration.
func (s *Sink) Log(agent, operation, details string, status Status) {
	s.Record(LogEvent{Agent: agent, Operation: operation, Details: details, Status: status})
}

// LogTimed records an operation with its measured duration.
func (s *Sink) LogTimed(agent, operation, details string, status Status, d time.Duration) {
	s.Record(LogEvent{Agent: agent, Operation: operation, Details: details, Status: status, Duration: d})
}

// LogCall records a completed generation call by its sizes only.
func (s *Sink) LogCall(agent string, promptChars, responseChars int, d time.Duration) {
	s.LogTimed(agent, "LLM Call", callDetails(promptChars, responseChars), StatusInfo, d)
}

// LogTransition records the engine moving from one stage to the next.
func (s *Sink) LogTransition(from, to, summary string) {
	s.Log(AgentOrchestrator, "State Transition: "+from+" → "+to, summary, StatusInfo)
}

// Record appends e, stamping it if Timestamp is zero and defaulting Status to info.
func (s *Sink) Record(e LogEvent) {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	if !e.Status.Valid() {
		e.Status = StatusInfo
	}

	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()

	s.mirror(e)
	s.bus.publish(e)
}

func (s *Sink) mirror(e LogEvent) {
	level := slog.LevelInfo
	switch e.Status {
	case StatusError:
		level = slog.LevelError
	case StatusWarning:
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, e.String(), "agent", e.Agent)
}

// Filter selects events. Zero values match everything.
type Filter struct {
	Agent  string
	Status Status
	Limit  int // keep only the most recent Limit matches
}

// Events returns matching events in append order.
func (s *Sink) Events(f Filter) []LogEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]LogEvent, 0, len(s.events))
	for _, e := range s.events {
		if f.Agent != "" && e.Agent != f.Agent {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		out = append(out, e)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}

// Len returns the number of recorded events.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Summary aggregates the log.
type Summary struct {
	Total    int            `json:"total"`
	ByAgent  map[string]int `json:"by_agent"`
	ByStatus map[Status]int `json:"by_status"`
	Last     *LogEvent      `json:"last,omitempty"`
}

// Summary counts events by agent and status.
func (s *Sink) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{
		Total:    len(s.events),
		ByAgent:  make(map[string]int),
		ByStatus: make(map[Status]int),
	}
	for _, e := range s.events {
		sum.ByAgent[e.Agent]++
		sum.ByStatus[e.Status]++
	}
	if n := len(s.events); n > 0 {
		last := s.events[n-1]
		sum.Last = &last
	}
	return sum
}

// Clear drops every event in one step.
func (s *Sink) Clear() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
	s.logger.Info("Logs cleared")
}

// Subscribe streams events appended after the call. An empty agent
// subscribes to everything.
func (s *Sink) Subscribe(agent string) <-chan LogEvent {
	return s.bus.subscribe(agent)
}

// Unsubscribe stops and closes a subscription.
func (s *Sink) Unsubscribe(ch <-chan LogEvent) {
	s.bus.unsubscribe(ch)
}

// Dropped returns how many events slow subscribers missed.
func (s *Sink) Dropped() int64 {
	return s.bus.dropped()
}

// Close closes every subscription. Recording keeps working.
func (s *Sink) Close() {
	s.bus.close()
}

func callDetails(promptChars, responseChars int) string {
	return fmt.Sprintf("Prompt: %d chars, Response: %d chars", promptChars, responseChars)
}
