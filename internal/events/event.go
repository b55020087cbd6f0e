// Package events provides the observability sink for the planning pipeline:
// an append-only, process-lifetime log of operation events with filtering,
// summaries and live subscriptions.
package events

import (
	"fmt"
	"time"
)

// Status is the severity label of a LogEvent.
type Status string

const (
	StatusInfo    Status = "info"
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusInfo, StatusSuccess, StatusWarning, StatusError:
		return true
	}
	return false
}

// Agent labels used by components that are not pipeline stages.
const (
	AgentOrchestrator = "Orchestrator"
	AgentBridge       = "Bridge"
	AgentSystem       = "System"
)

// DisplayDetailsLimit caps details when an event is rendered for display.
const DisplayDetailsLimit = 200

// LogEvent is an immutable record of one operation.
type LogEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Agent     string        `json:"agent"`
	Operation string        `json:"operation"`
	Details   string        `json:"details,omitempty"`
	Status    Status        `json:"status"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// HasDuration reports whether the event carries a measured duration.
func (e LogEvent) HasDuration() bool {
	return e.Duration > 0
}

// ShortDetails returns the details capped at DisplayDetailsLimit runes.
func (e LogEvent) ShortDetails() string {
	return Truncate(e.Details, DisplayDetailsLimit)
}

// String renders the event the way it is mirrored into the process log.
func (e LogEvent) String() string {
	msg := fmt.Sprintf("[%s] %s", e.Agent, e.Operation)
	if e.Details != "" {
		msg += ": " + e.ShortDetails()
	}
	if e.HasDuration() {
		msg += fmt.Sprintf(" (Duration: %.2fs)", e.Duration.Seconds())
	}
	if e.Status == StatusSuccess {
		msg = "✓ " + msg
	}
	return msg
}

// Truncate returns s cut to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
