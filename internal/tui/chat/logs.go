package chat

import (
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/events"
)

// LogsPanel shows the most recent observability events.
type LogsPanel struct {
	sink     *events.Sink
	maxLines int
	width    int
}

// NewLogsPanel creates a panel reading from sink.
func NewLogsPanel(sink *events.Sink, maxLines int) *LogsPanel {
	if maxLines <= 0 {
		maxLines = 12
	}
	return &LogsPanel{sink: sink, maxLines: maxLines, width: 80}
}

// SetWidth updates the panel width.
func (p *LogsPanel) SetWidth(width int) {
	p.width = width
}

func (p *LogsPanel) recent() []events.LogEvent {
	if p.sink == nil {
		return nil
	}
	return p.sink.Events(events.Filter{Limit: p.maxLines})
}

func formatEvent(e events.LogEvent) string {
	return e.Timestamp.Format("15:04:05") + " " + e.String()
}

// Lines returns the formatted recent events, oldest first.
func (p *LogsPanel) Lines() []string {
	evs := p.recent()
	lines := make([]string, 0, len(evs))
	for _, e := range evs {
		lines = append(lines, formatEvent(e))
	}
	return lines
}

// Header summarizes the log.
func (p *LogsPanel) Header() string {
	if p.sink == nil {
		return "Agent activity"
	}
	sum := p.sink.Summary()
	return fmt.Sprintf("Agent activity · %d events · %d warnings · %d errors",
		sum.Total, sum.ByStatus[events.StatusWarning], sum.ByStatus[events.StatusError])
}

// View renders the panel.
func (p *LogsPanel) View() string {
	inner := p.width - 4
	if inner < 20 {
		inner = 20
	}

	var sb strings.Builder
	sb.WriteString(logsTitleStyle.Render(p.Header()))

	evs := p.recent()
	if len(evs) == 0 {
		sb.WriteString("\n" + systemStyle.Render("No events yet."))
	}
	for _, e := range evs {
		line := formatEvent(e)
		if r := []rune(line); len(r) > inner {
			line = string(r[:inner-1]) + "…"
		}
		sb.WriteString("\n" + eventStyle(e.Status).Render(line))
	}
	return logsPanelStyle.Width(inner + 2).Render(sb.String())
}
