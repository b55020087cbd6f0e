package chat

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/events"
)

var (
	userColor      = lipgloss.Color("#f43f5e") // Rose
	assistantColor = lipgloss.Color("#38bdf8") // Sky
	systemColor    = lipgloss.Color("#6b7280") // Gray muted
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#ef4444")
	successColor   = lipgloss.Color("#22c55e")
	textColor      = lipgloss.Color("#c9d1d9")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0f172a")).
			Background(assistantColor).
			Padding(0, 1)

	headerMetaStyle = lipgloss.NewStyle().Foreground(systemColor)

	userLabelStyle      = lipgloss.NewStyle().Foreground(userColor).Bold(true)
	assistantLabelStyle = lipgloss.NewStyle().Foreground(assistantColor).Bold(true)
	timestampStyle      = lipgloss.NewStyle().Foreground(systemColor)

	userBubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(userColor).
			Foreground(textColor).
			Padding(0, 1)

	systemStyle  = lipgloss.NewStyle().Foreground(systemColor).Italic(true)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor).Bold(true)

	spinnerStyle = lipgloss.NewStyle().Foreground(assistantColor)
	helpStyle    = lipgloss.NewStyle().Foreground(systemColor)

	logsPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(systemColor).
			Padding(0, 1)
	logsTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(textColor)
)

// eventStyle colors a log line by event status.
func eventStyle(s events.Status) lipgloss.Style {
	switch s {
	case events.StatusError:
		return lipgloss.NewStyle().Foreground(errorColor)
	case events.StatusWarning:
		return lipgloss.NewStyle().Foreground(warningColor)
	case events.StatusSuccess:
		return lipgloss.NewStyle().Foreground(successColor)
	default:
		return lipgloss.NewStyle().Foreground(textColor)
	}
}

// newMarkdownRenderer renders answers. Inline code keeps the text color
// without the block background.
func newMarkdownRenderer(width int) *glamour.TermRenderer {
	if width < 40 {
		width = 40
	}
	if width > 120 {
		width = 120
	}

	style := styles.DraculaStyleConfig
	style.Code = ansi.StyleBlock{
		StylePrimitive: ansi.StylePrimitive{
			Color:           stringPtr("229"),
			BackgroundColor: stringPtr(""),
		},
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

func stringPtr(s string) *string {
	return &s
}
