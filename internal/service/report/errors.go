package report

import (
	"errors"
	"strings"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

const rateLimitSuggestions = `💡 **Suggestions:**
- Wait a few moments before trying again
- The system will automatically retry with delays
- Consider breaking your request into smaller parts`

// RenderError formats a failed request for the traveler. Rate limit
// failures get dedicated guidance.
func RenderError(err error) string {
	if err == nil {
		return ""
	}
	if core.IsRateLimit(err) {
		return "⚠️ **Rate Limit Error**\n\n" + ErrorMessage(err) + "\n\n" + rateLimitSuggestions
	}
	return "❌ **Error:** " + ErrorMessage(err) + "\n\nPlease try again or rephrase your request."
}

// ErrorMessage returns the human part of err: the domain message when there
// is one, without category and code prefixes.
func ErrorMessage(err error) string {
	var de *core.DomainError
	if errors.As(err, &de) {
		msg := de.Message
		if de.Category == core.ErrCatFatal && de.Cause != nil {
			msg += ": " + de.Cause.Error()
		}
		return msg
	}
	return strings.TrimPrefix(err.Error(), "workflow: ")
}
