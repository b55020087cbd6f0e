// Package report turns a finished workflow into the markdown answer shown to
// travelers, and renders failures the same way.
package report

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

// Section titles of a composed answer.
const (
	TitlePlan       = "📝 Travel Plan"
	TitleResearch   = "🔍 Research Results"
	TitleItinerary  = "✨ Final Travel Itinerary"
	TitleValidation = "✅ Validation & Next Steps"
	TitleNextSteps  = "🚀 Next Steps for Improvement"
)

const sectionRule = "\n\n---\n\n"

// DefaultSummary is used when no stage produced content.
const DefaultSummary = "I've processed your travel request."

// FallbackNextSteps is offered when neither validation nor itinerary
// carries usable next steps.
const FallbackNextSteps = `**To make your travel plan even more promising, consider:**
- Providing more specific preferences (dietary restrictions, activity levels, interests)
- Sharing your budget range for better recommendations
- Specifying any must-see attractions or experiences
- Adding travel dates for accurate pricing and availability
- Mentioning any special occasions or requirements`

// Answer is the composed response for one request.
type Answer struct {
	Markdown  string `json:"markdown" yaml:"markdown"`
	Summary   string `json:"summary" yaml:"summary"`
	NextSteps string `json:"next_steps" yaml:"next_steps"`
}

// Compose lays out the non-empty parts of r, then a next steps section.
func Compose(r core.Result) Answer {
	var sections, checklist []string
	add := func(title, body, done string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		sections = append(sections, "## "+title+"\n\n"+body)
		checklist = append(checklist, "**"+done+"** ✓")
	}
	add(TitlePlan, r.Plan, "Travel Plan Created")
	add(TitleResearch, r.ResearchResults, "Research Completed")
	add(TitleItinerary, r.FinalItinerary, "Final Itinerary Ready")
	add(TitleValidation, r.Validation, "Plan Validated")

	next := NextSteps(r.Validation, r.FinalItinerary)
	sections = append(sections, "## "+TitleNextSteps+"\n\n"+next)

	summary := DefaultSummary
	if len(checklist) > 0 {
		summary = strings.Join(checklist, "\n\n")
	}
	return Answer{
		Markdown:  strings.Join(sections, sectionRule),
		Summary:   summary,
		NextSteps: next,
	}
}

var improvementKeywords = []string{"improvement", "suggest", "recommend", "next", "enhance", "refine"}

// NextSteps finds the next steps section of validation, then of itinerary.
// Failing that, a validation that talks about improvements is used whole,
// and otherwise FallbackNextSteps.
func NextSteps(validation, itinerary string) string {
	if s := extractNextSteps(validation); s != "" {
		return s
	}
	if s := extractNextSteps(itinerary); s != "" {
		return s
	}
	lower := strings.ToLower(validation)
	for _, kw := range improvementKeywords {
		if strings.Contains(lower, kw) {
			return strings.TrimSpace(validation)
		}
	}
	return FallbackNextSteps
}

// nextStepsLabel matches case-insensitively on the original text, so
// offsets stay valid for lines whose lowercase form has a different length.
var nextStepsLabel = regexp.MustCompile(`(?i)next steps(?: for (?:improvement|enhancement))?`)

// minNextStepsLen is the shortest body accepted as a next steps section, in
// characters. Shorter bodies ("Next steps: see above") are skipped.
const minNextStepsLen = 50

// extractNextSteps returns the body under the first line carrying a
// "next steps" label, up to the next heading or horizontal rule.
func extractNextSteps(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		loc := nextStepsLabel.FindStringIndex(line)
		if loc == nil {
			continue
		}
		var body []string
		if rest := strings.TrimSpace(strings.TrimLeft(line[loc[1]:], "*_#: \t")); rest != "" {
			body = append(body, rest)
		}
		for _, l := range lines[i+1:] {
			if isHeading(l) {
				break
			}
			body = append(body, l)
		}
		if s := strings.TrimSpace(strings.Join(body, "\n")); utf8.RuneCountInString(s) > minNextStepsLen {
			return s
		}
	}
	return ""
}

func isHeading(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "#") || t == "---" || t == "***"
}
