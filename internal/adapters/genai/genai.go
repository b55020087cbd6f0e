// Package genai adapts hosted text-generation APIs to core.Generator.
//
// Each adapter sends the composed prompt as a single user message and turns
// SDK failures into *core.ServiceError so the caller can classify them by
// status code. SDK-level retries are disabled; retrying is the caller's job.
package genai

import "strings"

// Provider names accepted in configuration.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// Config selects and tunes one generator.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// Response is the text of one completion plus what the API reported about it.
type Response struct {
	Content      string
	Model        string
	FinishReason string
	InputTokens  int64
	OutputTokens int64
}

// Text implements core.Texter.
func (r *Response) Text() string { return r.Content }

// Providers lists the supported provider names.
func Providers() []string {
	return []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic}
}

// APIKeyEnv returns the environment variable conventionally holding the
// provider's key.
func APIKeyEnv(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	}
	return ""
}
