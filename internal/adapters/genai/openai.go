package genai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Default models per OpenAI-compatible provider.
const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.0-flash-lite"
)

// ChatCompletions is the subset of the OpenAI SDK the adapter calls.
// *openai.ChatCompletionService satisfies it.
type ChatCompletions interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIGenerator calls a Chat Completions endpoint: OpenAI itself, or
// Gemini through its compatibility layer.
type OpenAIGenerator struct {
	chat        ChatCompletions
	provider    string
	model       string
	temperature float64
	maxTokens   int64
}

// NewOpenAIGenerator wraps chat. provider only labels errors and events.
func NewOpenAIGenerator(chat ChatCompletions, provider string, cfg Config) (*OpenAIGenerator, error) {
	if chat == nil {
		return nil, errors.New("openai: chat client is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai: model is required")
	}
	if provider == "" {
		provider = ProviderOpenAI
	}
	return &OpenAIGenerator{
		chat:        chat,
		provider:    provider,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   int64(cfg.MaxTokens),
	}, nil
}

func newOpenAIFromConfig(provider string, cfg Config) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(provider + ": api key is required")
	}
	baseURL, model := cfg.BaseURL, cfg.Model
	if provider == ProviderGemini {
		if baseURL == "" {
			baseURL = GeminiBaseURL
		}
		if model == "" {
			model = DefaultGeminiModel
		}
	} else if model == "" {
		model = DefaultOpenAIModel
	}
	cfg.Model = model

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return NewOpenAIGenerator(&client.Chat.Completions, provider, cfg)
}

// Name implements core.Generator.
func (g *OpenAIGenerator) Name() string { return g.provider }

// Model returns the model identifier requests are sent to.
func (g *OpenAIGenerator) Model() string { return g.model }

// Generate sends prompt as one user message and returns the first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (any, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if g.temperature > 0 {
		params.Temperature = openai.Float(g.temperature)
	}
	if g.maxTokens > 0 {
		params.MaxTokens = openai.Int(g.maxTokens)
	}

	resp, err := g.chat.New(ctx, params)
	if err != nil {
		return nil, mapError(g.provider, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.New(g.provider + ": response has no choices")
	}
	choice := resp.Choices[0]
	return &Response{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: choice.FinishReason,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
