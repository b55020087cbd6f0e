package genai

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_5_20250929)

// AnthropicMessages is the subset of the Anthropic SDK the adapter calls.
// *anthropic.MessageService satisfies it.
type AnthropicMessages interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicGenerator calls the Anthropic Messages API.
type AnthropicGenerator struct {
	msgs        AnthropicMessages
	model       string
	temperature float64
	maxTokens   int64
}

// NewAnthropicGenerator wraps msgs. Model and MaxTokens are required.
func NewAnthropicGenerator(msgs AnthropicMessages, cfg Config) (*AnthropicGenerator, error) {
	if msgs == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("anthropic: model is required")
	}
	if cfg.MaxTokens <= 0 {
		return nil, errors.New("anthropic: max_tokens must be positive")
	}
	return &AnthropicGenerator{
		msgs:        msgs,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   int64(cfg.MaxTokens),
	}, nil
}

func newAnthropicFromConfig(cfg Config) (*AnthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	client := anthropic.NewClient(opts...)
	return NewAnthropicGenerator(&client.Messages, cfg)
}

// Name implements core.Generator.
func (g *AnthropicGenerator) Name() string { return ProviderAnthropic }

// Model returns the model identifier requests are sent to.
func (g *AnthropicGenerator) Model() string { return g.model }

// Generate sends prompt as one user turn and joins the text blocks of the reply.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (any, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if g.temperature > 0 {
		params.Temperature = anthropic.Float(g.temperature)
	}

	msg, err := g.msgs.New(ctx, params)
	if err != nil {
		return nil, mapError(ProviderAnthropic, err)
	}
	if msg == nil {
		return nil, errors.New("anthropic: empty response")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return &Response{
		Content:      sb.String(),
		Model:        string(msg.Model),
		FinishReason: string(msg.StopReason),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}, nil
}
