package genai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service"
)

type fakeMessages struct {
	resp *anthropic.Message
	err  error
	got  anthropic.MessageNewParams
}

func (f *fakeMessages) New(_ context.Context, body anthropic.MessageNewParams, _ ...anthropicoption.RequestOption) (*anthropic.Message, error) {
	f.got = body
	return f.resp, f.err
}

type fakeChat struct {
	resp *openai.ChatCompletion
	err  error
	got  openai.ChatCompletionNewParams
}

func (f *fakeChat) New(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.got = body
	return f.resp, f.err
}

func TestAnthropicGenerator_Generate(t *testing.T) {
	fake := &fakeMessages{resp: &anthropic.Message{
		Model: "claude-test",
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "Day 1: "},
			{Type: "thinking", Text: "ignored"},
			{Type: "text", Text: "Alfama"},
		},
		Usage: anthropic.Usage{InputTokens: 12, OutputTokens: 3},
	}}
	gen, err := NewAnthropicGenerator(fake, Config{Model: "claude-test", MaxTokens: 512, Temperature: 0.7})
	if err != nil {
		t.Fatal(err)
	}

	out, err := gen.Generate(context.Background(), "plan Lisbon")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got := service.NormalizeResponse(out); got != "Day 1: Alfama" {
		t.Errorf("text = %q", got)
	}
	resp := out.(*Response)
	if resp.InputTokens != 12 || resp.OutputTokens != 3 || resp.Model != "claude-test" {
		t.Errorf("response = %+v", resp)
	}
	if fake.got.MaxTokens != 512 || string(fake.got.Model) != "claude-test" {
		t.Errorf("params = %+v", fake.got)
	}
	if len(fake.got.Messages) != 1 {
		t.Errorf("messages = %d, want 1", len(fake.got.Messages))
	}
	if gen.Name() != ProviderAnthropic {
		t.Errorf("Name() = %q", gen.Name())
	}
}

func TestAnthropicGenerator_MapsAPIError(t *testing.T) {
	fake := &fakeMessages{err: &anthropic.Error{StatusCode: http.StatusTooManyRequests}}
	gen, err := NewAnthropicGenerator(fake, Config{Model: "m", MaxTokens: 10})
	if err != nil {
		t.Fatal(err)
	}
	_, err = gen.Generate(context.Background(), "x")
	var se *core.ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("error %T is not a ServiceError", err)
	}
	if se.StatusCode != 429 || se.Provider != ProviderAnthropic {
		t.Errorf("service error = %+v", se)
	}
	if service.Classify(err) != service.KindRateLimit {
		t.Errorf("Classify() = %q", service.Classify(err))
	}
}

func TestNewAnthropicGenerator_Validation(t *testing.T) {
	tests := []struct {
		name string
		msgs AnthropicMessages
		cfg  Config
	}{
		{"nil client", nil, Config{Model: "m", MaxTokens: 1}},
		{"no model", &fakeMessages{}, Config{MaxTokens: 1}},
		{"no max tokens", &fakeMessages{}, Config{Model: "m"}},
	}
	for _, tt := range tests {
		if _, err := NewAnthropicGenerator(tt.msgs, tt.cfg); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	fake := &fakeChat{resp: &openai.ChatCompletion{
		Model: "gemini-2.0-flash-lite",
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "Lisbon plan"}, FinishReason: "stop"},
		},
		Usage: openai.CompletionUsage{PromptTokens: 20, CompletionTokens: 4},
	}}
	gen, err := NewOpenAIGenerator(fake, ProviderGemini, Config{Model: "gemini-2.0-flash-lite", MaxTokens: 100, Temperature: 0.7})
	if err != nil {
		t.Fatal(err)
	}

	out, err := gen.Generate(context.Background(), "plan")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	resp := out.(*Response)
	if resp.Text() != "Lisbon plan" || resp.FinishReason != "stop" || resp.InputTokens != 20 {
		t.Errorf("response = %+v", resp)
	}
	if string(fake.got.Model) != "gemini-2.0-flash-lite" || len(fake.got.Messages) != 1 {
		t.Errorf("params = %+v", fake.got)
	}
	if gen.Name() != ProviderGemini {
		t.Errorf("Name() = %q", gen.Name())
	}
}

func TestOpenAIGenerator_NoChoices(t *testing.T) {
	gen, err := NewOpenAIGenerator(&fakeChat{resp: &openai.ChatCompletion{}}, "", Config{Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gen.Generate(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Errorf("err = %v", err)
	}
	if gen.Name() != ProviderOpenAI {
		t.Errorf("default provider = %q", gen.Name())
	}
}

func TestOpenAIGenerator_MapsAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want service.ErrorKind
	}{
		{"quota code", &openai.Error{StatusCode: 429, Code: "RESOURCE_EXHAUSTED", Message: "quota"}, service.KindRateLimit},
		{"server error", &openai.Error{StatusCode: 503}, service.KindTransient},
		{"auth", &openai.Error{StatusCode: 401, Message: "invalid api key"}, service.KindFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, _ := NewOpenAIGenerator(&fakeChat{err: tt.err}, ProviderOpenAI, Config{Model: "m"})
			_, err := gen.Generate(context.Background(), "x")
			var se *core.ServiceError
			if !errors.As(err, &se) {
				t.Fatalf("error %T is not a ServiceError", err)
			}
			if se.Message == "" {
				t.Error("message should be filled")
			}
			if got := service.Classify(err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMapError_PassesThroughOtherErrors(t *testing.T) {
	if err := mapError("x", nil); err != nil {
		t.Errorf("mapError(nil) = %v", err)
	}
	if err := mapError("x", context.DeadlineExceeded); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("mapError(deadline) = %v", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		cfg      Config
		wantName string
		wantErr  bool
	}{
		{Config{Provider: "gemini", APIKey: "k"}, ProviderGemini, false},
		{Config{Provider: " OpenAI ", APIKey: "k"}, ProviderOpenAI, false},
		{Config{Provider: "anthropic", APIKey: "k", MaxTokens: 100}, ProviderAnthropic, false},
		{Config{Provider: "anthropic", APIKey: "k"}, "", true},
		{Config{Provider: "gemini"}, "", true},
		{Config{Provider: "llama", APIKey: "k"}, "", true},
	}
	for _, tt := range tests {
		gen, err := New(tt.cfg)
		if tt.wantErr {
			if !core.IsCategory(err, core.ErrCatValidation) {
				t.Errorf("New(%+v) error = %v, want validation", tt.cfg, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("New(%+v) error = %v", tt.cfg, err)
			continue
		}
		if gen.Name() != tt.wantName {
			t.Errorf("Name() = %q, want %q", gen.Name(), tt.wantName)
		}
	}
}

func TestNew_GeminiDefaults(t *testing.T) {
	gen, err := New(Config{Provider: ProviderGemini, APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if m := gen.(*OpenAIGenerator).Model(); m != DefaultGeminiModel {
		t.Errorf("Model() = %q", m)
	}
}

func TestAPIKeyEnv(t *testing.T) {
	for provider, want := range map[string]string{
		"gemini":    "GEMINI_API_KEY",
		"OPENAI":    "OPENAI_API_KEY",
		"anthropic": "ANTHROPIC_API_KEY",
		"other":     "",
	} {
		if got := APIKeyEnv(provider); got != want {
			t.Errorf("APIKeyEnv(%q) = %q, want %q", provider, got, want)
		}
	}
	if len(Providers()) != 3 {
		t.Errorf("Providers() = %v", Providers())
	}
}
