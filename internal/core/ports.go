package core

import (
	"context"
	"time"
)

// =============================================================================
// Generator Port
// =============================================================================

// Generator sends a fully composed prompt to an external text generation
// service. The response is either a string or a value exposing its text
// (see Texter and ContentGetter); callers normalize it.
type Generator interface {
	// Name returns the adapter identifier (e.g., "gemini", "anthropic").
	Name() string

	// Generate runs one request. Failures should be *ServiceError when the
	// provider reports a status code.
	Generate(ctx context.Context, prompt string) (any, error)
}

// Texter is a response object exposing its text through a method.
type Texter interface {
	Text() string
}

// ContentGetter is a response object exposing its text as a content field.
type ContentGetter interface {
	GetContent() string
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (any, error)

// Name implements Generator.
func (f GeneratorFunc) Name() string { return "func" }

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (any, error) {
	return f(ctx, prompt)
}

// =============================================================================
// ChatStore Port (Conversation Persistence)
// =============================================================================

// ChatStore persists conversation messages per user.
type ChatStore interface {
	// SaveMessage appends a message to a conversation, creating it on first use.
	SaveMessage(ctx context.Context, userID, role, content, conversationID string) error

	// LoadHistory returns the conversation messages in insertion order.
	LoadHistory(ctx context.Context, userID, conversationID string) ([]Message, error)

	// ListConversations returns summaries, most recently updated first.
	ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error)

	// DeleteConversation removes a conversation and its messages.
	DeleteConversation(ctx context.Context, userID, conversationID string) error

	// Close releases the store.
	Close() error
}

// ConversationSummary describes a stored conversation without its messages.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	FirstMessage string    `json:"first_message"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
