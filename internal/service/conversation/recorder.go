// Package conversation records user queries and composed answers in the chat
// store so later requests can carry the conversation history.
package conversation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/logging"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service/report"
)

// DefaultUserID owns conversations created by the local CLI, TUI and server.
const DefaultUserID = "default_user"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// NewID returns a fresh conversation id.
func NewID() string {
	return "conv_" + uuid.NewString()
}

// Recorder persists conversation turns. A nil Recorder, or one without a
// store, records nothing.
type Recorder struct {
	store  core.ChatStore
	userID string
	logger *logging.Logger
}

// NewRecorder returns a recorder writing to store as userID.
func NewRecorder(store core.ChatStore, userID string, logger *logging.Logger) *Recorder {
	if userID == "" {
		userID = DefaultUserID
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{store: store, userID: userID, logger: logger}
}

// Enabled reports whether turns are persisted.
func (r *Recorder) Enabled() bool {
	return r != nil && r.store != nil
}

// UserID returns the owner of recorded conversations.
func (r *Recorder) UserID() string {
	if r == nil {
		return DefaultUserID
	}
	return r.userID
}

// History loads the stored messages of a conversation.
func (r *Recorder) History(ctx context.Context, conversationID string) ([]core.Message, error) {
	if !r.Enabled() || conversationID == "" {
		return nil, nil
	}
	msgs, err := r.store.LoadHistory(ctx, r.userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return msgs, nil
}

// RecordTurn stores the query and the answer shown for it.
func (r *Recorder) RecordTurn(ctx context.Context, conversationID, query, answer string) error {
	if !r.Enabled() || conversationID == "" {
		return nil
	}
	if err := r.store.SaveMessage(ctx, r.userID, RoleUser, query, conversationID); err != nil {
		return fmt.Errorf("saving query: %w", err)
	}
	if err := r.store.SaveMessage(ctx, r.userID, RoleAssistant, answer, conversationID); err != nil {
		return fmt.Errorf("saving answer: %w", err)
	}
	r.logger.WithConversation(conversationID).Debug("conversation turn saved",
		"query_chars", len([]rune(query)), "answer_chars", len([]rune(answer)))
	return nil
}

// Reply is the assistant text for a finished request: the composed answer on
// success, the rendered error otherwise.
func Reply(state core.WorkflowState, err error) string {
	if err != nil {
		return report.RenderError(err)
	}
	return report.Compose(state.Result()).Markdown
}
