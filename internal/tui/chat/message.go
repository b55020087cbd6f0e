package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

// MessageRole represents the role of a chat message sender.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message is one entry of the chat transcript.
type Message struct {
	ID        string
	Role      MessageRole
	Content   string
	Timestamp time.Time
	Warning   bool // system notices rendered as warnings
}

func newMessage(role MessageRole, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message { return newMessage(RoleUser, content) }

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message { return newMessage(RoleAssistant, content) }

// NewSystemMessage creates a notice that is shown but never sent as history.
func NewSystemMessage(content string) Message { return newMessage(RoleSystem, content) }

// NewWarningMessage creates a system notice rendered as a warning.
func NewWarningMessage(content string) Message {
	m := newMessage(RoleSystem, content)
	m.Warning = true
	return m
}

// Transcript is the ordered chat transcript of one conversation.
type Transcript struct {
	messages []Message
}

// NewTranscript seeds a transcript from stored history.
func NewTranscript(history []core.Message) *Transcript {
	t := &Transcript{}
	for _, m := range history {
		role := RoleAssistant
		if m.Role == string(RoleUser) {
			role = RoleUser
		}
		t.Add(newMessage(role, m.Content))
	}
	return t
}

// Add appends a message.
func (t *Transcript) Add(m Message) { t.messages = append(t.messages, m) }

// All returns a copy of the transcript.
func (t *Transcript) All() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int { return len(t.messages) }

// Clear empties the transcript.
func (t *Transcript) Clear() { t.messages = nil }

// History returns the user and assistant turns as pipeline history.
func (t *Transcript) History() []core.Message {
	var out []core.Message
	for _, m := range t.messages {
		if m.Role == RoleSystem {
			continue
		}
		out = append(out, core.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// LastAnswer returns the most recent assistant message content.
func (t *Transcript) LastAnswer() string {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == RoleAssistant {
			return t.messages[i].Content
		}
	}
	return ""
}
