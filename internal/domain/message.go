// Package domain contains core domain types for the chat assistant.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	// RoleUser marks a message typed by the person chatting.
	RoleUser Role = "user"
	// RoleAssistant marks a reply produced by the assistant.
	RoleAssistant Role = "assistant"
)

// legacyRoleAI is the role tag written by older history files.
const legacyRoleAI = "ai"

// Message is a single chat message. Messages are never mutated after creation.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a message with a fresh ID and the given time.
func NewMessage(role Role, content string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: at,
	}
}

// UnmarshalJSON accepts both the canonical layout and the older
// {"type": "user"|"ai"} layout.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string `json:"id"`
		Role      string `json:"role"`
		Type      string `json:"type"`
		Content   string `json:"content"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	role := raw.Role
	if role == "" {
		role = raw.Type
	}
	if role == legacyRoleAI {
		role = string(RoleAssistant)
	}

	*m = Message{
		ID:        raw.ID,
		Role:      Role(role),
		Content:   raw.Content,
		Timestamp: parseTimestamp(raw.Timestamp),
	}
	return nil
}

// timestampLayouts are tried in order. Older files carry local ISO-8601
// timestamps without a zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ConversationLog is the ordered record of a conversation.
// Insertion order is chronological order.
type ConversationLog struct {
	Messages []Message `json:"messages"`
}

// NewConversationLog returns an empty log whose Messages encodes as [] rather than null.
func NewConversationLog() *ConversationLog {
	return &ConversationLog{Messages: []Message{}}
}

// Stats counts messages by role.
type Stats struct {
	Total     int `json:"total"`
	User      int `json:"user"`
	Assistant int `json:"assistant"`
}

// CountMessages computes Stats over a slice of messages.
func CountMessages(msgs []Message) Stats {
	s := Stats{Total: len(msgs)}
	for _, m := range msgs {
		if m.Role == RoleUser {
			s.User++
		}
	}
	s.Assistant = s.Total - s.User
	return s
}

// Stats returns message counts for the log.
func (l *ConversationLog) Stats() Stats {
	return CountMessages(l.Messages)
}
