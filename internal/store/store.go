// Package store provides conversation history persistence.
package store

import (
	"context"

	"github.com/ashureev/aifriend/internal/domain"
)

// Repository persists the single shared conversation log.
type Repository interface {
	// Append records a user message followed by the assistant reply, both
	// stamped with the current time.
	Append(ctx context.Context, userText, assistantText string) error

	// Load returns the full log. A missing or unreadable log is empty, not an error.
	Load(ctx context.Context) (*domain.ConversationLog, error)

	// Clear replaces the log with an empty one.
	Clear(ctx context.Context) error

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing storage.
	Close() error
}
