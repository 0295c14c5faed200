// Package session keeps short-lived, in-memory chat transcripts for UI
// connections.
package session

import (
	"sync"

	"github.com/ashureev/aifriend/internal/domain"
)

// MessageBuffer is a fixed-size circular buffer of messages.
// When full, the oldest message is overwritten.
type MessageBuffer struct {
	buf  []domain.Message
	size int
	head int // next write position
	full bool
	mu   sync.RWMutex
}

// NewMessageBuffer creates a buffer holding at most size messages.
func NewMessageBuffer(size int) *MessageBuffer {
	if size <= 0 {
		size = 200
	}
	return &MessageBuffer{
		buf:  make([]domain.Message, size),
		size: size,
	}
}

// Append adds messages in order.
func (b *MessageBuffer) Append(msgs ...domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, m := range msgs {
		b.buf[b.head] = m
		b.head = (b.head + 1) % b.size
		if b.head == 0 {
			b.full = true
		}
	}
}

// Messages returns the retained messages, oldest first.
func (b *MessageBuffer) Messages() []domain.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.full {
		out := make([]domain.Message, b.head)
		copy(out, b.buf[:b.head])
		return out
	}

	// Wrap-around: head -> end + start -> head
	out := make([]domain.Message, b.size)
	n := copy(out, b.buf[b.head:])
	copy(out[n:], b.buf[:b.head])
	return out
}

// Len returns the number of retained messages.
func (b *MessageBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.full {
		return b.size
	}
	return b.head
}

// Stats counts the retained messages by role.
func (b *MessageBuffer) Stats() domain.Stats {
	return domain.CountMessages(b.Messages())
}

// Reset clears the buffer.
func (b *MessageBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.buf)
	b.head = 0
	b.full = false
}

// Capacity returns the maximum capacity of the buffer.
func (b *MessageBuffer) Capacity() int {
	return b.size
}
