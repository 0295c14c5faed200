package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/aifriend/internal/domain"
)

// JSONFileStore keeps the log in one pretty-printed JSON file.
//
// The mutex serializes read-modify-write within this process. Two processes
// sharing the same file can still lose an update.
type JSONFileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewJSONFile creates a file-backed repository. The file is created on first write.
func NewJSONFile(path string) (*JSONFileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	return &JSONFileStore{path: path, now: time.Now}, nil
}

// Path returns the history file location.
func (s *JSONFileStore) Path() string {
	return s.path
}

// Append implements Repository.
func (s *JSONFileStore) Append(ctx context.Context, userText, assistantText string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.read()
	at := s.now()
	log.Messages = append(log.Messages,
		domain.NewMessage(domain.RoleUser, userText, at),
		domain.NewMessage(domain.RoleAssistant, assistantText, at),
	)
	return s.write(log)
}

// Load implements Repository.
func (s *JSONFileStore) Load(ctx context.Context) (*domain.ConversationLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(), nil
}

// Clear implements Repository.
func (s *JSONFileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(domain.NewConversationLog())
}

// Ping checks that the history directory exists and is writable.
func (s *JSONFileStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	f, err := os.CreateTemp(dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("history directory not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// Close is a no-op; the file is opened per operation.
func (s *JSONFileStore) Close() error {
	return nil
}

// read returns an empty log for a missing or malformed file.
func (s *JSONFileStore) read() *domain.ConversationLog {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to read history file, starting empty", "path", s.path, "error", err)
		}
		return domain.NewConversationLog()
	}

	var log domain.ConversationLog
	if err := json.Unmarshal(data, &log); err != nil {
		slog.Warn("History file is malformed, starting empty", "path", s.path, "error", err)
		return domain.NewConversationLog()
	}
	if log.Messages == nil {
		log.Messages = []domain.Message{}
	}
	return &log
}

func (s *JSONFileStore) write(log *domain.ConversationLog) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(log); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close history: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
