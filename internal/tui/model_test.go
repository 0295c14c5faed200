package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/aifriend/internal/chat"
	"github.com/ashureev/aifriend/internal/domain"
	"github.com/ashureev/aifriend/internal/store"
)

const helloReply = "Hey there! How are you doing today? 😊"

func newTestModel(t *testing.T, repo store.Repository) Model {
	t.Helper()
	m := New(chat.NewResponder(nil, chat.NewFallback(nil), nil), repo, "fallback_ai")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

// submit types text, presses enter, and runs the resulting command.
func submit(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.True(t, m.waiting)
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	next, _ = m.Update(cmd())
	return next.(Model)
}

func TestSubmitMessage(t *testing.T) {
	m := newTestModel(t, nil)

	m = submit(t, m, "Hello there")

	assert.False(t, m.waiting)
	require.Len(t, m.Messages(), 2)
	assert.Equal(t, domain.RoleUser, m.Messages()[0].Role)
	assert.Equal(t, "Hello there", m.Messages()[0].Content)
	assert.Equal(t, helloReply, m.Messages()[1].Content)
	assert.Contains(t, m.View(), "Total:     2")
}

func TestSubmitEmptyShowsPrompt(t *testing.T) {
	m := newTestModel(t, nil)

	m = submit(t, m, "   ")

	assert.Empty(t, m.Messages())
	assert.Equal(t, chat.EmptyInputReply, m.notice)
	assert.Contains(t, m.View(), "Please say something!")
}

func TestEnterIgnoredWhileWaiting(t *testing.T) {
	m := newTestModel(t, nil)
	m.waiting = true
	m.input.SetValue("hi")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, "hi", next.(Model).input.Value())
}

func TestClear(t *testing.T) {
	m := newTestModel(t, nil)
	m = submit(t, m, "hi")
	require.Len(t, m.Messages(), 2)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	m = next.(Model)

	assert.Empty(t, m.Messages())
	assert.Contains(t, m.View(), "Chat cleared.")
}

func TestQuitKeys(t *testing.T) {
	m := newTestModel(t, nil)

	for _, key := range []tea.KeyMsg{{Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(key)
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestPersistence(t *testing.T) {
	repo, err := store.NewJSONFile(filepath.Join(t.TempDir(), "chat_history.json"))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, "earlier", "Tell me more about that! 👂"))

	m := newTestModel(t, repo)
	next, _ := m.Update(m.loadHistoryCmd()())
	m = next.(Model)
	require.Len(t, m.Messages(), 2)
	assert.Equal(t, "earlier", m.Messages()[0].Content)

	m = submit(t, m, "thanks")
	log, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, log.Messages, 4)
	assert.Equal(t, "thanks", log.Messages[2].Content)

	m = submit(t, m, "")
	log, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, log.Messages, 4)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	require.NotNil(t, cmd)
	next, _ = next.(Model).Update(m.clearCmd()())
	assert.Nil(t, next.(Model).err)

	log, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, log.Messages)
}

func TestViewBeforeResize(t *testing.T) {
	m := New(chat.NewResponder(nil, nil, nil), nil, "fallback_ai")

	assert.True(t, strings.HasPrefix(m.View(), "Starting"))
}

func TestSidebarShowsMode(t *testing.T) {
	m := newTestModel(t, nil)

	view := m.View()

	assert.Contains(t, view, "fallback_ai")
	assert.Contains(t, view, "this session only")
}
