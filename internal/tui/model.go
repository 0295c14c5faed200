// Package tui is the terminal chat shell.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ashureev/aifriend/internal/chat"
	"github.com/ashureev/aifriend/internal/domain"
	"github.com/ashureev/aifriend/internal/store"
)

const (
	sidebarWidth = 28
	storeTimeout = 5 * time.Second
)

// historyLoadedMsg carries the persisted log read at startup.
type historyLoadedMsg struct {
	messages []domain.Message
	err      error
}

// replyMsg carries a finished Respond call.
type replyMsg struct {
	text       string
	reply      chat.Reply
	at         time.Time
	persistErr error
}

// clearedMsg reports the outcome of clearing the persisted log.
type clearedMsg struct {
	err error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	responder *chat.Responder
	store     store.Repository // nil when --persist is off
	mode      string

	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model

	messages []domain.Message
	notice   string
	waiting  bool
	err      error

	width  int
	height int
	ready  bool
}

// New creates the chat model. repo may be nil to keep the conversation in memory only.
func New(responder *chat.Responder, repo store.Repository, mode string) Model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.Placeholder = "Type your message…"
	input.CharLimit = 2000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(pink)

	return Model{
		responder: responder,
		store:     repo,
		mode:      mode,
		input:     input,
		timeline:  viewport.New(0, 0),
		spinner:   sp,
		messages:  []domain.Message{},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if m.store != nil {
		cmds = append(cmds, m.loadHistoryCmd())
	}
	return tea.Batch(cmds...)
}

func (m Model) loadHistoryCmd() tea.Cmd {
	repo := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		log, err := repo.Load(ctx)
		if err != nil {
			return historyLoadedMsg{err: err}
		}
		return historyLoadedMsg{messages: log.Messages}
	}
}

func (m Model) respondCmd(text string) tea.Cmd {
	responder, repo := m.responder, m.store
	return func() tea.Msg {
		reply := responder.Respond(context.Background(), text)
		msg := replyMsg{text: strings.TrimSpace(text), reply: reply, at: time.Now()}
		if repo != nil && !reply.IsPrompt() {
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			defer cancel()
			msg.persistErr = repo.Append(ctx, msg.text, reply.Text)
		}
		return msg
	}
}

func (m Model) clearCmd() tea.Cmd {
	repo := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return clearedMsg{err: repo.Clear(ctx)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		m.renderTimeline()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case historyLoadedMsg:
		if msg.err != nil {
			slog.Warn("Failed to load chat history", "error", msg.err)
			m.err = msg.err
			break
		}
		m.messages = append(msg.messages, m.messages...)
		m.renderTimeline()

	case replyMsg:
		m.waiting = false
		if msg.reply.IsPrompt() {
			m.notice = msg.reply.Text
			break
		}
		m.notice = ""
		m.messages = append(m.messages,
			domain.NewMessage(domain.RoleUser, msg.text, msg.at),
			domain.NewMessage(domain.RoleAssistant, msg.reply.Text, msg.at),
		)
		if msg.persistErr != nil {
			slog.Error("Failed to save chat history", "error", msg.persistErr)
			m.err = msg.persistErr
		}
		slog.Info("Chat reply", "source", msg.reply.Source, "fallback", msg.reply.Fallback)
		m.renderTimeline()

	case clearedMsg:
		if msg.err != nil {
			slog.Error("Failed to clear chat history", "error", msg.err)
			m.err = msg.err
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+l":
			m.messages = []domain.Message{}
			m.notice = "Chat cleared."
			m.err = nil
			m.renderTimeline()
			if m.store != nil {
				cmds = append(cmds, m.clearCmd())
			}
			return m, tea.Batch(cmds...)
		case "enter":
			if m.waiting {
				return m, nil
			}
			text := m.input.Value()
			m.input.Reset()
			m.waiting = true
			m.notice = ""
			return m, m.respondCmd(text)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.timeline, cmd = m.timeline.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// Messages returns the conversation as displayed.
func (m Model) Messages() []domain.Message {
	return m.messages
}

func (m *Model) resize() {
	mainWidth := m.width - sidebarWidth - 3
	if mainWidth < 20 {
		mainWidth = 20
	}
	// header(2) + input box(3) + footer(2)
	timelineHeight := m.height - 7
	if timelineHeight < 3 {
		timelineHeight = 3
	}
	m.timeline.Width = mainWidth
	m.timeline.Height = timelineHeight
	m.input.Width = mainWidth - 6
}

func (m *Model) renderTimeline() {
	if !m.ready {
		return
	}
	body := lipgloss.NewStyle().Width(m.timeline.Width)

	var b strings.Builder
	if len(m.messages) == 0 {
		b.WriteString(styleNotice.Render("Say hello to your AI friend! 👋"))
	}
	for _, msg := range m.messages {
		label := styleAssistantLabel.Render("Friend")
		if msg.Role == domain.RoleUser {
			label = styleUserLabel.Render("You")
		}
		b.WriteString(label + " " + styleTime.Render(msg.Timestamp.Format("15:04")) + "\n")
		b.WriteString(body.Render(msg.Content) + "\n\n")
	}
	m.timeline.SetContent(b.String())
	m.timeline.GotoBottom()
}

func (m Model) renderSidebar() string {
	stats := domain.CountMessages(m.messages)

	var b strings.Builder
	b.WriteString(styleSectionTitle.Render("CHAT STATS") + "\n")
	fmt.Fprintf(&b, "Total:     %d\n", stats.Total)
	fmt.Fprintf(&b, "You:       %d\n", stats.User)
	fmt.Fprintf(&b, "Friend:    %d\n\n", stats.Assistant)

	b.WriteString(styleSectionTitle.Render("MODE") + "\n")
	if m.responder != nil && m.responder.RemoteEnabled() {
		b.WriteString(styleModeRemote.Render("🤖 "+m.mode) + "\n\n")
	} else {
		b.WriteString(styleModeFallback.Render("💬 "+m.mode) + "\n\n")
	}

	b.WriteString(styleSectionTitle.Render("HISTORY") + "\n")
	if m.store != nil {
		b.WriteString("saved\n")
	} else {
		b.WriteString("this session only\n")
	}

	if m.err != nil {
		b.WriteString("\n" + styleError.Render("⚠ "+m.err.Error()) + "\n")
	}
	return styleSidebar.Width(sidebarWidth).Render(b.String())
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Starting AI Friend..."
	}

	header := styleHeader.Render("💜 AI FRIEND")

	status := ""
	switch {
	case m.waiting:
		status = m.spinner.View() + " thinking…"
	case m.notice != "":
		status = styleNotice.Render(m.notice)
	}

	chatColumn := lipgloss.JoinVertical(lipgloss.Left,
		m.timeline.View(),
		status,
		styleInput.Width(m.timeline.Width-2).Render(m.input.View()),
	)

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, chatColumn, m.renderSidebar())
	footer := styleFooter.Render("[enter] Send • [pgup/pgdn] Scroll • [ctrl+l] Clear • [esc] Quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, mainContent, footer)
}
