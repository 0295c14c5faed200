// Package ui serves the browser chat shell over a WebSocket.
package ui

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/aifriend/internal/chat"
	"github.com/ashureev/aifriend/internal/domain"
	"github.com/ashureev/aifriend/internal/identity"
	"github.com/ashureev/aifriend/internal/session"
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const writeTimeout = 10 * time.Second

// Limiter throttles messages per client key.
type Limiter interface {
	Allow(key string) bool
}

// ChatHandler runs one chat conversation per WebSocket connection. The
// transcript belongs to the browser session, so reconnecting restores it.
type ChatHandler struct {
	responder      *chat.Responder
	sessions       *session.Manager
	allowedOrigins []string
	isDev          bool
	mode           string
	limiter        Limiter
}

// NewChatHandler creates a new WebSocket chat handler.
func NewChatHandler(responder *chat.Responder, sessions *session.Manager, allowedOrigins []string, isDev bool, mode string) *ChatHandler {
	return &ChatHandler{
		responder:      responder,
		sessions:       sessions,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
		mode:           mode,
	}
}

// SetLimiter throttles incoming chat messages per client IP.
func (h *ChatHandler) SetLimiter(l Limiter) {
	h.limiter = l
}

// clientFrame is a message sent by the browser.
type clientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

type historyFrame struct {
	Type     string           `json:"type"`
	Messages []domain.Message `json:"messages"`
	Stats    domain.Stats     `json:"stats"`
	Mode     string           `json:"mode"`
}

type replyFrame struct {
	Type     string           `json:"type"`
	Messages []domain.Message `json:"messages"`
	Source   chat.Source      `json:"source"`
	Stats    domain.Stats     `json:"stats"`
}

type statsFrame struct {
	Type  string       `json:"type"`
	Stats domain.Stats `json:"stats"`
}

type textFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	clientIP := identity.IPFromRequest(r)
	slog.Info("WebSocket connection request", "session_id", sessionID, "ip", clientIP)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	sess := h.sessions.Attach(sessionID)
	defer h.sessions.Detach(sess)
	transcript := sess.Transcript

	if err := h.writeJSON(r.Context(), ws, historyFrame{
		Type:     "history",
		Messages: transcript.Messages(),
		Stats:    transcript.Stats(),
		Mode:     h.mode,
	}); err != nil {
		slog.Debug("Failed to send history", "error", err, "session_id", sessionID)
		return
	}

	h.inputLoop(r.Context(), ws, sess, clientIP)
	slog.Info("Chat session disconnected", "session_id", sessionID)
}

func (h *ChatHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *ChatHandler) inputLoop(ctx context.Context, ws *websocket.Conn, sess *session.Session, clientIP string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "session_id", sess.ID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "session_id", sess.ID)
			}
			return
		}
		h.sessions.Touch(sess.ID)

		var msg clientFrame
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := h.writeJSON(ctx, ws, textFrame{Type: "error", Error: "invalid message"}); err != nil {
				return
			}
			continue
		}

		var werr error
		switch msg.Type {
		case "message":
			werr = h.handleMessage(ctx, ws, sess, clientIP, msg.Content)
		case "clear":
			sess.Transcript.Reset()
			slog.Info("Chat session cleared", "session_id", sess.ID)
			werr = h.writeJSON(ctx, ws, statsFrame{Type: "cleared", Stats: sess.Transcript.Stats()})
		case "ping":
			werr = h.writeJSON(ctx, ws, textFrame{Type: "pong"})
		default:
			werr = h.writeJSON(ctx, ws, textFrame{Type: "error", Error: "unknown message type"})
		}
		if werr != nil {
			slog.Debug("WebSocket write failed", "error", werr, "session_id", sess.ID)
			return
		}
	}
}

func (h *ChatHandler) handleMessage(ctx context.Context, ws *websocket.Conn, sess *session.Session, clientIP, content string) error {
	if h.limiter != nil && !h.limiter.Allow(clientIP) {
		slog.Warn("Chat rate limit exceeded", "session_id", sess.ID, "client_ip", clientIP)
		return h.writeJSON(ctx, ws, textFrame{Type: "error", Error: "rate limit exceeded"})
	}

	if err := h.writeJSON(ctx, ws, textFrame{Type: "typing"}); err != nil {
		return err
	}

	reply := h.responder.Respond(ctx, content)
	if reply.IsPrompt() {
		return h.writeJSON(ctx, ws, textFrame{Type: "prompt", Content: reply.Text})
	}

	now := time.Now()
	pair := []domain.Message{
		domain.NewMessage(domain.RoleUser, strings.TrimSpace(content), now),
		domain.NewMessage(domain.RoleAssistant, reply.Text, now),
	}
	sess.Transcript.Append(pair...)

	slog.Info("Chat reply",
		"session_id", sess.ID,
		"message_length", len(content),
		"source", reply.Source,
		"fallback", reply.Fallback,
	)

	return h.writeJSON(ctx, ws, replyFrame{
		Type:     "reply",
		Messages: pair,
		Source:   reply.Source,
		Stats:    sess.Transcript.Stats(),
	})
}

func (h *ChatHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
