package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/aifriend/internal/chat"
	"github.com/ashureev/aifriend/internal/config"
	"github.com/ashureev/aifriend/internal/domain"
	"github.com/ashureev/aifriend/internal/identity"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// ChatHandler serves the chat, history, and stats endpoints.
type ChatHandler struct {
	*Handler
	limiter     *RateLimiter
	maxBodySize int64
}

// NewChatHandler creates a chat handler. A nil limiter disables throttling.
func NewChatHandler(base *Handler, limiter *RateLimiter, cfg *config.Config) *ChatHandler {
	maxBodySize := int64(defaultMaxRequestBodySize)
	if cfg != nil && cfg.MaxRequestBodySize > 0 {
		maxBodySize = cfg.MaxRequestBodySize
	}
	return &ChatHandler{Handler: base, limiter: limiter, maxBodySize: maxBodySize}
}

// RegisterRoutes registers chat routes on a router already scoped to /api.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.Chat)
	r.Get("/history", h.History)
	r.Post("/clear", h.Clear)
	r.Get("/stats", h.Stats)
}

type chatRequest struct {
	Message *string `json:"message"`
}

type chatResponse struct {
	Response string      `json:"response"`
	Status   string      `json:"status"`
	Source   chat.Source `json:"source"`
}

// Chat answers one message and appends the exchange to history.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	reqID := chiMiddleware.GetReqID(r.Context())
	clientIP := identity.IPFromRequest(r)

	if h.limiter != nil && !h.limiter.Allow(clientIP) {
		slog.Warn("Chat rate limit exceeded", "request_id", reqID, "client_ip", clientIP)
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil || req.Message == nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		Error(w, http.StatusBadRequest, "No data provided")
		return
	}

	message := strings.TrimSpace(*req.Message)
	if message == "" {
		Error(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}

	reply := h.responder.Respond(r.Context(), message)
	slog.Info("Chat reply",
		"request_id", reqID,
		"client_ip", clientIP,
		"message_length", len(message),
		"source", reply.Source,
		"fallback", reply.Fallback,
	)

	if err := h.repo.Append(r.Context(), message, reply.Text); err != nil {
		slog.Error("Failed to save chat history", "request_id", reqID, "error", err)
	}

	JSON(w, http.StatusOK, chatResponse{
		Response: reply.Text,
		Status:   "success",
		Source:   reply.Source,
	})
}

// History returns the persisted log.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	log, err := h.repo.Load(r.Context())
	if err != nil {
		slog.Error("Failed to load chat history", "request_id", chiMiddleware.GetReqID(r.Context()), "error", err)
		JSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":    "failed to load history",
			"messages": []domain.Message{},
		})
		return
	}
	JSON(w, http.StatusOK, log)
}

// Clear empties the persisted log.
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Clear(r.Context()); err != nil {
		slog.Error("Failed to clear chat history", "request_id", chiMiddleware.GetReqID(r.Context()), "error", err)
		JSON(w, http.StatusInternalServerError, map[string]string{
			"error":  "failed to clear history",
			"status": "error",
		})
		return
	}
	slog.Info("Chat history cleared", "request_id", chiMiddleware.GetReqID(r.Context()))
	JSON(w, http.StatusOK, map[string]string{
		"message": "Chat cleared successfully",
		"status":  "success",
	})
}

// Stats returns message counts over the persisted log.
func (h *ChatHandler) Stats(w http.ResponseWriter, r *http.Request) {
	log, err := h.repo.Load(r.Context())
	if err != nil {
		slog.Error("Failed to load chat history", "request_id", chiMiddleware.GetReqID(r.Context()), "error", err)
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	JSON(w, http.StatusOK, log.Stats())
}
