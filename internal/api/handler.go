// Package api provides HTTP handlers for the chat REST API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ashureev/aifriend/internal/chat"
	"github.com/ashureev/aifriend/internal/store"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20 // 1MB

// Handler provides common handler utilities.
type Handler struct {
	repo      store.Repository
	responder *chat.Responder
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, responder *chat.Responder) *Handler {
	return &Handler{
		repo:      repo,
		responder: responder,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// NotFound answers unknown API routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusNotFound, "Endpoint not found")
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusMethodNotAllowed, "Method not allowed")
}
