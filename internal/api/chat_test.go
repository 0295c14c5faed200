package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/aifriend/internal/chat"
	"github.com/ashureev/aifriend/internal/config"
	"github.com/ashureev/aifriend/internal/domain"
	"github.com/ashureev/aifriend/internal/store"
)

const helloReply = "Hey there! How are you doing today? 😊"

// brokenRepo fails every operation.
type brokenRepo struct{}

var errBroken = errors.New("disk on fire")

func (brokenRepo) Append(context.Context, string, string) error { return errBroken }
func (brokenRepo) Load(context.Context) (*domain.ConversationLog, error) {
	return nil, errBroken
}
func (brokenRepo) Clear(context.Context) error { return errBroken }
func (brokenRepo) Ping(context.Context) error  { return errBroken }
func (brokenRepo) Close() error                { return nil }

type testEnv struct {
	router http.Handler
	repo   store.Repository
}

func newTestEnv(t *testing.T, repo store.Repository, cfg *config.Config, limiter *RateLimiter) *testEnv {
	t.Helper()
	if repo == nil {
		s, err := store.NewJSONFile(filepath.Join(t.TempDir(), "chat_history.json"))
		require.NoError(t, err)
		repo = s
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	responder := chat.NewResponder(nil, chat.NewFallback(nil), nil)
	base := NewHandler(repo, responder)

	r := chi.NewRouter()
	r.Route("/api", Routes(NewChatHandler(base, limiter, cfg), NewHealthHandler(repo, cfg)))
	return &testEnv{router: r, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got), "body: %s", w.Body.String())
	return w, got
}

func TestChat(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	w, got := env.do(t, http.MethodPost, "/api/chat", `{"message": "  Hello there  "}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, helloReply, got["response"])
	assert.Equal(t, "success", got["status"])
	assert.Equal(t, "keyword", got["source"])

	log, err := env.repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, log.Messages, 2)
	assert.Equal(t, "Hello there", log.Messages[0].Content)
	assert.Equal(t, helloReply, log.Messages[1].Content)
}

func TestChatBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty body", "", "No data provided"},
		{"not json", "hello", "No data provided"},
		{"empty object", "{}", "No data provided"},
		{"null message", `{"message": null}`, "No data provided"},
		{"non-string message", `{"message": 42}`, "No data provided"},
		{"empty message", `{"message": ""}`, "Message cannot be empty"},
		{"blank message", `{"message": "   \n"}`, "Message cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil, nil, nil)

			w, got := env.do(t, http.MethodPost, "/api/chat", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, got["error"])

			log, err := env.repo.Load(context.Background())
			require.NoError(t, err)
			assert.Empty(t, log.Messages)
		})
	}
}

func TestChatBodyTooLarge(t *testing.T) {
	env := newTestEnv(t, nil, &config.Config{MaxRequestBodySize: 16}, nil)

	w, got := env.do(t, http.MethodPost, "/api/chat", `{"message": "`+strings.Repeat("x", 100)+`"}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "request body too large", got["error"])
}

func TestChatRateLimited(t *testing.T) {
	env := newTestEnv(t, nil, nil, NewRateLimiter(1, 2))

	for i := 0; i < 2; i++ {
		w, _ := env.do(t, http.MethodPost, "/api/chat", `{"message": "hi"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w, got := env.do(t, http.MethodPost, "/api/chat", `{"message": "hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate limit exceeded", got["error"])
}

func TestChatSucceedsWhenHistoryWriteFails(t *testing.T) {
	env := newTestEnv(t, brokenRepo{}, nil, nil)

	w, got := env.do(t, http.MethodPost, "/api/chat", `{"message": "hello"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, helloReply, got["response"])
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	w, got := env.do(t, http.MethodGet, "/api/history", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, got["messages"])

	env.do(t, http.MethodPost, "/api/chat", `{"message": "thanks"}`)

	w, got = env.do(t, http.MethodGet, "/api/history", "")
	assert.Equal(t, http.StatusOK, w.Code)
	messages := got["messages"].([]interface{})
	require.Len(t, messages, 2)
	first := messages[0].(map[string]interface{})
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "thanks", first["content"])
	assert.NotEmpty(t, first["timestamp"])
}

func TestHistoryStoreFault(t *testing.T) {
	env := newTestEnv(t, brokenRepo{}, nil, nil)

	w, got := env.do(t, http.MethodGet, "/api/history", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to load history", got["error"])
	assert.Equal(t, []interface{}{}, got["messages"])
	assert.NotContains(t, w.Body.String(), "disk on fire")
}

func TestClear(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)
	env.do(t, http.MethodPost, "/api/chat", `{"message": "hello"}`)

	w, got := env.do(t, http.MethodPost, "/api/clear", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Chat cleared successfully", got["message"])
	assert.Equal(t, "success", got["status"])

	log, err := env.repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, log.Messages)
}

func TestClearStoreFault(t *testing.T) {
	env := newTestEnv(t, brokenRepo{}, nil, nil)

	w, got := env.do(t, http.MethodPost, "/api/clear", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error", got["status"])
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)
	env.do(t, http.MethodPost, "/api/chat", `{"message": "hello"}`)
	env.do(t, http.MethodPost, "/api/chat", `{"message": "bye"}`)

	w, got := env.do(t, http.MethodGet, "/api/stats", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), got["total"])
	assert.Equal(t, float64(2), got["user"])
	assert.Equal(t, float64(2), got["assistant"])
}

func TestUnknownRoutes(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	w, got := env.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Endpoint not found", got["error"])

	w, got = env.do(t, http.MethodGet, "/api/chat", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "Method not allowed", got["error"])
}

func TestHealth(t *testing.T) {
	t.Run("fallback mode", func(t *testing.T) {
		env := newTestEnv(t, nil, &config.Config{}, nil)

		w, got := env.do(t, http.MethodGet, "/api/health", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", got["status"])
		assert.Equal(t, false, got["api_configured"])
		assert.Equal(t, "fallback_ai", got["mode"])
		assert.Equal(t, map[string]interface{}{"api": "ok", "history": "ok"}, got["checks"])
	})

	t.Run("remote mode", func(t *testing.T) {
		env := newTestEnv(t, nil, &config.Config{HFAPIKey: "hf_abc"}, nil)

		_, got := env.do(t, http.MethodGet, "/api/health", "")

		assert.Equal(t, true, got["api_configured"])
		assert.Equal(t, "huggingface_api", got["mode"])
	})

	t.Run("store unreachable", func(t *testing.T) {
		env := newTestEnv(t, brokenRepo{}, &config.Config{}, nil)

		w, got := env.do(t, http.MethodGet, "/api/health", "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "degraded", got["status"])
		assert.Equal(t, "unreachable", got["checks"].(map[string]interface{})["history"])
	})
}
