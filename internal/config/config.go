// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// PlaceholderAPIKey is the value shipped in the sample .env file. It is treated
// the same as an unset key.
const PlaceholderAPIKey = "your_hugging_face_api_key_here"

// DefaultModelURL is the inference endpoint used when HF_MODEL_URL is unset.
const DefaultModelURL = "https://api-inference.huggingface.co/models/microsoft/DialoGPT-medium"

// History backends.
const (
	HistoryBackendJSON   = "json"
	HistoryBackendSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	GRPCPort    string // empty disables the gRPC health server
	FrontendURL string
	CORSOrigins []string

	HFAPIKey      string
	HFModelURL    string
	RemoteTimeout time.Duration

	History   HistoryConfig
	RateLimit RateLimitConfig
	Session   SessionConfig

	MaxRequestBodySize int64
}

// HistoryConfig selects and locates the conversation history backend.
type HistoryConfig struct {
	Backend string
	Path    string // JSON file, used by the json backend
	DBPath  string // SQLite database, used by the sqlite backend
}

// RateLimitConfig controls per-client throttling of the chat endpoint.
type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

// SessionConfig controls the in-memory transcripts kept for UI sessions.
type SessionConfig struct {
	TTL        time.Duration
	BufferSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		GRPCPort:      getEnv("GRPC_PORT", ""),
		FrontendURL:   getEnv("FRONTEND_URL", ""),
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"*"}),
		HFAPIKey:      strings.TrimSpace(getEnv("HF_API_KEY", "")),
		HFModelURL:    getEnv("HF_MODEL_URL", DefaultModelURL),
		RemoteTimeout: getEnvDuration("HF_TIMEOUT", 20*time.Second),
		History: HistoryConfig{
			Backend: strings.ToLower(getEnv("HISTORY_BACKEND", HistoryBackendJSON)),
			Path:    getEnv("HISTORY_PATH", "chat_history.json"),
			DBPath:  getEnv("HISTORY_DB_PATH", "./data/history.db"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
			Burst:     getEnvInt("RATE_LIMIT_BURST", 10),
		},
		Session: SessionConfig{
			TTL:        getEnvDuration("SESSION_TTL", 60*time.Minute),
			BufferSize: getEnvInt("SESSION_BUFFER_SIZE", 200),
		},
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_BYTES", 1<<20)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.HFModelURL == "" {
		return fmt.Errorf("HF_MODEL_URL cannot be empty")
	}
	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("HF_TIMEOUT must be > 0")
	}
	switch c.History.Backend {
	case HistoryBackendJSON:
		if c.History.Path == "" {
			return fmt.Errorf("HISTORY_PATH cannot be empty")
		}
	case HistoryBackendSQLite:
		if c.History.DBPath == "" {
			return fmt.Errorf("HISTORY_DB_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("HISTORY_BACKEND must be %q or %q, got %q", HistoryBackendJSON, HistoryBackendSQLite, c.History.Backend)
	}
	if c.RateLimit.PerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be > 0")
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be > 0")
	}
	if c.Session.BufferSize <= 0 {
		return fmt.Errorf("SESSION_BUFFER_SIZE must be > 0")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be > 0")
	}
	return nil
}

// RemoteEnabled reports whether a usable inference credential is configured.
// An absent or placeholder key switches the whole system to fallback-only mode.
func (c *Config) RemoteEnabled() bool {
	return c.HFAPIKey != "" && c.HFAPIKey != PlaceholderAPIKey
}

// Mode names the active response mode, as reported by the health check.
func (c *Config) Mode() string {
	if c.RemoteEnabled() {
		return "huggingface_api"
	}
	return "fallback_ai"
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go duration strings ("20s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
