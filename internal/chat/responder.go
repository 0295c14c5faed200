package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ashureev/aifriend/internal/config"
)

// Source names where a reply came from.
type Source string

const (
	// SourcePrompt is the fixed reply to blank input.
	SourcePrompt Source = "prompt"
	// SourceRemote is text produced by the inference endpoint.
	SourceRemote Source = "remote"
	// SourceKeyword is a canned reply matched by keyword.
	SourceKeyword Source = "keyword"
	// SourceGeneric is a randomly chosen canned reply.
	SourceGeneric Source = "generic"
)

// Reply is the outcome of Responder.Respond.
type Reply struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
	// Fallback is set when a remote attempt was made and failed.
	Fallback FailureKind `json:"fallback,omitempty"`
}

// IsPrompt reports whether the input was blank. Shells skip history for these.
func (r Reply) IsPrompt() bool {
	return r.Source == SourcePrompt
}

// Responder is the single decision point shared by every shell.
type Responder struct {
	remote   Generator
	fallback *Fallback
	logger   *slog.Logger
}

// NewResponder creates a Responder. A nil remote means fallback-only mode.
func NewResponder(remote Generator, fallback *Fallback, logger *slog.Logger) *Responder {
	if fallback == nil {
		fallback = NewFallback(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{remote: remote, fallback: fallback, logger: logger}
}

// NewResponderFromConfig builds the Responder every shell uses. The remote
// client is wired only when a real API key is configured.
func NewResponderFromConfig(cfg *config.Config, logger *slog.Logger) *Responder {
	fallback := NewFallback(nil)
	if !cfg.RemoteEnabled() {
		return NewResponder(nil, fallback, logger)
	}
	remote := NewRemoteClient(cfg.HFModelURL, cfg.HFAPIKey, cfg.RemoteTimeout)
	return NewResponder(remote, fallback, logger)
}

// RemoteEnabled reports whether replies may come from the inference endpoint.
func (r *Responder) RemoteEnabled() bool {
	return r.remote != nil
}

// Respond never fails: every remote failure, including a model that is still
// loading, degrades to a canned reply.
func (r *Responder) Respond(ctx context.Context, text string) Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{Text: EmptyInputReply, Source: SourcePrompt}
	}

	var failed FailureKind
	if r.remote != nil {
		generated, err := r.remote.Generate(ctx, text)
		if err == nil {
			r.logger.Debug("Remote reply generated", "reply_length", len(generated))
			return Reply{Text: generated, Source: SourceRemote}
		}
		failed = FailureKindOf(err)
		r.logger.Info("Remote inference failed, using fallback", "kind", failed, "error", err)
	}

	reply := r.choose(text)
	reply.Fallback = failed
	return reply
}

func (r *Responder) choose(text string) Reply {
	if matched, ok := r.fallback.Match(text); ok {
		return Reply{Text: matched, Source: SourceKeyword}
	}
	return Reply{Text: r.fallback.Generic(), Source: SourceGeneric}
}
