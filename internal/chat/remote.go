package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// maxResponseBodySize caps how much of an inference response is read.
const maxResponseBodySize = 1 << 20 // 1MB

// FailureKind classifies why a remote generation produced no usable text.
type FailureKind string

const (
	// FailureTimeout means the endpoint did not answer within the timeout.
	FailureTimeout FailureKind = "timeout"
	// FailureModelLoading means the endpoint answered 503 while the model cold-starts.
	FailureModelLoading FailureKind = "model_loading"
	// FailureHTTP means any other non-200 status.
	FailureHTTP FailureKind = "http_error"
	// FailureEmptyGeneration means the model returned nothing beyond the echoed prompt.
	FailureEmptyGeneration FailureKind = "empty_generation"
	// FailureTransport means the request never completed (DNS, connect, reset).
	FailureTransport FailureKind = "transport_error"
	// FailureMalformedResponse means a 200 whose body is not a non-empty JSON array of objects.
	FailureMalformedResponse FailureKind = "malformed_response"
)

// Failure is returned by RemoteClient.Generate for every unsuccessful call.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	msg := "remote inference: " + string(f.Kind)
	if f.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", f.StatusCode)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// FailureKindOf extracts the kind from an error returned by Generate.
// Errors that are not a *Failure report FailureTransport.
func FailureKindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return FailureTransport
}

// Generator produces a reply for the given text.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// RemoteClient calls a hosted text-generation endpoint that accepts
// {"inputs": text} and answers [{"generated_text": ...}].
type RemoteClient struct {
	url        string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewRemoteClient creates a client bounded by timeout for the whole exchange.
func NewRemoteClient(url, apiKey string, timeout time.Duration) *RemoteClient {
	return &RemoteClient{
		url:     url,
		apiKey:  apiKey,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type generateRequest struct {
	Inputs string `json:"inputs"`
}

type generation struct {
	GeneratedText *string `json:"generated_text"`
}

// Generate makes exactly one request; there is no retry.
func (c *RemoteClient) Generate(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(generateRequest{Inputs: text})
	if err != nil {
		return "", &Failure{Kind: FailureTransport, Err: fmt.Errorf("marshal request: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &Failure{Kind: FailureTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportFailure(err)
	}
	defer func() {
		// Drain so the keep-alive connection goes back to the pool.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return "", &Failure{Kind: FailureModelLoading, StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return "", &Failure{Kind: FailureHTTP, StatusCode: resp.StatusCode}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return "", transportFailure(fmt.Errorf("read response: %w", err))
	}

	generated, err := parseGeneration(respBody)
	if err != nil {
		return "", err
	}

	reply := stripEcho(generated, text)
	if reply == "" {
		return "", &Failure{Kind: FailureEmptyGeneration, StatusCode: resp.StatusCode}
	}
	return reply, nil
}

func parseGeneration(body []byte) (string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return "", &Failure{Kind: FailureMalformedResponse, StatusCode: http.StatusOK, Err: err}
	}
	if len(items) == 0 {
		return "", &Failure{Kind: FailureMalformedResponse, StatusCode: http.StatusOK, Err: errors.New("empty result list")}
	}

	var first generation
	if err := json.Unmarshal(items[0], &first); err != nil {
		return "", &Failure{Kind: FailureMalformedResponse, StatusCode: http.StatusOK, Err: err}
	}
	if first.GeneratedText == nil {
		return "", &Failure{Kind: FailureEmptyGeneration, StatusCode: http.StatusOK, Err: errors.New("generated_text missing")}
	}
	return *first.GeneratedText, nil
}

// stripEcho removes a leading copy of the prompt. Conversational models on the
// hosted API echo their input before the continuation; this is a prefix check
// only, not a real prompt/response separator.
func stripEcho(generated, prompt string) string {
	text := strings.TrimSpace(generated)
	if prompt != "" && strings.HasPrefix(text, prompt) {
		text = strings.TrimSpace(text[len(prompt):])
	}
	return text
}

func transportFailure(err error) *Failure {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Failure{Kind: FailureTimeout, Err: err}
	}
	return &Failure{Kind: FailureTransport, Err: err}
}
