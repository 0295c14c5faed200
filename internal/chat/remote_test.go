package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestRemoteClientGenerate(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "How is the weather?", body["inputs"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"generated_text":"How is the weather?  It is sunny today. "}]`)
	})

	client := NewRemoteClient(server.URL, "hf_test", time.Second)
	got, err := client.Generate(context.Background(), "How is the weather?")

	require.NoError(t, err)
	assert.Equal(t, "It is sunny today.", got)
}

func TestRemoteClientKeepsTextWithoutEcho(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"generated_text":"  Sure thing! "}, {"generated_text":"ignored"}]`)
	})

	client := NewRemoteClient(server.URL, "hf_test", time.Second)
	got, err := client.Generate(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, "Sure thing!", got)
}

func TestRemoteClientFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   FailureKind
		wantStatus int
	}{
		{"model loading", http.StatusServiceUnavailable, `{"error":"Model is currently loading"}`, FailureModelLoading, http.StatusServiceUnavailable},
		{"unauthorized", http.StatusUnauthorized, `{"error":"Invalid token"}`, FailureHTTP, http.StatusUnauthorized},
		{"server error", http.StatusInternalServerError, `oops`, FailureHTTP, http.StatusInternalServerError},
		{"echo only", http.StatusOK, `[{"generated_text":"hello"}]`, FailureEmptyGeneration, http.StatusOK},
		{"blank generation", http.StatusOK, `[{"generated_text":"   "}]`, FailureEmptyGeneration, http.StatusOK},
		{"missing field", http.StatusOK, `[{"text":"hi"}]`, FailureEmptyGeneration, http.StatusOK},
		{"empty list", http.StatusOK, `[]`, FailureMalformedResponse, http.StatusOK},
		{"object body", http.StatusOK, `{"generated_text":"hi"}`, FailureMalformedResponse, http.StatusOK},
		{"not json", http.StatusOK, `<html>`, FailureMalformedResponse, http.StatusOK},
		{"list of strings", http.StatusOK, `["hi"]`, FailureMalformedResponse, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			client := NewRemoteClient(server.URL, "hf_test", time.Second)
			got, err := client.Generate(context.Background(), "hello")

			require.Error(t, err)
			assert.Empty(t, got)
			var failure *Failure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.wantKind, failure.Kind)
			assert.Equal(t, tt.wantStatus, failure.StatusCode)
		})
	}
}

func TestRemoteClientTimeout(t *testing.T) {
	release := make(chan struct{})
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	client := NewRemoteClient(server.URL, "hf_test", 50*time.Millisecond)
	_, err := client.Generate(context.Background(), "hello")

	require.Error(t, err)
	assert.Equal(t, FailureTimeout, FailureKindOf(err))
}

func TestRemoteClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewRemoteClient(url, "hf_test", time.Second)
	_, err := client.Generate(context.Background(), "hello")

	require.Error(t, err)
	assert.Equal(t, FailureTransport, FailureKindOf(err))
}

func TestRemoteClientMakesSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	client := NewRemoteClient(server.URL, "hf_test", time.Second)
	_, err := client.Generate(context.Background(), "hello")

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemoteClientReusesConnectionAfterError(t *testing.T) {
	var conns atomic.Int32
	errorBody := strings.Repeat(`{"error":"upstream failure"}`, 200)
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, errorBody)
	}))
	server.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	server.Start()
	t.Cleanup(server.Close)

	client := NewRemoteClient(server.URL, "hf_test", time.Second)
	for i := 0; i < 3; i++ {
		_, err := client.Generate(context.Background(), "hello")
		require.Error(t, err)
		assert.Equal(t, FailureHTTP, FailureKindOf(err))
	}

	assert.Equal(t, int32(1), conns.Load())
}

func TestStripEcho(t *testing.T) {
	assert.Equal(t, "world", stripEcho("hello world", "hello"))
	assert.Equal(t, "", stripEcho("  hello  ", "hello"))
	assert.Equal(t, "say hello", stripEcho("say hello", "hello"))
	assert.Equal(t, "hi", stripEcho(" hi ", ""))
}

func TestFailureError(t *testing.T) {
	err := &Failure{Kind: FailureModelLoading, StatusCode: 503}
	assert.Equal(t, "remote inference: model_loading (status 503)", err.Error())
	assert.Equal(t, FailureTransport, FailureKindOf(fmt.Errorf("plain")))
}
