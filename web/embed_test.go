package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSPAHandlerServesIndex(t *testing.T) {
	h := SPAHandler()

	for _, path := range []string{"/", "/some/client/route"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), "AI Friend") {
			t.Errorf("%s: expected chat page, got %q", path, w.Body.String())
		}
	}
}

func TestSPAHandlerServesAssets(t *testing.T) {
	h := SPAHandler()
	w := httptest.NewRecorder()

	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app.js", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/ws/chat") {
		t.Errorf("expected app script")
	}
}
