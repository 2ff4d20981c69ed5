package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInternalAuthMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		requiredKey string
		providedKey string
		wantStatus  int
	}{
		{name: "no key configured passes through", requiredKey: "", providedKey: "", wantStatus: http.StatusOK},
		{name: "matching key allowed", requiredKey: "secret", providedKey: "secret", wantStatus: http.StatusOK},
		{name: "missing key rejected", requiredKey: "secret", providedKey: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong key rejected", requiredKey: "secret", providedKey: "other", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := InternalAuthMiddleware(tt.requiredKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/generate", nil)
			if tt.providedKey != "" {
				req.Header.Set("X-Internal-API-Key", tt.providedKey)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, req)

			if recorder.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, recorder.Code)
			}
		})
	}
}
