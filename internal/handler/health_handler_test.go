package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type mockHealthChecker struct {
	pingFn func(ctx context.Context) error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.pingFn(ctx)
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name        string
		checker     HealthChecker
		wantStatus  int
		wantStorage string
	}{
		{"memory", nil, http.StatusOK, "memory"},
		{"database up", &mockHealthChecker{pingFn: func(ctx context.Context) error { return nil }}, http.StatusOK, "up"},
		{"database down", &mockHealthChecker{pingFn: func(ctx context.Context) error { return errors.New("refused") }}, http.StatusServiceUnavailable, "down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHealthHandler(tt.checker)(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body healthResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body.Storage != tt.wantStorage {
				t.Errorf("storage = %q, want %q", body.Storage, tt.wantStorage)
			}
		})
	}
}
