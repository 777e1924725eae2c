package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	var reached bool
	h := New([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	tests := []struct {
		name    string
		method  string
		origin  string
		allowed bool
		reached bool
	}{
		{"whitelisted", http.MethodGet, "https://app.example.com", true, true},
		{"localhost any port", http.MethodGet, "http://localhost:5173", true, true},
		{"localhost lookalike", http.MethodGet, "http://localhost.evil.com", false, true},
		{"unknown", http.MethodGet, "https://evil.com", false, true},
		{"preflight", http.MethodOptions, "https://app.example.com", true, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reached = false

			req := httptest.NewRequest(tc.method, "/verify", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if tc.allowed {
				assert.Equal(t, tc.origin, rec.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
			assert.Equal(t, tc.reached, reached)
		})
	}
}
