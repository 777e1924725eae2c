package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"face_verification/internal/auth"
	"face_verification/internal/models"

	"github.com/stretchr/testify/assert"
)

type resolverFunc func(ctx context.Context, token string) (models.User, error)

func (f resolverFunc) UserByToken(ctx context.Context, token string) (models.User, error) {
	return f(ctx, token)
}

func TestRequireAuth(t *testing.T) {
	resolver := resolverFunc(func(_ context.Context, token string) (models.User, error) {
		switch token {
		case "good":
			return models.User{ID: "u1", Username: "alice"}, nil
		case "broken":
			return models.User{}, errors.New("db down")
		default:
			return models.User{}, fmt.Errorf("wrapped: %w", auth.ErrInvalidCredentials)
		}
	})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen models.User
	h := RequireAuth(log, resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"valid", "Bearer good", http.StatusNoContent},
		{"lowercase scheme", "bearer good", http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer forged", http.StatusUnauthorized},
		{"resolver failure", "Bearer broken", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = models.User{}

			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)
			if tc.code == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
			if tc.code == http.StatusNoContent {
				assert.Equal(t, "u1", seen.ID)
			}
		})
	}
}

func TestUserFromContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	u, ok := UserFromContext(WithUser(context.Background(), models.User{ID: "u1"}))
	assert.True(t, ok)
	assert.Equal(t, "u1", u.ID)
}
