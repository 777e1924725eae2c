package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"face_verification/internal/auth"
	resp "face_verification/internal/lib/api/response"
	sl "face_verification/internal/lib/logger"
	"face_verification/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type contextKey string

const userContextKey contextKey = "user"

type UserResolver interface {
	UserByToken(ctx context.Context, token string) (models.User, error)
}

// RequireAuth resolves the bearer token to a user and stores it in the
// request context. Every token or credential problem is a plain 401.
func RequireAuth(log *slog.Logger, resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.auth.RequireAuth"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := bearerToken(r)
			if !ok {
				Unauthorized(w, r, "Not authenticated")
				return
			}

			user, err := resolver.UserByToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidCredentials) {
					Unauthorized(w, r, "Could not validate credentials")
					return
				}

				log.Error("failed to resolve user", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Unauthorized writes a 401 with the bearer challenge.
func Unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Error(msg))
}

func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// WithUser adds a user to the context. Used by tests in place of RequireAuth.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
