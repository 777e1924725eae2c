package router

import (
	"context"
	"log/slog"
	"net/http"

	"face_verification/internal/decision"
	"face_verification/internal/http_server/handlers/health"
	"face_verification/internal/http_server/handlers/history"
	"face_verification/internal/http_server/handlers/info"
	"face_verification/internal/http_server/handlers/login"
	"face_verification/internal/http_server/handlers/me"
	"face_verification/internal/http_server/handlers/purge"
	"face_verification/internal/http_server/handlers/signup"
	"face_verification/internal/http_server/handlers/verify"
	"face_verification/internal/http_server/handlers/verifyconfig"
	mwAuth "face_verification/internal/middleware/auth"
	"face_verification/internal/middleware/cors"
	rateLimit "face_verification/internal/middleware/ratelimit"
	"face_verification/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

type AuthService interface {
	signup.UserRegistrar
	login.Authenticator
	mwAuth.UserResolver
}

type VerificationService interface {
	verify.Verifier
	Policy() decision.Policy
	MaxFileSize() int64
}

type Ledger interface {
	History(ctx context.Context, userID string, limit int) ([]models.VerificationRecord, error)
	Purge(ctx context.Context, userID string) (int64, error)
}

type Deps struct {
	Log            *slog.Logger
	Validate       *validator.Validate
	Auth           AuthService
	Verification   VerificationService
	Ledger         Ledger
	Metrics        http.Handler
	AllowedOrigins []string
}

func New(d Deps) *chi.Mux {
	if d.Validate == nil {
		d.Validate = validator.New()
	}

	policy := d.Verification.Policy()
	requireAuth := mwAuth.RequireAuth(d.Log, d.Auth)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(d.AllowedOrigins))

	r.Get("/", info.New(policy))
	r.Get("/health", health.New(policy.ModelName))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.With(rateLimit.Signup()).Post("/auth/signup", signup.New(d.Log, d.Validate, d.Auth))
	r.With(rateLimit.Login()).Post("/auth/login", login.New(d.Log, d.Validate, d.Auth))
	r.With(requireAuth).Get("/auth/me", me.New())

	r.Get("/verify/config", verifyconfig.New(policy, d.Verification.MaxFileSize()))

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.With(rateLimit.Verify()).Post("/verify", verify.New(d.Log, d.Verification, d.Verification.MaxFileSize()))
		r.Get("/verify/history", history.New(d.Log, d.Ledger))
		r.Delete("/verify/history", purge.New(d.Log, d.Ledger))
	})

	return r
}
