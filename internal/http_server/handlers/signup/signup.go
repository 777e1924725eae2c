package signup

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"face_verification/internal/auth"
	resp "face_verification/internal/lib/api/response"
	sl "face_verification/internal/lib/logger"
	"face_verification/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Pass     string `json:"password" validate:"required,min=6"`
}

type UserRegistrar interface {
	RegisterNewUser(ctx context.Context, email, username, pass string) (models.User, error)
}

// New godoc
// @Summary      Register a new user
// @Description  Creates an account. Username and email must both be unused.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body  Request  true  "New user"
// @Success      201  {object}  models.PublicUser
// @Failure      400  {object}  object{status=string,error=string}  "Validation error or duplicate username/email"
// @Failure      500  {object}  object{status=string,error=string}  "Internal error"
// @Router       /auth/signup [post]
func New(log *slog.Logger, validate *validator.Validate, registrar UserRegistrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signup.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			if !errors.As(err, &validateErr) {
				log.Error("Failed to validate request", sl.Err(err))
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid request"))
				return
			}

			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		user, err := registrar.RegisterNewUser(r.Context(), req.Email, req.Username, req.Pass)
		if err != nil {
			if errors.Is(err, auth.ErrUserExists) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Username or email already registered"))

				return
			}

			log.Error("failed to register user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("User registered", slog.String("uid", user.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, user.Public())
	}
}
