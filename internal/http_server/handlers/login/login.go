package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"face_verification/internal/auth"
	resp "face_verification/internal/lib/api/response"
	sl "face_verification/internal/lib/logger"
	mwAuth "face_verification/internal/middleware/auth"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// Request is accepted both as JSON and as an OAuth2 password form.
type Request struct {
	Username string `json:"username" form:"username" validate:"required"`
	Pass     string `json:"password" form:"password" validate:"required"`
}

type Response struct {
	resp.Response
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type Authenticator interface {
	Login(ctx context.Context, username, pass string) (string, error)
}

// New godoc
// @Summary      Log in
// @Description  Exchanges username and password for a bearer access token.
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        request  body  Request  true  "Credentials"
// @Success      200  {object}  Response
// @Failure      400  {object}  object{status=string,error=string}  "Malformed request"
// @Failure      401  {object}  object{status=string,error=string}  "Incorrect username or password"
// @Router       /auth/login [post]
func New(log *slog.Logger, validate *validator.Validate, authenticator Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.Decode(r, &req); err != nil {
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

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		token, err := authenticator.Login(r.Context(), req.Username, req.Pass)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				mwAuth.Unauthorized(w, r, "Incorrect username or password")

				return
			}

			log.Error("failed to login user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("User logged in successfully")

		render.JSON(w, r, Response{
			Response:    resp.OK(),
			AccessToken: token,
			TokenType:   "bearer",
		})
	}
}
