package history

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	resp "face_verification/internal/lib/api/response"
	sl "face_verification/internal/lib/logger"
	mwAuth "face_verification/internal/middleware/auth"
	"face_verification/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type HistoryProvider interface {
	History(ctx context.Context, userID string, limit int) ([]models.VerificationRecord, error)
}

// New godoc
// @Summary      Verification history
// @Description  Returns the caller's verifications, newest first. limit defaults to 50 and is capped at 500.
// @Tags         verify
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query  int  false  "Maximum number of records"
// @Success      200  {array}   models.VerificationRecord
// @Failure      400  {object}  object{status=string,error=string}  "limit is not an integer"
// @Failure      401  {object}  object{status=string,error=string}  "Not authenticated"
// @Router       /verify/history [get]
func New(log *slog.Logger, provider HistoryProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.history.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, ok := mwAuth.UserFromContext(r.Context())
		if !ok {
			mwAuth.Unauthorized(w, r, "Not authenticated")
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("limit must be an integer"))
				return
			}
			limit = n
		}

		recs, err := provider.History(r.Context(), user.ID, limit)
		if err != nil {
			log.Error("failed to load history", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, recs)
	}
}
