package purge

import (
	"context"
	"log/slog"
	"net/http"

	resp "face_verification/internal/lib/api/response"
	sl "face_verification/internal/lib/logger"
	mwAuth "face_verification/internal/middleware/auth"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type HistoryPurger interface {
	Purge(ctx context.Context, userID string) (int64, error)
}

// New godoc
// @Summary      Delete verification history
// @Description  Removes every verification of the caller. Succeeds when there is nothing to delete.
// @Tags         verify
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  object{status=string,error=string}  "Not authenticated"
// @Failure      500  {object}  object{status=string,error=string}  "Internal error"
// @Router       /verify/history [delete]
func New(log *slog.Logger, purger HistoryPurger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.purge.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, ok := mwAuth.UserFromContext(r.Context())
		if !ok {
			mwAuth.Unauthorized(w, r, "Not authenticated")
			return
		}

		n, err := purger.Purge(r.Context(), user.ID)
		if err != nil {
			log.Error("failed to purge history", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("History deleted", slog.Int64("deleted", n))

		render.NoContent(w, r)
	}
}
