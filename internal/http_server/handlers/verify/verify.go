package verify

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	resp "face_verification/internal/lib/api/response"
	sl "face_verification/internal/lib/logger"
	mwAuth "face_verification/internal/middleware/auth"
	"face_verification/internal/models"
	"face_verification/internal/verification"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

// formOverhead is the room left for multipart headers on top of two images.
const formOverhead = 1 << 20

type Response struct {
	Result          models.Result `json:"result"`
	ConfidenceScore float64       `json:"confidence_score"`
	Message         string        `json:"message"`
	VerificationID  string        `json:"verification_id"`
}

type Verifier interface {
	Verify(ctx context.Context, user models.User, img1, img2 verification.Upload) (verification.Outcome, error)
}

// New godoc
// @Summary      Verify two face images
// @Description  Compares the faces in image1 and image2 and stores the outcome in the caller's history.
// @Description  A missing face is reported as no_match with confidence 0.
// @Tags         verify
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        image1  formData  file  true  "First image (.jpg, .jpeg, .png)"
// @Param        image2  formData  file  true  "Second image (.jpg, .jpeg, .png)"
// @Success      200  {object}  Response
// @Failure      400  {object}  object{status=string,error=string}  "Missing, empty or disallowed image"
// @Failure      401  {object}  object{status=string,error=string}  "Not authenticated"
// @Failure      500  {object}  object{status=string,error=string}  "Internal error"
// @Router       /verify [post]
func New(log *slog.Logger, verifier Verifier, maxFileSize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verify.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, ok := mwAuth.UserFromContext(r.Context())
		if !ok {
			mwAuth.Unauthorized(w, r, "Not authenticated")
			return
		}

		if maxFileSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, 2*maxFileSize+formOverhead)
		}

		if err := r.ParseMultipartForm(maxFileSize); err != nil {
			log.Info("Failed to parse multipart form", sl.Err(err))

			msg := "Failed to parse multipart form"
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				msg = "Request too large"
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error(msg))

			return
		}
		defer r.MultipartForm.RemoveAll()

		img1, close1, err := formImage(r, "image1")
		if err != nil {
			log.Error("failed to open image1", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))
			return
		}
		defer close1()

		img2, close2, err := formImage(r, "image2")
		if err != nil {
			log.Error("failed to open image2", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))
			return
		}
		defer close2()

		out, err := verifier.Verify(r.Context(), user, img1, img2)
		if err != nil {
			var inErr *verification.InputError

			switch {
			case errors.As(err, &inErr):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error(inErr.Msg))
			case errors.Is(err, verification.ErrUnauthorized):
				mwAuth.Unauthorized(w, r, "Not authenticated")
			default:
				log.Error("verification failed", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		render.JSON(w, r, Response{
			Result:          out.Result,
			ConfidenceScore: out.Confidence,
			Message:         out.Message,
			VerificationID:  out.VerificationID,
		})
	}
}

// formImage opens the named file field. A missing field yields an empty
// Upload so the service reports it as bad input.
func formImage(r *http.Request, field string) (verification.Upload, func(), error) {
	noop := func() {}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return verification.Upload{}, noop, nil
		}
		return verification.Upload{}, noop, err
	}

	return upload(file, header), func() { file.Close() }, nil
}

func upload(file multipart.File, header *multipart.FileHeader) verification.Upload {
	return verification.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	}
}
