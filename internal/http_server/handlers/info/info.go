package info

import (
	"net/http"

	"face_verification/internal/decision"

	"github.com/go-chi/render"
)

const (
	serviceName = "Face Verification API"
	version     = "1.0.0"
)

type Response struct {
	Message   string  `json:"message"`
	Version   string  `json:"version"`
	Model     string  `json:"model"`
	Threshold float64 `json:"threshold"`
}

// New godoc
// @Summary      Service info
// @Tags         service
// @Produce      json
// @Success      200  {object}  Response
// @Router       / [get]
func New(policy decision.Policy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, Response{
			Message:   serviceName,
			Version:   version,
			Model:     policy.ModelName,
			Threshold: policy.Threshold,
		})
	}
}
