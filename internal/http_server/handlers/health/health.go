package health

import (
	"net/http"

	"github.com/go-chi/render"
)

type Response struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// New godoc
// @Summary      Liveness probe
// @Tags         service
// @Produce      json
// @Success      200  {object}  Response
// @Router       /health [get]
func New(model string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, Response{Status: "healthy", Model: model})
	}
}
