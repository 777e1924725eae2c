package verifyconfig

import (
	"net/http"

	"face_verification/internal/decision"
	"face_verification/internal/verification"

	"github.com/go-chi/render"
)

type Response struct {
	Threshold         float64  `json:"threshold"`
	ModelName         string   `json:"model_name"`
	DistanceMetric    string   `json:"distance_metric"`
	AllowedExtensions []string `json:"allowed_extensions"`
	MaxFileSizeMB     float64  `json:"max_file_size_mb"`
}

// New godoc
// @Summary      Verification settings
// @Description  Reports the decision policy and accepted upload constraints.
// @Tags         verify
// @Produce      json
// @Success      200  {object}  Response
// @Router       /verify/config [get]
func New(policy decision.Policy, maxFileSize int64) http.HandlerFunc {
	body := Response{
		Threshold:         policy.Threshold,
		ModelName:         policy.ModelName,
		DistanceMetric:    string(policy.Metric),
		AllowedExtensions: verification.AllowedExtensions,
		MaxFileSizeMB:     float64(maxFileSize) / (1 << 20),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, body)
	}
}
