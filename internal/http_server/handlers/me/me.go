package me

import (
	"net/http"

	mwAuth "face_verification/internal/middleware/auth"

	"github.com/go-chi/render"
)

// New returns the public fields of the authenticated user.
func New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := mwAuth.UserFromContext(r.Context())
		if !ok {
			mwAuth.Unauthorized(w, r, "Not authenticated")
			return
		}

		render.JSON(w, r, user.Public())
	}
}
